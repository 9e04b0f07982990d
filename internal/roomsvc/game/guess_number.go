package game

import (
	"database/sql"
	"fmt"
	"math/rand"
	"sort"

	"github.com/zefirior/tastify-services/internal/comm"
	"github.com/zefirior/tastify-services/internal/roomsvc/models"
)

const TypeGuessNumber = "guess_number"

// GuessNumber is the numeric variant: every round hides a random target,
// everyone guesses, closest guesses score by rank. Two-stage round shape,
// collecting opens immediately.
type GuessNumber struct {
	minTarget int
	maxTarget int
	hostPlays bool
}

func NewGuessNumber(minTarget, maxTarget int, hostPlays bool) *GuessNumber {
	return &GuessNumber{minTarget: minTarget, maxTarget: maxTarget, hostPlays: hostPlays}
}

func (g *GuessNumber) Type() string { return TypeGuessNumber }

func (g *GuessNumber) InitialStage() models.RoundStage { return models.StageCollecting }

func (g *GuessNumber) NewRound(graph *models.RoomGraph, number int) (*models.Round, error) {
	suggester := graph.SuggesterForRound(number)
	if suggester == nil {
		return nil, fmt.Errorf("room %s has no players", graph.Room.Code)
	}

	target := g.minTarget + rand.Intn(g.maxTarget-g.minTarget+1)

	return &models.Round{
		RoomID:      graph.Room.ID,
		Number:      number,
		SuggesterID: sql.NullInt64{Int64: suggester.ID, Valid: true},
		Stage:       g.InitialStage(),
		Target:      sql.NullInt64{Int64: int64(target), Valid: true},
		Submissions: map[string]comm.GuessPayload{},
	}, nil
}

func (g *GuessNumber) CanGuess(graph *models.RoomGraph, round *models.Round, player *models.Player) error {
	if !g.hostPlays && player.UserUID == graph.Room.CreatedBy {
		return fmt.Errorf("host does not play in this room: %w", models.ErrForbidden)
	}
	return nil
}

func (g *GuessNumber) ValidateGuess(payload comm.GuessPayload) error {
	if payload.Guess == nil {
		return fmt.Errorf("guess is required: %w", models.ErrInvalidState)
	}
	if *payload.Guess < g.minTarget || *payload.Guess > g.maxTarget {
		return fmt.Errorf("guess must be between %d and %d: %w", g.minTarget, g.maxTarget, models.ErrInvalidState)
	}
	return nil
}

func (g *GuessNumber) Quorum(graph *models.RoomGraph) int {
	return len(g.guessers(graph))
}

// Score ranks guessers by distance to the target, closest first. Awards
// 10/5/3 for the podium, 1 for every other submitted guess, 0 for players
// who never submitted. Ties and non-submitters order by user uid so the
// result is deterministic.
func (g *GuessNumber) Score(round *models.Round, graph *models.RoomGraph) map[string]int {
	target := int(round.Target.Int64)

	type ranked struct {
		uid       string
		distance  int
		submitted bool
	}

	players := g.guessers(graph)
	entries := make([]ranked, 0, len(players))
	for _, p := range players {
		e := ranked{uid: p.UserUID}
		if sub, ok := round.Submissions[p.UserUID]; ok && sub.Guess != nil {
			e.submitted = true
			e.distance = abs(*sub.Guess - target)
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.submitted != b.submitted {
			return a.submitted
		}
		if a.distance != b.distance {
			return a.distance < b.distance
		}
		return a.uid < b.uid
	})

	pointsTable := []int{10, 5, 3}
	results := make(map[string]int, len(entries))
	for i, e := range entries {
		if !e.submitted {
			results[e.uid] = 0
			continue
		}
		if i < len(pointsTable) {
			results[e.uid] = pointsTable[i]
		} else {
			results[e.uid] = 1
		}
	}

	return results
}

func (g *GuessNumber) guessers(graph *models.RoomGraph) []*models.Player {
	if g.hostPlays {
		return graph.Players
	}
	players := make([]*models.Player, 0, len(graph.Players))
	for _, p := range graph.Players {
		if p.UserUID == graph.Room.CreatedBy {
			continue
		}
		players = append(players, p)
	}
	return players
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
