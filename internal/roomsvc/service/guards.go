package service

import (
	"fmt"
	"sort"

	"github.com/zefirior/tastify-services/internal/comm"
	"github.com/zefirior/tastify-services/internal/roomsvc/models"
)

func requireStatus(room *models.Room, want models.RoomStatus) error {
	if room.Status != want {
		return fmt.Errorf("invalid room status: expected %s, got %s: %w", want, room.Status, models.ErrInvalidState)
	}
	return nil
}

func requireStage(round *models.Round, want models.RoundStage) error {
	if round == nil {
		return fmt.Errorf("no round started yet: %w", models.ErrInvalidState)
	}
	if round.Stage != want {
		return fmt.Errorf("invalid round stage: expected %s, got %s: %w", want, round.Stage, models.ErrInvalidState)
	}
	return nil
}

func requireHost(room *models.Room, userUID string) error {
	if room.CreatedBy != userUID {
		return fmt.Errorf("only the host can do this: %w", models.ErrForbidden)
	}
	return nil
}

// countedPlayers is the player count against the start minimum. A host
// that does not play is not counted.
func countedPlayers(g *models.RoomGraph, hostPlays bool) int {
	if hostPlays {
		return len(g.Players)
	}
	n := 0
	for _, p := range g.Players {
		if p.UserUID != g.Room.CreatedBy {
			n++
		}
	}
	return n
}

// buildStandings returns the final leaderboard, best score first. Ties
// order by user uid to stay deterministic.
func buildStandings(players []*models.Player) []comm.Standing {
	standings := make([]comm.Standing, 0, len(players))
	for _, p := range players {
		standings = append(standings, comm.Standing{
			UserUID:  p.UserUID,
			Nickname: p.Nickname,
			Score:    p.Score,
		})
	}
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Score != standings[j].Score {
			return standings[i].Score > standings[j].Score
		}
		return standings[i].UserUID < standings[j].UserUID
	})
	return standings
}
