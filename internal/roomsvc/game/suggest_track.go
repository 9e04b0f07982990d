package game

import (
	"database/sql"
	"fmt"

	"github.com/zefirior/tastify-services/internal/comm"
	"github.com/zefirior/tastify-services/internal/roomsvc/models"
)

const TypeSuggestTrack = "suggest_track"

// SuggestTrack is the original Tastify game: the round's suggester picks
// an artist, everyone else submits a track of that artist (or skips).
// Three-stage round shape.
type SuggestTrack struct{}

func NewSuggestTrack() *SuggestTrack { return &SuggestTrack{} }

func (s *SuggestTrack) Type() string { return TypeSuggestTrack }

func (s *SuggestTrack) InitialStage() models.RoundStage { return models.StageSuggesting }

func (s *SuggestTrack) NewRound(graph *models.RoomGraph, number int) (*models.Round, error) {
	suggester := graph.SuggesterForRound(number)
	if suggester == nil {
		return nil, fmt.Errorf("room %s has no players", graph.Room.Code)
	}

	return &models.Round{
		RoomID:      graph.Room.ID,
		Number:      number,
		SuggesterID: sql.NullInt64{Int64: suggester.ID, Valid: true},
		Stage:       s.InitialStage(),
		Submissions: map[string]comm.GuessPayload{},
	}, nil
}

// CanGuess keeps the role separation: the suggester never submits a track
// in their own round.
func (s *SuggestTrack) CanGuess(graph *models.RoomGraph, round *models.Round, player *models.Player) error {
	if round.SuggesterID.Valid && player.ID == round.SuggesterID.Int64 {
		return fmt.Errorf("suggester cannot submit a track: %w", models.ErrForbidden)
	}
	return nil
}

// ValidateGuess accepts an empty track, submitting nothing is a skip and
// still counts toward the quorum.
func (s *SuggestTrack) ValidateGuess(payload comm.GuessPayload) error {
	if payload.Guess != nil {
		return fmt.Errorf("numeric guess does not belong to this game: %w", models.ErrInvalidState)
	}
	return nil
}

// Quorum is every player except the suggester.
func (s *SuggestTrack) Quorum(graph *models.RoomGraph) int {
	if len(graph.Players) == 0 {
		return 0
	}
	return len(graph.Players) - 1
}

// Score awards each guesser with a non-empty track 1 point. The suggester
// earns matches+1 when the pick was neither trivial nor impossible:
// 0 < matches <= ceil(guessers/2). Nobody matching costs the suggester a
// point, everybody matching earns nothing (the pick was too easy).
func (s *SuggestTrack) Score(round *models.Round, graph *models.RoomGraph) map[string]int {
	suggester := graph.Suggester(round)

	results := make(map[string]int, len(graph.Players))
	for _, p := range graph.Players {
		results[p.UserUID] = 0
	}

	guessers := 0
	matches := 0
	for _, p := range graph.Players {
		if suggester != nil && p.ID == suggester.ID {
			continue
		}
		guessers++
		sub, ok := round.Submissions[p.UserUID]
		if !ok || sub.TrackID == nil || *sub.TrackID == "" {
			continue
		}
		matches++
		results[p.UserUID] = 1
	}

	if suggester == nil {
		return results
	}

	switch {
	case matches == 0:
		results[suggester.UserUID] = -1
	case matches <= (guessers+1)/2:
		results[suggester.UserUID] = matches + 1
	default:
		results[suggester.UserUID] = 0
	}

	return results
}
