package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zefirior/tastify-services/internal/comm"
	"github.com/zefirior/tastify-services/internal/roomsvc/models"
)

type RoundStore struct {
	db Querier
}

func NewRoundStore(db Querier) *RoundStore {
	return &RoundStore{db: db}
}

func (s *RoundStore) Insert(ctx context.Context, round *models.Round) error {
	submissions, err := json.Marshal(round.Submissions)
	if err != nil {
		return fmt.Errorf("failed to marshal submissions: %w", err)
	}

	query := `
		INSERT INTO rounds (room_id, number, suggester_id, stage, target, submissions)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, started_at
	`

	err = s.db.QueryRow(ctx, query,
		round.RoomID, round.Number, round.SuggesterID, round.Stage, round.Target, submissions,
	).Scan(&round.ID, &round.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to insert round: %w", err)
	}

	return nil
}

// SetSuggestion stores the suggester's pick and moves the round to the
// collecting stage in one statement.
func (s *RoundStore) SetSuggestion(ctx context.Context, round *models.Round) error {
	suggestion, err := json.Marshal(round.Suggestion)
	if err != nil {
		return fmt.Errorf("failed to marshal suggestion: %w", err)
	}

	query := `UPDATE rounds SET suggestion = $2, stage = $3 WHERE id = $1`

	if _, err := s.db.Exec(ctx, query, round.ID, suggestion, round.Stage); err != nil {
		return fmt.Errorf("failed to set suggestion: %w", err)
	}
	return nil
}

func (s *RoundStore) SaveSubmissions(ctx context.Context, round *models.Round) error {
	submissions, err := json.Marshal(round.Submissions)
	if err != nil {
		return fmt.Errorf("failed to marshal submissions: %w", err)
	}

	if _, err := s.db.Exec(ctx, `UPDATE rounds SET submissions = $2 WHERE id = $1`, round.ID, submissions); err != nil {
		return fmt.Errorf("failed to save submissions: %w", err)
	}
	return nil
}

// Finish writes the terminal stage, finish timestamp and the write-once
// results mapping.
func (s *RoundStore) Finish(ctx context.Context, round *models.Round) error {
	results, err := json.Marshal(round.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	query := `
		UPDATE rounds
		SET stage = $2, finished_at = $3, results = $4
		WHERE id = $1 AND stage != 'ENDED'
	`

	if _, err := s.db.Exec(ctx, query, round.ID, round.Stage, round.FinishedAt, results); err != nil {
		return fmt.Errorf("failed to finish round: %w", err)
	}
	return nil
}

// ListByRoom returns the room's rounds ordered by number.
func (s *RoundStore) ListByRoom(ctx context.Context, roomID int64) ([]*models.Round, error) {
	query := `
		SELECT id, room_id, number, suggester_id, stage, target,
		       suggestion, submissions, results, started_at, finished_at
		FROM rounds
		WHERE room_id = $1
		ORDER BY number
	`

	rows, err := s.db.Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	defer rows.Close()

	var rounds []*models.Round
	for rows.Next() {
		r := &models.Round{}
		var suggestion, submissions, results []byte
		err := rows.Scan(
			&r.ID,
			&r.RoomID,
			&r.Number,
			&r.SuggesterID,
			&r.Stage,
			&r.Target,
			&suggestion,
			&submissions,
			&results,
			&r.StartedAt,
			&r.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}

		if len(suggestion) > 0 {
			r.Suggestion = &comm.SuggestionPayload{}
			if err := json.Unmarshal(suggestion, r.Suggestion); err != nil {
				return nil, fmt.Errorf("failed to unmarshal suggestion: %w", err)
			}
		}
		r.Submissions = map[string]comm.GuessPayload{}
		if len(submissions) > 0 {
			if err := json.Unmarshal(submissions, &r.Submissions); err != nil {
				return nil, fmt.Errorf("failed to unmarshal submissions: %w", err)
			}
		}
		if len(results) > 0 {
			if err := json.Unmarshal(results, &r.Results); err != nil {
				return nil, fmt.Errorf("failed to unmarshal results: %w", err)
			}
		}

		rounds = append(rounds, r)
	}
	return rounds, rows.Err()
}
