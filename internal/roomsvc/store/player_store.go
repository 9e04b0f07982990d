package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/zefirior/tastify-services/internal/roomsvc/models"
)

type PlayerStore struct {
	db Querier
}

func NewPlayerStore(db Querier) *PlayerStore {
	return &PlayerStore{db: db}
}

func (s *PlayerStore) Insert(ctx context.Context, player *models.Player) error {
	query := `
		INSERT INTO players (room_id, user_uid, nickname, role, score)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := s.db.QueryRow(ctx, query,
		player.RoomID, player.UserUID, player.Nickname, player.Role, player.Score,
	).Scan(&player.ID, &player.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("player %q already in room: %w", player.Nickname, models.ErrConflict)
		}
		return fmt.Errorf("failed to insert player: %w", err)
	}

	return nil
}

func (s *PlayerStore) Delete(ctx context.Context, playerID int64) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM players WHERE id = $1`, playerID); err != nil {
		return fmt.Errorf("failed to delete player: %w", err)
	}
	return nil
}

func (s *PlayerStore) SetRole(ctx context.Context, playerID int64, role models.Role) error {
	if _, err := s.db.Exec(ctx, `UPDATE players SET role = $2 WHERE id = $1`, playerID, role); err != nil {
		return fmt.Errorf("failed to update player role: %w", err)
	}
	return nil
}

// AddScore applies a round award to the cumulative score.
func (s *PlayerStore) AddScore(ctx context.Context, roomID int64, userUID string, delta int) error {
	query := `UPDATE players SET score = score + $3 WHERE room_id = $1 AND user_uid = $2`

	if _, err := s.db.Exec(ctx, query, roomID, userUID, delta); err != nil {
		return fmt.Errorf("failed to add score: %w", err)
	}
	return nil
}

// ListByRoom returns the room's players in stable user uid order. The
// suggester rotation depends on this ordering.
func (s *PlayerStore) ListByRoom(ctx context.Context, roomID int64) ([]*models.Player, error) {
	query := `
		SELECT id, room_id, user_uid, nickname, role, score, created_at
		FROM players
		WHERE room_id = $1
		ORDER BY user_uid
	`

	rows, err := s.db.Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var players []*models.Player
	for rows.Next() {
		p := &models.Player{}
		err := rows.Scan(
			&p.ID,
			&p.RoomID,
			&p.UserUID,
			&p.Nickname,
			&p.Role,
			&p.Score,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
