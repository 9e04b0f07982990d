package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/zefirior/tastify-services/internal/roomsvc/models"
)

const roomCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateRoomCode returns a random shareable room code.
func GenerateRoomCode(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = roomCodeChars[rand.Intn(len(roomCodeChars))]
	}
	return string(b)
}

type RoomStore struct {
	db Querier
}

func NewRoomStore(db Querier) *RoomStore {
	return &RoomStore{db: db}
}

func (s *RoomStore) Insert(ctx context.Context, room *models.Room) error {
	query := `
		INSERT INTO rooms (code, game_type, status, created_by, total_rounds)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRow(ctx, query,
		room.Code, room.GameType, room.Status, room.CreatedBy, room.TotalRounds,
	).Scan(&room.ID, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert room: %w", err)
	}

	return nil
}

func (s *RoomStore) GetByCode(ctx context.Context, code string) (*models.Room, error) {
	query := `
		SELECT id, code, game_type, status, created_by, total_rounds, created_at, updated_at
		FROM rooms
		WHERE code = $1
	`

	room := &models.Room{}
	err := s.db.QueryRow(ctx, query, code).Scan(
		&room.ID,
		&room.Code,
		&room.GameType,
		&room.Status,
		&room.CreatedBy,
		&room.TotalRounds,
		&room.CreatedAt,
		&room.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("room %s: %w", code, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get room by code: %w", err)
	}

	return room, nil
}

// Start moves the room to PLAYING and pins the round count.
func (s *RoomStore) Start(ctx context.Context, room *models.Room) error {
	query := `
		UPDATE rooms
		SET status = $2, total_rounds = $3, updated_at = now()
		WHERE id = $1
	`

	if _, err := s.db.Exec(ctx, query, room.ID, room.Status, room.TotalRounds); err != nil {
		return fmt.Errorf("failed to start room: %w", err)
	}
	return nil
}

func (s *RoomStore) UpdateStatus(ctx context.Context, roomID int64, status models.RoomStatus) error {
	query := `UPDATE rooms SET status = $2, updated_at = now() WHERE id = $1`

	if _, err := s.db.Exec(ctx, query, roomID, status); err != nil {
		return fmt.Errorf("failed to update room status: %w", err)
	}
	return nil
}

// Touch refreshes the activity timestamp so the cleanup job keeps its hands off.
func (s *RoomStore) Touch(ctx context.Context, roomID int64) error {
	if _, err := s.db.Exec(ctx, `UPDATE rooms SET updated_at = now() WHERE id = $1`, roomID); err != nil {
		return fmt.Errorf("failed to touch room: %w", err)
	}
	return nil
}

// SetCreatedBy reassigns the host reference after a host transfer.
func (s *RoomStore) SetCreatedBy(ctx context.Context, roomID int64, userUID string) error {
	query := `UPDATE rooms SET created_by = $2, updated_at = now() WHERE id = $1`

	if _, err := s.db.Exec(ctx, query, roomID, userUID); err != nil {
		return fmt.Errorf("failed to reassign host: %w", err)
	}
	return nil
}

// ListCodesWithOpenRounds returns codes of PLAYING rooms whose latest round
// has not ended yet. Scanned by the round timer job.
func (s *RoomStore) ListCodesWithOpenRounds(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT r.code
		FROM rooms r
		JOIN rounds rd ON rd.room_id = r.id
		WHERE r.status = 'PLAYING' AND rd.stage != 'ENDED'
	`

	return s.listCodes(ctx, query)
}

// ListCodesReadyToAdvance returns codes of PLAYING rooms whose latest round
// is ENDED. The advance job re-checks the inter-round delay under the lock.
func (s *RoomStore) ListCodesReadyToAdvance(ctx context.Context) ([]string, error) {
	query := `
		SELECT r.code
		FROM rooms r
		JOIN rounds rd ON rd.room_id = r.id
		WHERE r.status = 'PLAYING'
		  AND rd.stage = 'ENDED'
		  AND rd.number = (SELECT max(number) FROM rounds WHERE room_id = r.id)
	`

	return s.listCodes(ctx, query)
}

// ListStaleCodes returns active rooms without activity since the threshold.
func (s *RoomStore) ListStaleCodes(ctx context.Context, olderThan time.Time) ([]string, error) {
	query := `
		SELECT code
		FROM rooms
		WHERE status IN ('WAITING', 'PLAYING') AND updated_at < $1
	`

	return s.listCodes(ctx, query, olderThan)
}

func (s *RoomStore) listCodes(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list room codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan room code: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}
