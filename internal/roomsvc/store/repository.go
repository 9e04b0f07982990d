package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/zefirior/tastify-services/internal/roomsvc/models"
)

const maxCodeAttempts = 10

// Stores bundles the entity stores over one Querier, either the pool for
// plain reads or a transaction inside WithRoomLock.
type Stores struct {
	Rooms   *RoomStore
	Players *PlayerStore
	Rounds  *RoundStore
}

func NewStores(q Querier) *Stores {
	return &Stores{
		Rooms:   NewRoomStore(q),
		Players: NewPlayerStore(q),
		Rounds:  NewRoundStore(q),
	}
}

// LoadGraph loads the full room graph: the room, its players in stable
// uid order and its rounds in number order.
func (s *Stores) LoadGraph(ctx context.Context, code string) (*models.RoomGraph, error) {
	room, err := s.Rooms.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	players, err := s.Players.ListByRoom(ctx, room.ID)
	if err != nil {
		return nil, err
	}

	rounds, err := s.Rounds.ListByRoom(ctx, room.ID)
	if err != nil {
		return nil, err
	}

	return &models.RoomGraph{Room: room, Players: players, Rounds: rounds}, nil
}

// Repository is the transactional entry point over the room graph. Plain
// reads go through the embedded pool-backed stores; every mutation goes
// through WithRoomLock.
type Repository struct {
	pool *pgxpool.Pool
	*Stores
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, Stores: NewStores(pool)}
}

// WithRoomLock serializes the read-modify-write cycle for one room across
// every instance of the service. It opens a transaction, takes the
// Postgres advisory lock keyed by the room identity, reloads the graph
// under the lock, runs fn and commits. Rollback (and so lock release)
// happens on every error path.
func (r *Repository) WithRoomLock(ctx context.Context, code string, fn func(ctx context.Context, s *Stores, g *models.RoomGraph) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	s := NewStores(tx)

	room, err := s.Rooms.GetByCode(ctx, code)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("rooms:%d", room.ID)
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("acquire room lock: %w", err)
	}

	// State may have moved while we waited for the lock, reload.
	g, err := s.LoadGraph(ctx, code)
	if err != nil {
		return err
	}

	if err := fn(ctx, s, g); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// TryJobLock attempts the cluster-wide single-runner lock for a scheduler
// job. The lock is transaction-scoped, it releases with the job's commit
// or rollback.
func TryJobLock(ctx context.Context, q Querier, lockID int64) (bool, error) {
	var acquired bool
	if err := q.QueryRow(ctx, `SELECT pg_try_advisory_xact_lock($1)`, lockID).Scan(&acquired); err != nil {
		return false, fmt.Errorf("try job lock %d: %w", lockID, err)
	}
	return acquired, nil
}

// CreateRoom inserts a room with a fresh unique code plus its host player.
// Code collisions retry with a new code.
func (r *Repository) CreateRoom(ctx context.Context, gameType, creatorUID, nickname string, codeLength int) (*models.RoomGraph, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		g, err := r.createRoom(ctx, GenerateRoomCode(codeLength), gameType, creatorUID, nickname)
		if err != nil && isRoomCodeCollision(err) {
			log.Warnf("room code collision, retrying (attempt %d)", attempt+1)
			continue
		}
		return g, err
	}
	return nil, fmt.Errorf("could not allocate a unique room code in %d attempts", maxCodeAttempts)
}

func (r *Repository) createRoom(ctx context.Context, code, gameType, creatorUID, nickname string) (*models.RoomGraph, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	s := NewStores(tx)

	room := &models.Room{
		Code:      code,
		GameType:  gameType,
		Status:    models.RoomWaiting,
		CreatedBy: creatorUID,
	}
	if err := s.Rooms.Insert(ctx, room); err != nil {
		return nil, err
	}

	host := &models.Player{
		RoomID:   room.ID,
		UserUID:  creatorUID,
		Nickname: nickname,
		Role:     models.RoleAdmin,
	}
	if err := s.Players.Insert(ctx, host); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create room: %w", err)
	}

	return &models.RoomGraph{Room: room, Players: []*models.Player{host}}, nil
}

func isRoomCodeCollision(err error) bool {
	// Nickname conflicts cannot happen on create, the room is empty, so a
	// unique violation here is always the code.
	return isUniqueViolation(err)
}
