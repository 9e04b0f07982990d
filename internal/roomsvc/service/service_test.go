package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zefirior/tastify-services/internal/comm"
	"github.com/zefirior/tastify-services/internal/roomsvc/config"
	"github.com/zefirior/tastify-services/internal/roomsvc/game"
	"github.com/zefirior/tastify-services/internal/roomsvc/models"
	"github.com/zefirior/tastify-services/internal/roomsvc/store"
)

func strPtr(v string) *string { return &v }

// fakeQuerier satisfies store.Querier so the locked operations run their
// writes without a database. Exec always succeeds; QueryRow hands back
// generated ids and timestamps for the RETURNING scans.
type fakeQuerier struct {
	nextID int64
	now    time.Time
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{nextID: 100, now: time.Now().UTC()}
}

func (q *fakeQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (q *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, fmt.Errorf("unexpected query: %s", sql)
}

func (q *fakeQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return fakeRow{q: q}
}

type fakeRow struct {
	q *fakeQuerier
}

func (r fakeRow) Scan(dest ...any) error {
	for _, d := range dest {
		switch v := d.(type) {
		case *int64:
			r.q.nextID++
			*v = r.q.nextID
		case *time.Time:
			*v = r.q.now
		}
	}
	return nil
}

// fakeRepo serves one in-memory graph. WithRoomLock runs fn directly, so
// the state machine mutates the shared graph the way it would a freshly
// loaded one.
type fakeRepo struct {
	q *fakeQuerier
	g *models.RoomGraph
}

func (f *fakeRepo) WithRoomLock(ctx context.Context, code string, fn func(context.Context, *store.Stores, *models.RoomGraph) error) error {
	if f.g == nil || f.g.Room.Code != code {
		return fmt.Errorf("room %s: %w", code, models.ErrNotFound)
	}
	return fn(ctx, store.NewStores(f.q), f.g)
}

func (f *fakeRepo) LoadGraph(ctx context.Context, code string) (*models.RoomGraph, error) {
	if f.g == nil || f.g.Room.Code != code {
		return nil, fmt.Errorf("room %s: %w", code, models.ErrNotFound)
	}
	return f.g, nil
}

func (f *fakeRepo) CreateRoom(ctx context.Context, gameType, creatorUID, nickname string, codeLength int) (*models.RoomGraph, error) {
	room := &models.Room{ID: 1, Code: "ABCD", GameType: gameType, Status: models.RoomWaiting, CreatedBy: creatorUID}
	host := &models.Player{ID: 1, RoomID: 1, UserUID: creatorUID, Nickname: nickname, Role: models.RoleAdmin}
	f.g = &models.RoomGraph{Room: room, Players: []*models.Player{host}}
	return f.g, nil
}

type recordedEvent struct {
	event string
	data  any
}

type recordingNotifier struct {
	events []recordedEvent
}

func (n *recordingNotifier) Publish(roomCode, event string, data any) {
	n.events = append(n.events, recordedEvent{event, data})
}

func (n *recordingNotifier) names() []string {
	var names []string
	for _, e := range n.events {
		names = append(names, e.event)
	}
	return names
}

func newTestService(t *testing.T, g *models.RoomGraph) (*RoomService, *recordingNotifier) {
	t.Helper()

	cfg := &config.Config{
		RoomCodeLength:  4,
		MinPlayers:      2,
		HostPlays:       true,
		DefaultGameType: game.TypeGuessNumber,
		RoundDuration:   30 * time.Second,
		BetweenRounds:   5 * time.Second,
		InactivityLimit: time.Hour,
		MinTargetNumber: 1,
		MaxTargetNumber: 100,
	}

	games := game.NewRegistry(game.TypeGuessNumber)
	require.NoError(t, games.Register(game.NewGuessNumber(1, 100, true)))
	require.NoError(t, games.Register(game.NewSuggestTrack()))

	notifier := &recordingNotifier{}
	return NewRoomService(&fakeRepo{q: newFakeQuerier(), g: g}, cfg, games, notifier), notifier
}

func testGraph(gameType string, status models.RoomStatus, uids ...string) *models.RoomGraph {
	g := &models.RoomGraph{
		Room: &models.Room{ID: 1, Code: "ABCD", GameType: gameType, Status: status, CreatedBy: uids[0]},
	}
	for i, uid := range uids {
		g.Players = append(g.Players, &models.Player{
			ID:       int64(i + 1),
			RoomID:   1,
			UserUID:  uid,
			Nickname: "nick-" + uid,
			Role:     models.RolePlayer,
		})
	}
	g.Players[0].Role = models.RoleAdmin
	return g
}

func openRound(g *models.RoomGraph, stage models.RoundStage, target int) *models.Round {
	round := &models.Round{
		ID:          50,
		RoomID:      g.Room.ID,
		Number:      1,
		SuggesterID: sql.NullInt64{Int64: g.Players[0].ID, Valid: true},
		Stage:       stage,
		StartedAt:   time.Now().UTC(),
		Submissions: map[string]comm.GuessPayload{},
	}
	if target > 0 {
		round.Target = sql.NullInt64{Int64: int64(target), Valid: true}
	}
	g.Rounds = append(g.Rounds, round)
	return round
}

func TestCreateRoom(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("defaults the game type", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t, nil)

		g, err := svc.CreateRoom(ctx, "", "u1", "ann")
		require.NoError(t, err)
		assert.Equal(t, game.TypeGuessNumber, g.Room.GameType)
		assert.Equal(t, models.RoleAdmin, g.Players[0].Role)
	})

	t.Run("rejects unknown game type", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t, nil)

		_, err := svc.CreateRoom(ctx, "tic_tac_toe", "u1", "ann")
		assert.ErrorIs(t, err, models.ErrInvalidState)
	})
}

func TestJoinRoom(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("seats a new player", func(t *testing.T) {
		t.Parallel()
		g := testGraph(game.TypeGuessNumber, models.RoomWaiting, "u1")
		svc, notifier := newTestService(t, g)

		p, err := svc.JoinRoom(ctx, "ABCD", "bob", "u2")
		require.NoError(t, err)
		assert.Equal(t, models.RolePlayer, p.Role)
		assert.NotZero(t, p.ID)
		assert.Equal(t, []string{comm.EventPlayerJoined}, notifier.names())
	})

	t.Run("rejects a taken nickname", func(t *testing.T) {
		t.Parallel()
		g := testGraph(game.TypeGuessNumber, models.RoomWaiting, "u1")
		svc, _ := newTestService(t, g)

		_, err := svc.JoinRoom(ctx, "ABCD", "nick-u1", "u2")
		assert.ErrorIs(t, err, models.ErrConflict)
	})

	t.Run("rejects a double join", func(t *testing.T) {
		t.Parallel()
		g := testGraph(game.TypeGuessNumber, models.RoomWaiting, "u1")
		svc, _ := newTestService(t, g)

		_, err := svc.JoinRoom(ctx, "ABCD", "other", "u1")
		assert.ErrorIs(t, err, models.ErrConflict)
	})

	t.Run("rejects joining a running game", func(t *testing.T) {
		t.Parallel()
		g := testGraph(game.TypeGuessNumber, models.RoomPlaying, "u1", "u2")
		svc, _ := newTestService(t, g)

		_, err := svc.JoinRoom(ctx, "ABCD", "carol", "u3")
		assert.ErrorIs(t, err, models.ErrInvalidState)
	})

	t.Run("unknown room", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t, testGraph(game.TypeGuessNumber, models.RoomWaiting, "u1"))

		_, err := svc.JoinRoom(ctx, "NOPE", "bob", "u2")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestStartGame(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("opens round one", func(t *testing.T) {
		t.Parallel()
		g := testGraph(game.TypeGuessNumber, models.RoomWaiting, "u1", "u2")
		svc, notifier := newTestService(t, g)

		require.NoError(t, svc.StartGame(ctx, "ABCD", "u1"))

		assert.Equal(t, models.RoomPlaying, g.Room.Status)
		assert.Equal(t, 2, g.Room.TotalRounds, "derived from player count")
		require.Len(t, g.Rounds, 1)

		round := g.Rounds[0]
		assert.Equal(t, 1, round.Number)
		assert.Equal(t, sql.NullInt64{Int64: g.Players[0].ID, Valid: true}, round.SuggesterID)
		assert.Equal(t, models.StageCollecting, round.Stage)

		assert.Equal(t, []string{comm.EventGameStarted, comm.EventRoundStarted}, notifier.names())
	})

	t.Run("host only", func(t *testing.T) {
		t.Parallel()
		g := testGraph(game.TypeGuessNumber, models.RoomWaiting, "u1", "u2")
		svc, _ := newTestService(t, g)

		assert.ErrorIs(t, svc.StartGame(ctx, "ABCD", "u2"), models.ErrForbidden)
	})

	t.Run("needs the player minimum", func(t *testing.T) {
		t.Parallel()
		g := testGraph(game.TypeGuessNumber, models.RoomWaiting, "u1")
		svc, _ := newTestService(t, g)

		assert.ErrorIs(t, svc.StartGame(ctx, "ABCD", "u1"), models.ErrPreconditionFailed)
	})

	t.Run("waiting rooms only", func(t *testing.T) {
		t.Parallel()
		g := testGraph(game.TypeGuessNumber, models.RoomPlaying, "u1", "u2")
		svc, _ := newTestService(t, g)

		assert.ErrorIs(t, svc.StartGame(ctx, "ABCD", "u1"), models.ErrInvalidState)
	})
}

func TestSubmitSuggestion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("moves the round to collecting", func(t *testing.T) {
		t.Parallel()
		g := testGraph(game.TypeSuggestTrack, models.RoomPlaying, "u1", "u2", "u3")
		round := openRound(g, models.StageSuggesting, 0)
		svc, notifier := newTestService(t, g)

		payload := comm.SuggestionPayload{ArtistID: "a1", ArtistName: "Artist"}
		require.NoError(t, svc.SubmitSuggestion(ctx, "ABCD", "u1", payload))

		assert.Equal(t, models.StageCollecting, round.Stage)
		require.NotNil(t, round.Suggestion)
		assert.Equal(t, "a1", round.Suggestion.ArtistID)
		assert.Equal(t, []string{comm.EventSuggestionSubmitted}, notifier.names())
	})

	t.Run("suggester only", func(t *testing.T) {
		t.Parallel()
		g := testGraph(game.TypeSuggestTrack, models.RoomPlaying, "u1", "u2", "u3")
		openRound(g, models.StageSuggesting, 0)
		svc, _ := newTestService(t, g)

		err := svc.SubmitSuggestion(ctx, "ABCD", "u2", comm.SuggestionPayload{ArtistID: "a1"})
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("requires the artist id", func(t *testing.T) {
		t.Parallel()
		g := testGraph(game.TypeSuggestTrack, models.RoomPlaying, "u1", "u2", "u3")
		openRound(g, models.StageSuggesting, 0)
		svc, _ := newTestService(t, g)

		err := svc.SubmitSuggestion(ctx, "ABCD", "u1", comm.SuggestionPayload{})
		assert.ErrorIs(t, err, models.ErrInvalidState)
	})
}

func TestSubmitGuess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("duplicate submission conflicts", func(t *testing.T) {
		t.Parallel()
		g := testGraph(game.TypeGuessNumber, models.RoomPlaying, "u1", "u2", "u3")
		round := openRound(g, models.StageCollecting, 57)
		round.Submissions["u2"] = comm.GuessPayload{Guess: intPtr(40)}
		svc, _ := newTestService(t, g)

		err := svc.SubmitGuess(ctx, "ABCD", "u2", comm.GuessPayload{Guess: intPtr(41)})
		assert.ErrorIs(t, err, models.ErrConflict)
		assert.Len(t, round.Submissions, 1, "the second entry is never counted")
		assert.Equal(t, 40, *round.Submissions["u2"].Guess)
	})

	t.Run("reaching quorum ends the round in the same call", func(t *testing.T) {
		t.Parallel()
		g := testGraph(game.TypeGuessNumber, models.RoomPlaying, "u1", "u2")
		g.Room.TotalRounds = 2
		round := openRound(g, models.StageCollecting, 57)
		round.Submissions["u1"] = comm.GuessPayload{Guess: intPtr(57)}
		svc, notifier := newTestService(t, g)

		require.NoError(t, svc.SubmitGuess(ctx, "ABCD", "u2", comm.GuessPayload{Guess: intPtr(40)}))

		assert.Equal(t, models.StageEnded, round.Stage)
		assert.True(t, round.FinishedAt.Valid)
		assert.Equal(t, map[string]int{"u1": 10, "u2": 5}, round.Results)
		assert.Equal(t, 10, g.Players[0].Score)
		assert.Equal(t, 5, g.Players[1].Score)
		assert.Equal(t, []string{comm.EventGuessSubmitted, comm.EventRoundFinished}, notifier.names())
	})

	t.Run("wrong stage", func(t *testing.T) {
		t.Parallel()
		g := testGraph(game.TypeSuggestTrack, models.RoomPlaying, "u1", "u2", "u3")
		openRound(g, models.StageSuggesting, 0)
		svc, _ := newTestService(t, g)

		err := svc.SubmitGuess(ctx, "ABCD", "u2", comm.GuessPayload{TrackID: strPtr("t1")})
		assert.ErrorIs(t, err, models.ErrInvalidState)
	})
}

func TestEndDueRound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("expiry forces the end, re-running is a no-op", func(t *testing.T) {
		t.Parallel()
		g := testGraph(game.TypeGuessNumber, models.RoomPlaying, "u1", "u2")
		g.Room.TotalRounds = 2
		round := openRound(g, models.StageCollecting, 57)
		round.StartedAt = now.Add(-time.Minute)
		round.Submissions["u1"] = comm.GuessPayload{Guess: intPtr(60)}
		svc, notifier := newTestService(t, g)

		require.NoError(t, svc.EndDueRound(ctx, "ABCD", now))

		assert.Equal(t, models.StageEnded, round.Stage)
		assert.Equal(t, map[string]int{"u1": 10, "u2": 0}, round.Results, "missing submission scores zero")
		assert.Equal(t, []string{comm.EventRoundFinished}, notifier.names())

		// the results are write-once, a second pass must not recompute
		notifier.events = nil
		round.Submissions["u2"] = comm.GuessPayload{Guess: intPtr(57)}
		require.NoError(t, svc.EndDueRound(ctx, "ABCD", now))

		assert.Equal(t, map[string]int{"u1": 10, "u2": 0}, round.Results)
		assert.Empty(t, notifier.names())
	})

	t.Run("nothing due", func(t *testing.T) {
		t.Parallel()
		g := testGraph(game.TypeGuessNumber, models.RoomPlaying, "u1", "u2", "u3")
		round := openRound(g, models.StageCollecting, 57)
		round.StartedAt = now
		svc, notifier := newTestService(t, g)

		require.NoError(t, svc.EndDueRound(ctx, "ABCD", now.Add(time.Second)))

		assert.Equal(t, models.StageCollecting, round.Stage)
		assert.Empty(t, notifier.names())
	})
}

func TestAdvanceRound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	endedRound := func(g *models.RoomGraph) *models.Round {
		round := openRound(g, models.StageEnded, 57)
		round.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
		round.Results = map[string]int{}
		return round
	}

	t.Run("opens the next round with the rotated suggester", func(t *testing.T) {
		t.Parallel()
		g := testGraph(game.TypeGuessNumber, models.RoomPlaying, "u1", "u2")
		g.Room.TotalRounds = 2
		endedRound(g)
		svc, notifier := newTestService(t, g)

		require.NoError(t, svc.AdvanceRound(ctx, "ABCD", "u2"))

		require.Len(t, g.Rounds, 2)
		next := g.Rounds[1]
		assert.Equal(t, 2, next.Number)
		assert.Equal(t, sql.NullInt64{Int64: g.Players[1].ID, Valid: true}, next.SuggesterID)
		assert.Equal(t, []string{comm.EventRoundStarted}, notifier.names())
	})

	t.Run("the suggester may not advance", func(t *testing.T) {
		t.Parallel()
		g := testGraph(game.TypeGuessNumber, models.RoomPlaying, "u1", "u2")
		g.Room.TotalRounds = 2
		endedRound(g)
		svc, _ := newTestService(t, g)

		assert.ErrorIs(t, svc.AdvanceRound(ctx, "ABCD", "u1"), models.ErrForbidden)
	})

	t.Run("finishes the game after the last round", func(t *testing.T) {
		t.Parallel()
		g := testGraph(game.TypeGuessNumber, models.RoomPlaying, "u1", "u2")
		g.Room.TotalRounds = 1
		g.Players[0].Score = 5
		g.Players[1].Score = 10
		endedRound(g)
		svc, notifier := newTestService(t, g)

		require.NoError(t, svc.AdvanceRound(ctx, "ABCD", "u2"))

		assert.Equal(t, []string{comm.EventGameFinished}, notifier.names())
		data, ok := notifier.events[0].data.(comm.GameFinishedData)
		require.True(t, ok)
		require.Len(t, data.Standings, 2)
		assert.Equal(t, "u2", data.Standings[0].UserUID)
	})

	t.Run("requires an ended round", func(t *testing.T) {
		t.Parallel()
		g := testGraph(game.TypeGuessNumber, models.RoomPlaying, "u1", "u2")
		openRound(g, models.StageCollecting, 57)
		svc, _ := newTestService(t, g)

		assert.ErrorIs(t, svc.AdvanceRound(ctx, "ABCD", "u2"), models.ErrInvalidState)
	})
}

func TestLeaveRoom(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("a past suggester can leave mid-game", func(t *testing.T) {
		t.Parallel()
		g := testGraph(game.TypeGuessNumber, models.RoomPlaying, "u1", "u2", "u3")
		openRound(g, models.StageCollecting, 57)
		svc, notifier := newTestService(t, g)

		require.NoError(t, svc.LeaveRoom(ctx, "ABCD", "u1"))
		assert.Equal(t, []string{comm.EventPlayerLeft}, notifier.names())
	})

	t.Run("unknown member", func(t *testing.T) {
		t.Parallel()
		g := testGraph(game.TypeGuessNumber, models.RoomWaiting, "u1")
		svc, _ := newTestService(t, g)

		assert.ErrorIs(t, svc.LeaveRoom(ctx, "ABCD", "u9"), models.ErrNotFound)
	})
}

func TestAbandonRoom(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("closes a stale room", func(t *testing.T) {
		t.Parallel()
		g := testGraph(game.TypeGuessNumber, models.RoomWaiting, "u1")
		g.Room.UpdatedAt = now.Add(-2 * time.Hour)
		svc, notifier := newTestService(t, g)

		require.NoError(t, svc.AbandonRoom(ctx, "ABCD", "inactivity", now))
		assert.Equal(t, []string{comm.EventRoomClosed}, notifier.names())
	})

	t.Run("recently touched rooms survive", func(t *testing.T) {
		t.Parallel()
		g := testGraph(game.TypeGuessNumber, models.RoomWaiting, "u1")
		g.Room.UpdatedAt = now.Add(-time.Minute)
		svc, notifier := newTestService(t, g)

		require.NoError(t, svc.AbandonRoom(ctx, "ABCD", "inactivity", now))
		assert.Empty(t, notifier.names())
	})
}
