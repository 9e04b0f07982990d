package game

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zefirior/tastify-services/internal/comm"
	"github.com/zefirior/tastify-services/internal/roomsvc/models"
)

func intPtr(v int) *int { return &v }

func numberGraph(uids ...string) *models.RoomGraph {
	g := &models.RoomGraph{
		Room: &models.Room{ID: 1, Code: "ABCD", GameType: TypeGuessNumber, Status: models.RoomPlaying, CreatedBy: uids[0]},
	}
	for i, uid := range uids {
		g.Players = append(g.Players, &models.Player{
			ID:      int64(i + 1),
			RoomID:  1,
			UserUID: uid,
			Role:    models.RolePlayer,
		})
	}
	g.Players[0].Role = models.RoleAdmin
	return g
}

func numberRound(target int, submissions map[string]comm.GuessPayload) *models.Round {
	return &models.Round{
		RoomID:      1,
		Number:      1,
		SuggesterID: sql.NullInt64{Int64: 1, Valid: true},
		Stage:       models.StageCollecting,
		Target:      sql.NullInt64{Int64: int64(target), Valid: true},
		Submissions: submissions,
	}
}

func TestGuessNumberNewRound(t *testing.T) {
	t.Parallel()
	v := NewGuessNumber(1, 100, true)
	g := numberGraph("u1", "u2", "u3")

	round, err := v.NewRound(g, 1)
	require.NoError(t, err)

	assert.Equal(t, models.StageCollecting, round.Stage)
	assert.Equal(t, sql.NullInt64{Int64: 1, Valid: true}, round.SuggesterID)
	require.True(t, round.Target.Valid)
	assert.GreaterOrEqual(t, round.Target.Int64, int64(1))
	assert.LessOrEqual(t, round.Target.Int64, int64(100))
}

func TestGuessNumberValidateGuess(t *testing.T) {
	t.Parallel()
	v := NewGuessNumber(1, 100, true)

	assert.NoError(t, v.ValidateGuess(comm.GuessPayload{Guess: intPtr(50)}))
	assert.ErrorIs(t, v.ValidateGuess(comm.GuessPayload{}), models.ErrInvalidState)
	assert.ErrorIs(t, v.ValidateGuess(comm.GuessPayload{Guess: intPtr(0)}), models.ErrInvalidState)
	assert.ErrorIs(t, v.ValidateGuess(comm.GuessPayload{Guess: intPtr(101)}), models.ErrInvalidState)
}

func TestGuessNumberScore(t *testing.T) {
	t.Parallel()

	t.Run("ranks by distance", func(t *testing.T) {
		t.Parallel()
		v := NewGuessNumber(1, 100, true)
		g := numberGraph("u1", "u2", "u3", "u4", "u5")

		round := numberRound(57, map[string]comm.GuessPayload{
			"u1": {Guess: intPtr(57)},
			"u2": {Guess: intPtr(40)},
			"u3": {Guess: intPtr(60)},
			"u4": {Guess: intPtr(90)},
		})

		results := v.Score(round, g)
		assert.Equal(t, map[string]int{
			"u1": 10, // distance 0
			"u3": 5,  // distance 3
			"u2": 3,  // distance 17
			"u4": 1,  // distance 33, off the podium
			"u5": 0,  // never submitted
		}, results)
	})

	t.Run("distance ties order by uid", func(t *testing.T) {
		t.Parallel()
		v := NewGuessNumber(1, 100, true)
		g := numberGraph("u1", "u2")

		round := numberRound(50, map[string]comm.GuessPayload{
			"u1": {Guess: intPtr(45)},
			"u2": {Guess: intPtr(55)},
		})

		results := v.Score(round, g)
		assert.Equal(t, 10, results["u1"])
		assert.Equal(t, 5, results["u2"])
	})

	t.Run("non-playing host is excluded", func(t *testing.T) {
		t.Parallel()
		v := NewGuessNumber(1, 100, false)
		g := numberGraph("host", "u2", "u3")

		round := numberRound(50, map[string]comm.GuessPayload{
			"u2": {Guess: intPtr(48)},
			"u3": {Guess: intPtr(70)},
		})

		results := v.Score(round, g)
		assert.NotContains(t, results, "host")
		assert.Equal(t, 10, results["u2"])
		assert.Equal(t, 5, results["u3"])
	})
}

func TestGuessNumberHostRules(t *testing.T) {
	t.Parallel()
	g := numberGraph("host", "u2")
	round := numberRound(50, map[string]comm.GuessPayload{})

	playing := NewGuessNumber(1, 100, true)
	assert.NoError(t, playing.CanGuess(g, round, g.Players[0]))
	assert.Equal(t, 2, playing.Quorum(g))

	watching := NewGuessNumber(1, 100, false)
	assert.ErrorIs(t, watching.CanGuess(g, round, g.Players[0]), models.ErrForbidden)
	assert.NoError(t, watching.CanGuess(g, round, g.Players[1]))
	assert.Equal(t, 1, watching.Quorum(g))
}
