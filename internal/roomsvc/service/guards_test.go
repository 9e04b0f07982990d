package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zefirior/tastify-services/internal/roomsvc/models"
)

func TestRequireStatus(t *testing.T) {
	t.Parallel()

	room := &models.Room{Status: models.RoomWaiting}
	assert.NoError(t, requireStatus(room, models.RoomWaiting))
	assert.ErrorIs(t, requireStatus(room, models.RoomPlaying), models.ErrInvalidState)
}

func TestRequireStage(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, requireStage(nil, models.StageCollecting), models.ErrInvalidState)

	round := &models.Round{Stage: models.StageSuggesting}
	assert.NoError(t, requireStage(round, models.StageSuggesting))
	assert.ErrorIs(t, requireStage(round, models.StageCollecting), models.ErrInvalidState)
}

func TestRequireHost(t *testing.T) {
	t.Parallel()

	room := &models.Room{CreatedBy: "host"}
	assert.NoError(t, requireHost(room, "host"))
	assert.ErrorIs(t, requireHost(room, "guest"), models.ErrForbidden)
}

func TestCountedPlayers(t *testing.T) {
	t.Parallel()

	g := &models.RoomGraph{
		Room: &models.Room{CreatedBy: "host"},
		Players: []*models.Player{
			{UserUID: "host"},
			{UserUID: "u2"},
			{UserUID: "u3"},
		},
	}

	assert.Equal(t, 3, countedPlayers(g, true))
	assert.Equal(t, 2, countedPlayers(g, false))
}

func TestBuildStandings(t *testing.T) {
	t.Parallel()

	standings := buildStandings([]*models.Player{
		{UserUID: "u3", Nickname: "c", Score: 4},
		{UserUID: "u1", Nickname: "a", Score: 9},
		{UserUID: "u2", Nickname: "b", Score: 4},
	})

	assert.Equal(t, "u1", standings[0].UserUID)
	// equal scores keep uid order
	assert.Equal(t, "u2", standings[1].UserUID)
	assert.Equal(t, "u3", standings[2].UserUID)
}
