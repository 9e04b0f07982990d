package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphWithPlayers(uids ...string) *RoomGraph {
	g := &RoomGraph{Room: &Room{ID: 1, Code: "ABCD"}}
	for i, uid := range uids {
		g.Players = append(g.Players, &Player{ID: int64(i + 1), UserUID: uid, Nickname: "nick-" + uid})
	}
	return g
}

func TestSuggesterForRound(t *testing.T) {
	t.Parallel()
	g := graphWithPlayers("u1", "u2", "u3")

	// rotation wraps around the player list
	assert.Equal(t, "u1", g.SuggesterForRound(1).UserUID)
	assert.Equal(t, "u2", g.SuggesterForRound(2).UserUID)
	assert.Equal(t, "u3", g.SuggesterForRound(3).UserUID)
	assert.Equal(t, "u1", g.SuggesterForRound(4).UserUID)

	empty := &RoomGraph{Room: &Room{}}
	assert.Nil(t, empty.SuggesterForRound(1))
}

func TestCurrentRound(t *testing.T) {
	t.Parallel()
	g := graphWithPlayers("u1")
	assert.Nil(t, g.CurrentRound())

	g.Rounds = []*Round{{Number: 1, Stage: StageEnded}, {Number: 2, Stage: StageCollecting}}
	require.NotNil(t, g.CurrentRound())
	assert.Equal(t, 2, g.CurrentRound().Number)
}

func TestPlayerLookups(t *testing.T) {
	t.Parallel()
	g := graphWithPlayers("u1", "u2")

	require.NotNil(t, g.PlayerByUID("u2"))
	assert.Equal(t, int64(2), g.PlayerByUID("u2").ID)
	assert.Nil(t, g.PlayerByUID("nope"))

	require.NotNil(t, g.PlayerByID(1))
	assert.Equal(t, "u1", g.PlayerByID(1).UserUID)
	assert.Nil(t, g.PlayerByID(99))

	assert.True(t, g.NicknameTaken("nick-u1"))
	assert.False(t, g.NicknameTaken("fresh"))
}

func TestRoomActive(t *testing.T) {
	t.Parallel()

	assert.True(t, (&Room{Status: RoomWaiting}).Active())
	assert.True(t, (&Room{Status: RoomPlaying}).Active())
	assert.False(t, (&Room{Status: RoomFinished}).Active())
	assert.False(t, (&Room{Status: RoomAbandoned}).Active())
}
