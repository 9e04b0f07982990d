package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zefirior/tastify-services/internal/comm"
)

func joinMessage(t *testing.T, roomCode string) *comm.WSMessage {
	t.Helper()
	data, err := json.Marshal(comm.JoinRoomData{RoomCode: roomCode, UserUID: "u1"})
	require.NoError(t, err)
	return &comm.WSMessage{Type: "join", Data: data}
}

func TestJoinRegistersSocketForRoom(t *testing.T) {
	t.Parallel()
	s := NewWs()

	s.SocketMessage("sock-1", joinMessage(t, "abcd"))
	s.SocketMessage("sock-2", joinMessage(t, "ABCD"))
	s.SocketMessage("sock-3", joinMessage(t, "WXYZ"))

	// codes normalize to upper case
	sockets, ok := s.GetRoomSockets("ABCD")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"sock-1", "sock-2"}, sockets)

	_, ok = s.GetRoomSockets("NOPE")
	assert.False(t, ok)
}

func TestLeaveAndDisconnectUnregister(t *testing.T) {
	t.Parallel()
	s := NewWs()

	s.SocketMessage("sock-1", joinMessage(t, "ABCD"))
	s.SocketMessage("sock-2", joinMessage(t, "ABCD"))

	s.SocketMessage("sock-1", &comm.WSMessage{Type: "leave"})
	sockets, ok := s.GetRoomSockets("ABCD")
	require.True(t, ok)
	assert.Equal(t, []string{"sock-2"}, sockets)

	s.HandleDisconnect("sock-2")
	_, ok = s.GetRoomSockets("ABCD")
	assert.False(t, ok)
}

func TestMalformedJoinIgnored(t *testing.T) {
	t.Parallel()
	s := NewWs()

	s.SocketMessage("sock-1", &comm.WSMessage{Type: "join", Data: []byte("{broken")})
	s.SocketMessage("sock-2", &comm.WSMessage{Type: "join", Data: []byte(`{"user_uid":"u1"}`)})

	_, ok := s.GetRoomSockets("")
	assert.False(t, ok)
}
