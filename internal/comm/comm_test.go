package comm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomEventEnvelope(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(PlayerEventData{UserUID: "u1", Nickname: "ann"})
	require.NoError(t, err)

	raw, err := json.Marshal(RoomEvent{RoomCode: "ABCD", Event: EventPlayerJoined, Data: data})
	require.NoError(t, err)

	var decoded RoomEvent
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "ABCD", decoded.RoomCode)
	assert.Equal(t, EventPlayerJoined, decoded.Event)

	var payload PlayerEventData
	require.NoError(t, json.Unmarshal(decoded.Data, &payload))
	assert.Equal(t, "u1", payload.UserUID)
}
