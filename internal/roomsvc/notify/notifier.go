package notify

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/zefirior/tastify-services/internal/comm"
)

// Topic carries every room event; the socket service subscribes and fans
// out per room.
const Topic = "room.events"

// Notifier publishes room events to NATS. Delivery is fire-and-forget:
// the state change already committed, a lost event never blocks or
// rolls back the operation.
type Notifier struct {
	conn *nats.Conn
}

func NewNotifier(conn *nats.Conn) *Notifier {
	return &Notifier{conn: conn}
}

func (n *Notifier) Publish(roomCode, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Errorf("error marshaling %s data for room %s: %v", event, roomCode, err)
		return
	}

	ev := comm.RoomEvent{
		RoomCode: roomCode,
		Event:    event,
		Data:     payload,
	}

	raw, err := json.Marshal(ev)
	if err != nil {
		log.Errorf("error marshaling room event %s: %v", event, err)
		return
	}

	if err := n.conn.Publish(Topic, raw); err != nil {
		log.Errorf("error publishing %s for room %s: %v", event, roomCode, err)
	}
}
