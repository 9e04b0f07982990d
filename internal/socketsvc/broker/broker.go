package broker

import (
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/zefirior/tastify-services/internal/comm"
)

type Broker struct {
	Conn           *nats.Conn
	GetConnection  func(string) (*websocket.Conn, bool)
	GetRoomSockets func(string) ([]string, bool)
	Disconnect     func(string)
}

func NewBroker(conn *nats.Conn, fncGetConnection func(string) (*websocket.Conn, bool), fncGetRoomSockets func(string) ([]string, bool), fncDisconnect func(string)) *Broker {
	return &Broker{
		Conn:           conn,
		GetConnection:  fncGetConnection,
		GetRoomSockets: fncGetRoomSockets,
		Disconnect:     fncDisconnect,
	}
}

// consume room events from the room service
func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessages)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (b *Broker) handleMessages(msgNats *nats.Msg) {
	event := &comm.RoomEvent{}
	if err := json.Unmarshal(msgNats.Data, event); err != nil {
		log.Errorf("error unmarshaling room event: %v", err)
		return
	}

	b.fanOut(event)
}

// fanOut sends the event to every socket registered for the room. A
// failed write means the peer is gone, the socket is dropped so the
// registry does not accumulate dead connections.
func (b *Broker) fanOut(event *comm.RoomEvent) {
	sockets, ok := b.GetRoomSockets(event.RoomCode)
	if !ok {
		return
	}

	for _, socketId := range sockets {
		conn, ok := b.GetConnection(socketId)
		if !ok {
			b.Disconnect(socketId)
			continue
		}
		if err := conn.WriteJSON(event); err != nil {
			log.Errorf("error writing %s to socket %s: %v", event.Event, socketId, err)
			conn.Close()
			b.Disconnect(socketId)
		}
	}
}
