package ws

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/zefirior/tastify-services/internal/comm"
)

type Ws struct {
	connMap sync.Map // to keep track of socket connection with socketId
	roomMap sync.Map // to keep track of roomCode with socketId
}

func NewWs() *Ws {
	return &Ws{}
}

// handle socket message from web clients
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	switch message.Type {
	case "join":
		s.handleJoin(socketId, message)
	case "leave":
		s.roomMap.Delete(socketId)
	default:
		log.Warnf("unknown event received: %s", message.Type)
	}
}

func (s *Ws) handleJoin(socketId string, msg *comm.WSMessage) {
	var payload comm.JoinRoomData
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("malformed join payload from socket %s: %v", socketId, err)
		return
	}

	if payload.RoomCode == "" {
		log.Errorf("join payload from socket %s missing room_code", socketId)
		return
	}

	code := strings.ToUpper(payload.RoomCode)
	s.roomMap.Store(socketId, code)
	log.Infof("socket %s registered for room %s", socketId, code)
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) {
	s.connMap.Store(socketId, conn)
}

func (s *Ws) GetConnection(socketId string) (*websocket.Conn, bool) {
	conn, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return conn.(*websocket.Conn), true
}

func (s *Ws) GetRoomSockets(roomCode string) ([]string, bool) {
	var sockets []string
	found := false

	s.roomMap.Range(func(key, value interface{}) bool {
		if value.(string) == roomCode {
			sockets = append(sockets, key.(string))
			found = true
		}
		return true // continue iterating
	})

	return sockets, found
}

func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)
	s.roomMap.Delete(socketId)
}
