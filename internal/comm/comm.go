package comm

import (
	"encoding/json"
	"time"
)

// WSMessage is the envelope for every message on the websocket channel.
type WSMessage struct {
	Type     string          `json:"type"` // e.g. "join", "leave"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid"`
}

// RoomEvent is the envelope published on the room.events topic and fanned
// out to every socket registered for the room.
type RoomEvent struct {
	RoomCode string          `json:"room_code"`
	Event    string          `json:"event"`
	Data     json.RawMessage `json:"data"`
}

const (
	EventPlayerJoined        = "player_joined"
	EventPlayerLeft          = "player_left"
	EventGameStarted         = "game_started"
	EventRoundStarted        = "round_started"
	EventSuggestionSubmitted = "suggestion_submitted"
	EventGuessSubmitted      = "guess_submitted"
	EventRoundFinished       = "round_finished"
	EventGameFinished        = "game_finished"
	EventRoomClosed          = "room_closed"
)

// JoinRoomData is the first message a socket client sends to register
// itself for a room.
type JoinRoomData struct {
	RoomCode string `json:"room_code"`
	UserUID  string `json:"user_uid"`
}

// SuggestionPayload is the suggester's pick for a round.
type SuggestionPayload struct {
	ArtistID   string `json:"artist_id"`
	ArtistName string `json:"artist_name"`
}

// GuessPayload is a single player submission. Which field applies depends
// on the room's game variant; an empty payload is a valid skip in the
// track game. The variant's ValidateGuess checks the shape.
type GuessPayload struct {
	TrackID *string `json:"track_id,omitempty"`
	Guess   *int    `json:"guess,omitempty"`
}

type PlayerEventData struct {
	UserUID  string `json:"user_uid"`
	Nickname string `json:"nickname"`
}

type RoundStartedData struct {
	Number       int       `json:"number"`
	SuggesterUID string    `json:"suggester_uid"`
	StartedAt    time.Time `json:"started_at"`
}

type SuggestionSubmittedData struct {
	UserUID string            `json:"user_uid"`
	Artist  SuggestionPayload `json:"artist"`
}

type RoundFinishedData struct {
	Number  int            `json:"number"`
	Target  *int           `json:"target,omitempty"`
	Results map[string]int `json:"results"`
}

type Standing struct {
	UserUID  string `json:"user_uid"`
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
}

type GameFinishedData struct {
	Standings []Standing `json:"standings"`
}

type RoomClosedData struct {
	Reason string `json:"reason"`
}
