package models

import "time"

type RoomStatus string

const (
	RoomWaiting   RoomStatus = "WAITING"
	RoomPlaying   RoomStatus = "PLAYING"
	RoomFinished  RoomStatus = "FINISHED"
	RoomAbandoned RoomStatus = "ABANDONED" // closed due to inactivity
)

type Room struct {
	ID          int64      `json:"id"`           // Primary key
	Code        string     `json:"code"`         // Short shared code, unique among rooms
	GameType    string     `json:"game_type"`    // Variant key, e.g. "guess_number"
	Status      RoomStatus `json:"status"`       // WAITING -> PLAYING -> FINISHED, or ABANDONED
	CreatedBy   string     `json:"created_by"`   // Stable user uid of the host
	TotalRounds int        `json:"total_rounds"` // Fixed at game start
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"` // Last activity, drives cleanup
}

// Active reports whether the room still accepts operations or scheduler work.
func (r *Room) Active() bool {
	return r.Status == RoomWaiting || r.Status == RoomPlaying
}
