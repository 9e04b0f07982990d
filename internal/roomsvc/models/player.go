package models

import "time"

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RolePlayer Role = "PLAYER"
)

type Player struct {
	ID        int64     `json:"id"`       // Room-scoped primary key
	RoomID    int64     `json:"room_id"`  // FK to rooms(id)
	UserUID   string    `json:"user_uid"` // Stable cross-room identity
	Nickname  string    `json:"nickname"` // Unique within the room
	Role      Role      `json:"role"`     // ADMIN is the host
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}
