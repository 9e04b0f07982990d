package models

import (
	"database/sql"
	"time"

	"github.com/zefirior/tastify-services/internal/comm"
)

type RoundStage string

const (
	StageSuggesting RoundStage = "SUGGESTING" // suggester picks the artist
	StageCollecting RoundStage = "COLLECTING" // everyone else submits
	StageEnded      RoundStage = "ENDED"
)

type Round struct {
	ID          int64                        `json:"id"`
	RoomID      int64                        `json:"room_id"`
	Number      int                          `json:"number"`       // 1-based, unique per room
	SuggesterID sql.NullInt64                `json:"suggester_id"` // null once the suggester left the room
	Stage       RoundStage                   `json:"stage"`
	Target      sql.NullInt64                `json:"target"`      // numeric variant only
	Suggestion  *comm.SuggestionPayload      `json:"suggestion"`  // suggestion variant only
	Submissions map[string]comm.GuessPayload `json:"submissions"` // user uid -> payload
	Results     map[string]int               `json:"results"`     // user uid -> points, write-once
	StartedAt   time.Time                    `json:"started_at"`
	FinishedAt  sql.NullTime                 `json:"finished_at"`
}

// Open reports whether the round still accepts submissions or timer work.
func (r *Round) Open() bool {
	return r.Stage != StageEnded
}

// HasSubmission reports whether the user already submitted this round.
func (r *Round) HasSubmission(userUID string) bool {
	_, ok := r.Submissions[userUID]
	return ok
}
