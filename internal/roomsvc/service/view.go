package service

import (
	"context"
	"sort"
	"time"

	"github.com/zefirior/tastify-services/internal/comm"
	"github.com/zefirior/tastify-services/internal/roomsvc/models"
)

type PlayerView struct {
	UserUID  string      `json:"user_uid"`
	Nickname string      `json:"nickname"`
	Role     models.Role `json:"role"`
	Score    int         `json:"score"`
}

type SuggesterView struct {
	UserUID  string `json:"user_uid"`
	Nickname string `json:"nickname"`
}

type RoundView struct {
	Number     int                     `json:"number"`
	Stage      models.RoundStage       `json:"stage"`
	TimeLeft   int                     `json:"timeleft"` // seconds
	Suggester  *SuggesterView          `json:"suggester,omitempty"`
	Suggestion *comm.SuggestionPayload `json:"suggestion,omitempty"`
	Submitted  []string                `json:"submitted"` // user uids, content withheld

	// Revealed only once the round ended.
	Target      *int                         `json:"target,omitempty"`
	Submissions map[string]comm.GuessPayload `json:"submissions,omitempty"`
	Results     map[string]int               `json:"results,omitempty"`
}

type RoomView struct {
	Code         string            `json:"code"`
	Status       models.RoomStatus `json:"status"`
	GameType     string            `json:"game_type"`
	Role         models.Role       `json:"role,omitempty"` // requester's role, empty for spectators
	TotalRounds  int               `json:"total_rounds"`
	Players      []PlayerView      `json:"players"`
	CurrentRound *RoundView        `json:"current_round,omitempty"`
	Totals       map[string]int    `json:"totals"` // user uid -> cumulative points
}

// GetRoomView loads the room and projects it for one requester. No lock:
// a read sees whichever committed state is current.
func (s *RoomService) GetRoomView(ctx context.Context, code, userUID string) (*RoomView, error) {
	g, err := s.repo.LoadGraph(ctx, code)
	if err != nil {
		return nil, err
	}
	return BuildRoomView(g, userUID, s.cfg.RoundDuration, time.Now().UTC()), nil
}

// BuildRoomView is the pure projection. Round internals that would leak
// the answer (target, raw submissions, results) stay hidden while the
// round is open.
func BuildRoomView(g *models.RoomGraph, userUID string, roundDuration time.Duration, now time.Time) *RoomView {
	view := &RoomView{
		Code:        g.Room.Code,
		Status:      g.Room.Status,
		GameType:    g.Room.GameType,
		TotalRounds: g.Room.TotalRounds,
		Totals:      map[string]int{},
	}

	for _, p := range g.Players {
		view.Players = append(view.Players, PlayerView{
			UserUID:  p.UserUID,
			Nickname: p.Nickname,
			Role:     p.Role,
			Score:    p.Score,
		})
		if p.UserUID == userUID {
			view.Role = p.Role
		}
	}

	for _, r := range g.Rounds {
		for uid, points := range r.Results {
			view.Totals[uid] += points
		}
	}

	if round := g.CurrentRound(); round != nil {
		view.CurrentRound = buildRoundView(g, round, roundDuration, now)
	}

	return view
}

func buildRoundView(g *models.RoomGraph, round *models.Round, roundDuration time.Duration, now time.Time) *RoundView {
	rv := &RoundView{
		Number:     round.Number,
		Stage:      round.Stage,
		Suggestion: round.Suggestion,
		Submitted:  make([]string, 0, len(round.Submissions)),
	}

	if suggester := g.Suggester(round); suggester != nil {
		rv.Suggester = &SuggesterView{UserUID: suggester.UserUID, Nickname: suggester.Nickname}
	}

	for uid := range round.Submissions {
		rv.Submitted = append(rv.Submitted, uid)
	}
	sort.Strings(rv.Submitted)

	if round.Stage == models.StageEnded {
		if round.Target.Valid {
			t := int(round.Target.Int64)
			rv.Target = &t
		}
		rv.Submissions = round.Submissions
		rv.Results = round.Results
		return rv
	}

	// The time budget runs from round start whatever the open stage, a
	// suggester is on the clock too.
	left := roundDuration - now.Sub(round.StartedAt)
	if left > 0 {
		rv.TimeLeft = int(left / time.Second)
	}

	return rv
}
