package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zefirior/tastify-services/internal/comm"
	"github.com/zefirior/tastify-services/internal/roomsvc/config"
	"github.com/zefirior/tastify-services/internal/roomsvc/game"
	"github.com/zefirior/tastify-services/internal/roomsvc/models"
	"github.com/zefirior/tastify-services/internal/roomsvc/store"
)

// Notifier delivers room events to subscribed clients. Publishing happens
// only after the surrounding transaction committed.
type Notifier interface {
	Publish(roomCode, event string, data any)
}

// Repository is the transactional room access the state machine needs.
// Satisfied by store.Repository.
type Repository interface {
	WithRoomLock(ctx context.Context, code string, fn func(ctx context.Context, s *store.Stores, g *models.RoomGraph) error) error
	LoadGraph(ctx context.Context, code string) (*models.RoomGraph, error)
	CreateRoom(ctx context.Context, gameType, creatorUID, nickname string, codeLength int) (*models.RoomGraph, error)
}

// RoomService is the room state machine. Every mutating operation runs
// inside the repository's per-room advisory lock and re-validates its
// preconditions against the freshly loaded graph.
type RoomService struct {
	repo     Repository
	cfg      *config.Config
	games    *game.Registry
	notifier Notifier
}

func NewRoomService(repo Repository, cfg *config.Config, games *game.Registry, notifier Notifier) *RoomService {
	return &RoomService{repo: repo, cfg: cfg, games: games, notifier: notifier}
}

type event struct {
	name string
	data any
}

func (s *RoomService) publish(code string, events []event) {
	if s.notifier == nil {
		return
	}
	for _, e := range events {
		s.notifier.Publish(code, e.name, e.data)
	}
}

func (s *RoomService) variantFor(room *models.Room) (game.Variant, error) {
	v, ok := s.games.Get(room.GameType)
	if !ok {
		return nil, fmt.Errorf("unknown game type %q: %w", room.GameType, models.ErrInvalidState)
	}
	return v, nil
}

// CreateRoom makes a WAITING room and seats the creator as its host.
func (s *RoomService) CreateRoom(ctx context.Context, gameType, creatorUID, nickname string) (*models.RoomGraph, error) {
	if gameType == "" {
		gameType = s.games.DefaultType()
	}
	if _, ok := s.games.Get(gameType); !ok {
		return nil, fmt.Errorf("unknown game type %q: %w", gameType, models.ErrInvalidState)
	}

	g, err := s.repo.CreateRoom(ctx, gameType, creatorUID, nickname, s.cfg.RoomCodeLength)
	if err != nil {
		return nil, err
	}

	log.Infof("room %s created by %s (game %s)", g.Room.Code, creatorUID, gameType)
	return g, nil
}

// JoinRoom seats a new player while the room is still waiting.
func (s *RoomService) JoinRoom(ctx context.Context, code, nickname, userUID string) (*models.Player, error) {
	var joined *models.Player
	var events []event

	err := s.repo.WithRoomLock(ctx, code, func(ctx context.Context, st *store.Stores, g *models.RoomGraph) error {
		if err := requireStatus(g.Room, models.RoomWaiting); err != nil {
			return err
		}
		if g.NicknameTaken(nickname) {
			return fmt.Errorf("nickname %q already taken: %w", nickname, models.ErrConflict)
		}
		if g.PlayerByUID(userUID) != nil {
			return fmt.Errorf("user already joined this room: %w", models.ErrConflict)
		}

		p := &models.Player{
			RoomID:   g.Room.ID,
			UserUID:  userUID,
			Nickname: nickname,
			Role:     models.RolePlayer,
		}
		if err := st.Players.Insert(ctx, p); err != nil {
			return err
		}
		if err := st.Rooms.Touch(ctx, g.Room.ID); err != nil {
			return err
		}

		joined = p
		events = append(events, event{comm.EventPlayerJoined, comm.PlayerEventData{UserUID: userUID, Nickname: nickname}})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(code, events)
	return joined, nil
}

// LeaveRoom removes a player. When the host leaves and players remain,
// the first remaining player inherits the host role.
func (s *RoomService) LeaveRoom(ctx context.Context, code, userUID string) error {
	var events []event

	err := s.repo.WithRoomLock(ctx, code, func(ctx context.Context, st *store.Stores, g *models.RoomGraph) error {
		p := g.PlayerByUID(userUID)
		if p == nil {
			return fmt.Errorf("player is not in room %s: %w", code, models.ErrNotFound)
		}

		if err := st.Players.Delete(ctx, p.ID); err != nil {
			return err
		}

		if g.Room.CreatedBy == userUID {
			for _, next := range g.Players {
				if next.UserUID == userUID {
					continue
				}
				if err := st.Players.SetRole(ctx, next.ID, models.RoleAdmin); err != nil {
					return err
				}
				if err := st.Rooms.SetCreatedBy(ctx, g.Room.ID, next.UserUID); err != nil {
					return err
				}
				log.Infof("room %s host transferred to %s", code, next.UserUID)
				break
			}
		}

		if err := st.Rooms.Touch(ctx, g.Room.ID); err != nil {
			return err
		}

		events = append(events, event{comm.EventPlayerLeft, comm.PlayerEventData{UserUID: userUID, Nickname: p.Nickname}})
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(code, events)
	return nil
}

// StartGame moves the room to PLAYING and opens round one. Host only.
func (s *RoomService) StartGame(ctx context.Context, code, requesterUID string) error {
	var events []event

	err := s.repo.WithRoomLock(ctx, code, func(ctx context.Context, st *store.Stores, g *models.RoomGraph) error {
		if err := requireHost(g.Room, requesterUID); err != nil {
			return err
		}
		if err := requireStatus(g.Room, models.RoomWaiting); err != nil {
			return err
		}
		if counted := countedPlayers(g, s.cfg.HostPlays); counted < s.cfg.MinPlayers {
			return fmt.Errorf("need at least %d players to start, got %d: %w",
				s.cfg.MinPlayers, counted, models.ErrPreconditionFailed)
		}

		v, err := s.variantFor(g.Room)
		if err != nil {
			return err
		}

		g.Room.Status = models.RoomPlaying
		g.Room.TotalRounds = s.cfg.TotalRounds
		if g.Room.TotalRounds == 0 {
			g.Room.TotalRounds = len(g.Players)
		}
		if err := st.Rooms.Start(ctx, g.Room); err != nil {
			return err
		}

		events = append(events, event{comm.EventGameStarted, nil})
		return s.openRoundLocked(ctx, st, g, v, 1, &events)
	})
	if err != nil {
		return err
	}

	log.Infof("game started in room %s", code)
	s.publish(code, events)
	return nil
}

// SubmitSuggestion records the suggester's pick and opens collecting.
func (s *RoomService) SubmitSuggestion(ctx context.Context, code, requesterUID string, payload comm.SuggestionPayload) error {
	var events []event

	err := s.repo.WithRoomLock(ctx, code, func(ctx context.Context, st *store.Stores, g *models.RoomGraph) error {
		if err := requireStatus(g.Room, models.RoomPlaying); err != nil {
			return err
		}
		round := g.CurrentRound()
		if err := requireStage(round, models.StageSuggesting); err != nil {
			return err
		}
		suggester := g.Suggester(round)
		if suggester == nil || suggester.UserUID != requesterUID {
			return fmt.Errorf("only the suggester can submit the artist: %w", models.ErrForbidden)
		}
		if payload.ArtistID == "" {
			return fmt.Errorf("artist_id is required: %w", models.ErrInvalidState)
		}

		round.Suggestion = &payload
		round.Stage = models.StageCollecting
		if err := st.Rounds.SetSuggestion(ctx, round); err != nil {
			return err
		}
		if err := st.Rooms.Touch(ctx, g.Room.ID); err != nil {
			return err
		}

		events = append(events, event{comm.EventSuggestionSubmitted, comm.SuggestionSubmittedData{
			UserUID: requesterUID,
			Artist:  payload,
		}})
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(code, events)
	return nil
}

// SubmitGuess records one submission per player per round. Reaching the
// quorum ends the round synchronously in the same transaction.
func (s *RoomService) SubmitGuess(ctx context.Context, code, requesterUID string, payload comm.GuessPayload) error {
	var events []event

	err := s.repo.WithRoomLock(ctx, code, func(ctx context.Context, st *store.Stores, g *models.RoomGraph) error {
		if err := requireStatus(g.Room, models.RoomPlaying); err != nil {
			return err
		}
		round := g.CurrentRound()
		if err := requireStage(round, models.StageCollecting); err != nil {
			return err
		}
		p := g.PlayerByUID(requesterUID)
		if p == nil {
			return fmt.Errorf("player is not in room %s: %w", code, models.ErrNotFound)
		}

		v, err := s.variantFor(g.Room)
		if err != nil {
			return err
		}
		if err := v.CanGuess(g, round, p); err != nil {
			return err
		}
		if err := v.ValidateGuess(payload); err != nil {
			return err
		}
		if round.HasSubmission(requesterUID) {
			return fmt.Errorf("player already submitted this round: %w", models.ErrConflict)
		}

		round.Submissions[requesterUID] = payload
		if err := st.Rounds.SaveSubmissions(ctx, round); err != nil {
			return err
		}
		if err := st.Rooms.Touch(ctx, g.Room.ID); err != nil {
			return err
		}

		// Broadcast carries the identity only, never the guess content.
		events = append(events, event{comm.EventGuessSubmitted, comm.PlayerEventData{UserUID: requesterUID, Nickname: p.Nickname}})

		if len(round.Submissions) >= v.Quorum(g) {
			return s.endRoundLocked(ctx, st, g, v, &events)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(code, events)
	return nil
}

// AdvanceRound opens the next round, or finishes the game after the last
// one. The just-ended round's suggester may not call it, everyone else may.
func (s *RoomService) AdvanceRound(ctx context.Context, code, requesterUID string) error {
	var events []event

	err := s.repo.WithRoomLock(ctx, code, func(ctx context.Context, st *store.Stores, g *models.RoomGraph) error {
		if err := requireStatus(g.Room, models.RoomPlaying); err != nil {
			return err
		}
		round := g.CurrentRound()
		if err := requireStage(round, models.StageEnded); err != nil {
			return err
		}
		p := g.PlayerByUID(requesterUID)
		if p == nil {
			return fmt.Errorf("player is not in room %s: %w", code, models.ErrNotFound)
		}
		if round.SuggesterID.Valid && p.ID == round.SuggesterID.Int64 {
			return fmt.Errorf("the round's suggester cannot advance it: %w", models.ErrForbidden)
		}

		return s.advanceLocked(ctx, st, g, &events)
	})
	if err != nil {
		return err
	}

	s.publish(code, events)
	return nil
}

// EndDueRound is the scheduler path: end the current round when its time
// budget elapsed or the quorum is already in. A no-op when nothing is due.
func (s *RoomService) EndDueRound(ctx context.Context, code string, now time.Time) error {
	var events []event

	err := s.repo.WithRoomLock(ctx, code, func(ctx context.Context, st *store.Stores, g *models.RoomGraph) error {
		if g.Room.Status != models.RoomPlaying {
			return nil
		}
		round := g.CurrentRound()
		if round == nil || !round.Open() {
			return nil
		}

		v, err := s.variantFor(g.Room)
		if err != nil {
			return err
		}

		// Expiry applies to any open stage, a stalled suggester cannot
		// block the room. The quorum shortcut only makes sense while
		// collecting.
		expired := now.Sub(round.StartedAt) >= s.cfg.RoundDuration
		quorum := round.Stage == models.StageCollecting && len(round.Submissions) >= v.Quorum(g)
		if !expired && !quorum {
			return nil
		}

		log.Infof("ending round %d in room %s (expired=%t quorum=%t)", round.Number, code, expired, quorum)
		return s.endRoundLocked(ctx, st, g, v, &events)
	})
	if err != nil {
		return err
	}

	s.publish(code, events)
	return nil
}

// AutoAdvance is the scheduler path: once the inter-round delay elapsed
// after a finished round, move on without waiting for a player.
func (s *RoomService) AutoAdvance(ctx context.Context, code string, now time.Time) error {
	var events []event

	err := s.repo.WithRoomLock(ctx, code, func(ctx context.Context, st *store.Stores, g *models.RoomGraph) error {
		if g.Room.Status != models.RoomPlaying {
			return nil
		}
		round := g.CurrentRound()
		if round == nil || round.Stage != models.StageEnded || !round.FinishedAt.Valid {
			return nil
		}
		if now.Sub(round.FinishedAt.Time) < s.cfg.BetweenRounds {
			return nil
		}

		return s.advanceLocked(ctx, st, g, &events)
	})
	if err != nil {
		return err
	}

	s.publish(code, events)
	return nil
}

// AbandonRoom closes an inactive room. Re-checks staleness under the lock
// so a concurrent action that touched the room wins.
func (s *RoomService) AbandonRoom(ctx context.Context, code, reason string, now time.Time) error {
	var events []event

	err := s.repo.WithRoomLock(ctx, code, func(ctx context.Context, st *store.Stores, g *models.RoomGraph) error {
		if !g.Room.Active() {
			return nil
		}
		if now.Sub(g.Room.UpdatedAt) < s.cfg.InactivityLimit {
			return nil
		}

		log.Infof("closing inactive room %s (last activity %s)", code, g.Room.UpdatedAt)
		if err := st.Rooms.UpdateStatus(ctx, g.Room.ID, models.RoomAbandoned); err != nil {
			return err
		}

		events = append(events, event{comm.EventRoomClosed, comm.RoomClosedData{Reason: reason}})
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(code, events)
	return nil
}

// openRoundLocked inserts the round built by the variant and announces it.
func (s *RoomService) openRoundLocked(ctx context.Context, st *store.Stores, g *models.RoomGraph, v game.Variant, number int, events *[]event) error {
	round, err := v.NewRound(g, number)
	if err != nil {
		return err
	}
	if err := st.Rounds.Insert(ctx, round); err != nil {
		return err
	}
	g.Rounds = append(g.Rounds, round)

	suggester := g.Suggester(round)
	data := comm.RoundStartedData{Number: round.Number, StartedAt: round.StartedAt}
	if suggester != nil {
		data.SuggesterUID = suggester.UserUID
	}
	*events = append(*events, event{comm.EventRoundStarted, data})
	return nil
}

// endRoundLocked is the single place a round ends: terminal stage, finish
// timestamp, write-once results, cumulative score updates. Re-entry on an
// ended round is a no-op.
func (s *RoomService) endRoundLocked(ctx context.Context, st *store.Stores, g *models.RoomGraph, v game.Variant, events *[]event) error {
	round := g.CurrentRound()
	if round == nil || !round.Open() {
		return nil
	}

	results := v.Score(round, g)

	round.Stage = models.StageEnded
	round.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	round.Results = results
	if err := st.Rounds.Finish(ctx, round); err != nil {
		return err
	}

	for uid, points := range results {
		if points == 0 {
			continue
		}
		if err := st.Players.AddScore(ctx, g.Room.ID, uid, points); err != nil {
			return err
		}
		if p := g.PlayerByUID(uid); p != nil {
			p.Score += points
		}
	}

	if err := st.Rooms.Touch(ctx, g.Room.ID); err != nil {
		return err
	}

	var target *int
	if round.Target.Valid {
		t := int(round.Target.Int64)
		target = &t
	}
	*events = append(*events, event{comm.EventRoundFinished, comm.RoundFinishedData{
		Number:  round.Number,
		Target:  target,
		Results: results,
	}})
	return nil
}

// advanceLocked finishes the game after the last round, otherwise opens
// the next one.
func (s *RoomService) advanceLocked(ctx context.Context, st *store.Stores, g *models.RoomGraph, events *[]event) error {
	round := g.CurrentRound()

	if round.Number >= g.Room.TotalRounds {
		if err := st.Rooms.UpdateStatus(ctx, g.Room.ID, models.RoomFinished); err != nil {
			return err
		}
		log.Infof("game finished in room %s", g.Room.Code)
		*events = append(*events, event{comm.EventGameFinished, comm.GameFinishedData{
			Standings: buildStandings(g.Players),
		}})
		return nil
	}

	v, err := s.variantFor(g.Room)
	if err != nil {
		return err
	}
	if err := st.Rooms.Touch(ctx, g.Room.ID); err != nil {
		return err
	}
	return s.openRoundLocked(ctx, st, g, v, round.Number+1, events)
}
