package jobs

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zefirior/tastify-services/internal/roomsvc/service"
	"github.com/zefirior/tastify-services/internal/roomsvc/store"
)

// RoundAdvanceJob moves games forward once the inter-round delay elapsed,
// so a room never waits on a player pressing next.
type RoundAdvanceJob struct {
	svc      *service.RoomService
	repo     *store.Repository
	interval time.Duration
}

func NewRoundAdvanceJob(svc *service.RoomService, repo *store.Repository, interval time.Duration) *RoundAdvanceJob {
	return &RoundAdvanceJob{svc: svc, repo: repo, interval: interval}
}

func (j *RoundAdvanceJob) Name() string            { return "RoundAdvanceJob" }
func (j *RoundAdvanceJob) LockID() int64           { return LockRoundAdvance }
func (j *RoundAdvanceJob) Interval() time.Duration { return j.interval }

func (j *RoundAdvanceJob) Execute(ctx context.Context) error {
	codes, err := j.repo.Rooms.ListCodesReadyToAdvance(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, code := range codes {
		if err := j.svc.AutoAdvance(ctx, code, now); err != nil {
			log.Errorf("RoundAdvanceJob: room %s: %v", code, err)
		}
	}
	return nil
}
