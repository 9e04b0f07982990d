package jobs

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zefirior/tastify-services/internal/roomsvc/service"
	"github.com/zefirior/tastify-services/internal/roomsvc/store"
)

// RoundTimerJob ends rounds whose time budget elapsed, and catches the
// quorum case for rooms that stopped receiving requests. The per-room
// decision happens inside the room lock, this job only scans candidates.
type RoundTimerJob struct {
	svc      *service.RoomService
	repo     *store.Repository
	interval time.Duration
}

func NewRoundTimerJob(svc *service.RoomService, repo *store.Repository, interval time.Duration) *RoundTimerJob {
	return &RoundTimerJob{svc: svc, repo: repo, interval: interval}
}

func (j *RoundTimerJob) Name() string            { return "RoundTimerJob" }
func (j *RoundTimerJob) LockID() int64           { return LockRoundTimer }
func (j *RoundTimerJob) Interval() time.Duration { return j.interval }

func (j *RoundTimerJob) Execute(ctx context.Context) error {
	codes, err := j.repo.Rooms.ListCodesWithOpenRounds(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, code := range codes {
		if err := j.svc.EndDueRound(ctx, code, now); err != nil {
			log.Errorf("RoundTimerJob: room %s: %v", code, err)
		}
	}
	return nil
}
