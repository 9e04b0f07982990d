package jobs

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zefirior/tastify-services/internal/roomsvc/service"
	"github.com/zefirior/tastify-services/internal/roomsvc/store"
)

const abandonReasonInactivity = "inactivity"

// RoomCleanupJob closes rooms nobody touched within the inactivity
// threshold. Closed rooms broadcast room_closed so lingering clients
// learn why.
type RoomCleanupJob struct {
	svc       *service.RoomService
	repo      *store.Repository
	threshold time.Duration
	interval  time.Duration
}

func NewRoomCleanupJob(svc *service.RoomService, repo *store.Repository, threshold, interval time.Duration) *RoomCleanupJob {
	return &RoomCleanupJob{svc: svc, repo: repo, threshold: threshold, interval: interval}
}

func (j *RoomCleanupJob) Name() string            { return "RoomCleanupJob" }
func (j *RoomCleanupJob) LockID() int64           { return LockRoomCleanup }
func (j *RoomCleanupJob) Interval() time.Duration { return j.interval }

func (j *RoomCleanupJob) Execute(ctx context.Context) error {
	now := time.Now().UTC()

	codes, err := j.repo.Rooms.ListStaleCodes(ctx, now.Add(-j.threshold))
	if err != nil {
		return err
	}

	for _, code := range codes {
		if err := j.svc.AbandonRoom(ctx, code, abandonReasonInactivity, now); err != nil {
			log.Errorf("RoomCleanupJob: room %s: %v", code, err)
		}
	}
	return nil
}
