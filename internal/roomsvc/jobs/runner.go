package jobs

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/zefirior/tastify-services/internal/roomsvc/store"
)

// Advisory lock ids, one per job type. Only one instance cluster-wide
// runs a given job type at a time.
const (
	LockRoundTimer   int64 = 1001
	LockRoomCleanup  int64 = 1002
	LockRoundAdvance int64 = 1003
)

// Job is one recurring scheduler check. Execute must be idempotent: when
// nothing is due it is a no-op, and the next tick is the retry for any
// failure.
type Job interface {
	Name() string
	LockID() int64
	Interval() time.Duration
	Execute(ctx context.Context) error
}

// Runner drives the jobs. Each iteration opens a transaction holding the
// job's try-lock for its duration, so concurrent instances skip the tick
// instead of doubling the work.
type Runner struct {
	pool *pgxpool.Pool
	jobs []Job
}

func NewRunner(pool *pgxpool.Pool, jobs ...Job) *Runner {
	return &Runner{pool: pool, jobs: jobs}
}

// Start launches one loop per job. The loops stop when ctx is cancelled;
// an in-flight iteration finishes its transaction either way.
func (r *Runner) Start(ctx context.Context) {
	for _, j := range r.jobs {
		go r.run(ctx, j)
	}
}

func (r *Runner) run(ctx context.Context, j Job) {
	log.Infof("starting %s with interval %s", j.Name(), j.Interval())

	ticker := time.NewTicker(j.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Infof("%s stopped", j.Name())
			return
		case <-ticker.C:
			r.runOnce(ctx, j)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context, j Job) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		log.Errorf("%s: begin tx: %v", j.Name(), err)
		return
	}
	defer tx.Rollback(ctx)

	acquired, err := store.TryJobLock(ctx, tx, j.LockID())
	if err != nil {
		log.Errorf("%s: %v", j.Name(), err)
		return
	}
	if !acquired {
		// Another instance runs this job type right now.
		return
	}

	if err := j.Execute(ctx); err != nil {
		log.Errorf("error in %s: %v", j.Name(), err)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		log.Errorf("%s: commit: %v", j.Name(), err)
	}
}
