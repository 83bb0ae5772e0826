// Package scheduler runs the periodic housekeeping of the planner.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"weekplan/backend/internal/logging"
)

// BoardEvicter drops week boards that have been idle for longer than idle.
type BoardEvicter interface {
	Evict(ctx context.Context, idle time.Duration) int
}

// Evictor periodically evicts idle week boards so abandoned gestures do not
// stay attached forever.
type Evictor struct {
	cron    *cron.Cron
	target  BoardEvicter
	idle    time.Duration
	log     logging.Logger
	entryID cron.EntryID
}

func NewEvictor(target BoardEvicter, schedule string, idle time.Duration, log logging.Logger) (*Evictor, error) {
	e := &Evictor{
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		target: target,
		idle:   idle,
		log:    log,
	}
	id, err := e.cron.AddFunc(schedule, e.RunOnce)
	if err != nil {
		return nil, fmt.Errorf("schedule board eviction %q: %w", schedule, err)
	}
	e.entryID = id
	return e, nil
}

// RunOnce performs a single eviction pass.
func (e *Evictor) RunOnce() {
	ctx := context.Background()
	n := e.target.Evict(ctx, e.idle)
	e.log.Debug(ctx, "board eviction pass", "evicted", n, "idle", e.idle.String())
}

func (e *Evictor) Start() {
	e.cron.Start()
}

// Stop halts the schedule and waits for a running pass to finish or ctx to
// expire.
func (e *Evictor) Stop(ctx context.Context) {
	done := e.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Next reports when the next pass is due.
func (e *Evictor) Next() time.Time {
	return e.cron.Entry(e.entryID).Next
}
