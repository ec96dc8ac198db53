// Package scheduler runs a job on a fixed interval.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Job is one scheduled invocation. trigger is the tick time.
type Job func(ctx context.Context, trigger time.Time)

// Ticker runs a job immediately and then on every interval. A tick that
// arrives while the previous job is still running is skipped.
type Ticker struct {
	interval time.Duration
	job      Job
	logger   *logrus.Logger

	running atomic.Bool
	skipped atomic.Int64
	wg      sync.WaitGroup
}

// New returns a Ticker. interval must be positive.
func New(interval time.Duration, job Job, logger *logrus.Logger) *Ticker {
	return &Ticker{interval: interval, job: job, logger: logger}
}

// Run blocks until ctx is cancelled, then waits for an in-flight job.
func (t *Ticker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.fire(ctx, time.Now())
	for {
		select {
		case tick := <-ticker.C:
			t.fire(ctx, tick)
		case <-ctx.Done():
			t.wg.Wait()
			return nil
		}
	}
}

// Skipped reports how many ticks were dropped because a job was running.
func (t *Ticker) Skipped() int64 {
	return t.skipped.Load()
}

func (t *Ticker) fire(ctx context.Context, tick time.Time) {
	if !t.running.CompareAndSwap(false, true) {
		t.skipped.Add(1)
		if t.logger != nil {
			t.logger.WithField("tick", tick.Format(time.RFC3339)).Warn("Previous run still in progress, skipping tick")
		}
		return
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.running.Store(false)
		t.job(ctx, tick)
	}()
}
