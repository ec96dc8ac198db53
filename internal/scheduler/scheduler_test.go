package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/content-curator/internal/logging"
)

func TestTicker_FirstRunImmediate(t *testing.T) {
	var runs atomic.Int32
	started := make(chan struct{}, 1)
	tk := New(time.Hour, func(context.Context, time.Time) {
		runs.Add(1)
		started <- struct{}{}
	}, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- tk.Run(ctx) }()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run immediately")
	}
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), runs.Load())
}

func TestTicker_SkipsOverlappingTicks(t *testing.T) {
	release := make(chan struct{})
	var runs atomic.Int32
	tk := New(10*time.Millisecond, func(ctx context.Context, _ time.Time) {
		runs.Add(1)
		select {
		case <-release:
		case <-ctx.Done():
		}
	}, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- tk.Run(ctx) }()

	require.Eventually(t, func() bool { return tk.Skipped() >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())

	close(release)
	cancel()
	require.NoError(t, <-done)
}

func TestTicker_WaitsForInFlightJob(t *testing.T) {
	var finished atomic.Bool
	started := make(chan struct{})
	tk := New(time.Hour, func(context.Context, time.Time) {
		close(started)
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
	}, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- tk.Run(ctx) }()

	<-started
	cancel()
	require.NoError(t, <-done)
	assert.True(t, finished.Load())
}
