package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSyncer struct {
	mu      sync.Mutex
	calls   int
	err     error
	block   chan struct{}
	started chan struct{}
}

func (f *fakeSyncer) SyncRecent(ctx context.Context) (map[string]int, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return map[string]int{"csi500": 3}, f.err
}

func (f *fakeSyncer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRegisterRejectsInvalidSchedule(t *testing.T) {
	s := NewScheduler(&fakeSyncer{}, time.UTC, time.Second, zap.NewNop())
	assert.Error(t, s.Register("not a cron"))
	assert.Error(t, s.Register("0 30 16 * *"))
	assert.NoError(t, s.Register("0 30 16 * * MON-FRI"))
}

func TestRunSync(t *testing.T) {
	syncer := &fakeSyncer{}
	s := NewScheduler(syncer, time.UTC, time.Second, zap.NewNop())

	s.RunSync()
	syncer.err = errors.New("upstream down")
	s.RunSync()

	assert.Equal(t, 2, syncer.count())
}

func TestRunSyncSkipsOverlappingRuns(t *testing.T) {
	syncer := &fakeSyncer{block: make(chan struct{}), started: make(chan struct{}, 1)}
	s := NewScheduler(syncer, time.UTC, time.Second, zap.NewNop())

	done := make(chan struct{})
	go func() {
		s.RunSync()
		close(done)
	}()
	<-syncer.started

	s.RunSync()
	assert.Equal(t, 1, syncer.count())

	close(syncer.block)
	<-done
}

func TestScheduledRun(t *testing.T) {
	syncer := &fakeSyncer{started: make(chan struct{}, 4)}
	s := NewScheduler(syncer, time.UTC, time.Second, zap.NewNop())
	require.NoError(t, s.Register("* * * * * *"))

	s.Start()
	defer s.Stop()

	select {
	case <-syncer.started:
	case <-time.After(3 * time.Second):
		t.Fatal("sync was not triggered")
	}
}

func TestStopCancelsRunningSync(t *testing.T) {
	syncer := &fakeSyncer{block: make(chan struct{}), started: make(chan struct{}, 1)}
	s := NewScheduler(syncer, time.UTC, time.Minute, zap.NewNop())

	done := make(chan struct{})
	go func() {
		s.RunSync()
		close(done)
	}()
	<-syncer.started

	s.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("running sync was not cancelled")
	}
}
