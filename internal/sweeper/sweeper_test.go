package sweeper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtrack/internal/common/clock"
	stderrors "jobtrack/internal/common/errors"
	"jobtrack/internal/common/logger"
	"jobtrack/internal/models"
)

var sweepNow = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

type fakeFinder struct {
	mu     sync.Mutex
	stale  []models.Application
	cutoff time.Time
	err    error
	block  chan struct{}
}

func (f *fakeFinder) FindStaleApplied(_ context.Context, cutoff time.Time) ([]models.Application, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoff = cutoff
	return f.stale, f.err
}

type fakeChanger struct {
	mu      sync.Mutex
	calls   []string
	actors  []models.User
	failIDs map[string]bool
}

func (c *fakeChanger) ChangeStatus(_ context.Context, actor models.User, id string, requested models.Status) (*models.Application, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, id)
	c.actors = append(c.actors, actor)
	if c.failIDs[id] {
		return nil, stderrors.NewPersistenceError(assertErr{})
	}
	return &models.Application{ID: id, Status: requested}, nil
}

type assertErr struct{}

func (assertErr) Error() string { return "update failed" }

func staleApp(id string) models.Application {
	return models.Application{ID: id, Status: models.StatusApplied, AppliedAt: sweepNow.AddDate(0, 0, -10)}
}

func TestRunRejectsStaleApplications(t *testing.T) {
	finder := &fakeFinder{stale: []models.Application{staleApp("a"), staleApp("b"), staleApp("c")}}
	changer := &fakeChanger{}
	s := New(finder, changer, clock.Fixed{T: sweepNow}, 7, logger.NewTestLogger(t))

	result, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Result{Scanned: 3, Rejected: 3}, result)
	assert.Equal(t, sweepNow.AddDate(0, 0, -7), finder.cutoff)
	assert.Equal(t, []string{"a", "b", "c"}, changer.calls)
	for _, actor := range changer.actors {
		assert.Equal(t, systemActor, actor)
	}
}

func TestRunIsolatesPerItemFailures(t *testing.T) {
	finder := &fakeFinder{stale: []models.Application{staleApp("a"), staleApp("b"), staleApp("c")}}
	changer := &fakeChanger{failIDs: map[string]bool{"b": true}}
	s := New(finder, changer, clock.Fixed{T: sweepNow}, 7, logger.NewTestLogger(t))

	result, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Result{Scanned: 3, Rejected: 2, Failed: 1}, result)
	assert.Equal(t, []string{"a", "b", "c"}, changer.calls, "failure on b must not stop the sweep")
}

func TestRunAbortsWhenListingFails(t *testing.T) {
	finder := &fakeFinder{err: stderrors.NewPersistenceError(assertErr{})}
	changer := &fakeChanger{}
	s := New(finder, changer, clock.Fixed{T: sweepNow}, 7, logger.NewTestLogger(t))

	_, err := s.Run(context.Background())

	require.Error(t, err)
	assert.Empty(t, changer.calls)
}

func TestConcurrentRunSkips(t *testing.T) {
	block := make(chan struct{})
	finder := &fakeFinder{stale: []models.Application{staleApp("a")}, block: block}
	changer := &fakeChanger{}
	s := New(finder, changer, clock.Fixed{T: sweepNow}, 7, logger.NewTestLogger(t))

	done := make(chan Result, 1)
	go func() {
		r, _ := s.Run(context.Background())
		done <- r
	}()

	// Wait for the first run to be inside FindStaleApplied.
	time.Sleep(50 * time.Millisecond)
	skipped, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{}, skipped, "overlapping run must do no work")

	close(block)
	first := <-done
	assert.Equal(t, Result{Scanned: 1, Rejected: 1}, first)
}

func TestScheduleRejectsBadSpec(t *testing.T) {
	s := New(&fakeFinder{}, &fakeChanger{}, clock.System{}, 7, logger.NewTestLogger(t))

	_, err := s.Schedule("not a cron spec")

	assert.Error(t, err)
}
