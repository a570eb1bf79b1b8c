// Package sweeper auto-rejects applications that have sat in applied status
// past the staleness cutoff.
package sweeper

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"jobtrack/internal/common/clock"
	"jobtrack/internal/common/logger"
	"jobtrack/internal/common/metrics"
	"jobtrack/internal/models"
)

// StaleFinder lists applications still in applied status at or before the
// cutoff.
type StaleFinder interface {
	FindStaleApplied(ctx context.Context, cutoff time.Time) ([]models.Application, error)
}

// StatusChanger moves one application to a new status. The sweeper goes
// through the same path as a manual rejection so every lifecycle rule and
// notification applies.
type StatusChanger interface {
	ChangeStatus(ctx context.Context, actor models.User, applicationID string, requested models.Status) (*models.Application, error)
}

// systemActor is the identity sweeps run under.
var systemActor = models.User{
	ID:   "system-sweeper",
	Name: "Stale Application Sweeper",
	Role: models.RoleHR,
}

// Result tallies one sweep.
type Result struct {
	Scanned  int
	Rejected int
	Failed   int
}

// Sweeper rejects stale applications on a schedule. Runs never overlap; an
// invocation that finds a sweep in progress returns immediately.
type Sweeper struct {
	finder    StaleFinder
	changer   StatusChanger
	clock     clock.Clock
	staleDays int
	running   atomic.Bool
	logger    logger.Logger
}

func New(finder StaleFinder, changer StatusChanger, clk clock.Clock, staleDays int, log logger.Logger) *Sweeper {
	return &Sweeper{
		finder:    finder,
		changer:   changer,
		clock:     clk,
		staleDays: staleDays,
		logger:    log.WithFields(map[string]interface{}{"component": "sweeper"}),
	}
}

// Run executes one sweep. A failure on one application is recorded and the
// sweep moves on; only a failure to list stale applications aborts the run.
func (s *Sweeper) Run(ctx context.Context) (Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		metrics.SweepRunsSkipped.Inc()
		s.logger.Warn("sweep already in progress, skipping", nil)
		return Result{}, nil
	}
	defer s.running.Store(false)

	cutoff := s.clock.Now().AddDate(0, 0, -s.staleDays)
	stale, err := s.finder.FindStaleApplied(ctx, cutoff)
	if err != nil {
		return Result{}, err
	}

	result := Result{Scanned: len(stale)}
	for _, app := range stale {
		if _, err := s.changer.ChangeStatus(ctx, systemActor, app.ID, models.StatusRejected); err != nil {
			result.Failed++
			metrics.SweepApplicationsFailed.Inc()
			s.logger.Error("failed to auto-reject stale application", map[string]interface{}{
				"applicationId": app.ID,
				"error":         err,
			})
			continue
		}
		result.Rejected++
		metrics.SweepApplicationsRejected.Inc()
	}

	s.logger.Info("sweep finished", map[string]interface{}{
		"cutoff":   cutoff,
		"scanned":  result.Scanned,
		"rejected": result.Rejected,
		"failed":   result.Failed,
	})
	return result, nil
}

// Schedule starts a cron that runs the sweep on the given spec. The returned
// cron must be stopped on shutdown.
func (s *Sweeper) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, err := s.Run(context.Background()); err != nil {
			s.logger.Error("scheduled sweep failed", map[string]interface{}{"error": err})
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
