// Package notification turns committed status changes into applicant emails.
// Dispatch is always asynchronous relative to the status-change commit and
// never reports failure back to the workflow that triggered it.
package notification

import (
	"context"
	"fmt"
	"time"

	"jobtrack/internal/common/logger"
	"jobtrack/internal/common/metrics"
	"jobtrack/internal/models"

	"github.com/redis/go-redis/v9"
)

// TaskKindEmail is the queue task kind for status emails.
const TaskKindEmail = "notification.email"

// EmailTask is the queue payload: enough to rebuild the email from durable
// state at delivery time.
type EmailTask struct {
	ApplicationID string        `json:"applicationId"`
	Status        models.Status `json:"status"`
}

// Enqueuer is the work-queue surface the dispatcher needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, kind string, payload interface{}) error
}

// Dispatcher subscribes to StatusChanged facts and enqueues email jobs for
// terminal statuses, at most once per (application, status) within the dedup
// window.
type Dispatcher struct {
	enqueuer Enqueuer
	redis    *redis.Client
	window   time.Duration
	logger   logger.Logger
}

func NewDispatcher(enq Enqueuer, rdb *redis.Client, window time.Duration, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		enqueuer: enq,
		redis:    rdb,
		window:   window,
		logger:   log.WithFields(map[string]interface{}{"component": "notification-dispatcher"}),
	}
}

func dedupKey(applicationID string, status models.Status) string {
	return fmt.Sprintf("jobtrack:notify:%s:%s", applicationID, status)
}

// OnStatusChanged implements events.Subscriber.
func (d *Dispatcher) OnStatusChanged(ctx context.Context, fact models.StatusChanged) {
	if !Notifiable(fact.NewStatus) {
		return
	}

	acquired, err := d.redis.SetNX(ctx, dedupKey(fact.ApplicationID, fact.NewStatus), 1, d.window).Result()
	if err != nil {
		// Lock state unknown: enqueue anyway. A possible duplicate beats a
		// silently dropped notification.
		d.logger.Error("dedup lock check failed", map[string]interface{}{
			"applicationId": fact.ApplicationID,
			"error":         err,
		})
	} else if !acquired {
		metrics.NotificationsDeduped.WithLabelValues(string(fact.NewStatus)).Inc()
		d.logger.Debug("duplicate notification suppressed", map[string]interface{}{
			"applicationId": fact.ApplicationID,
			"status":        fact.NewStatus,
		})
		return
	}

	task := EmailTask{ApplicationID: fact.ApplicationID, Status: fact.NewStatus}
	if err := d.enqueuer.Enqueue(ctx, TaskKindEmail, task); err != nil {
		d.logger.Error("failed to enqueue status email", map[string]interface{}{
			"applicationId": fact.ApplicationID,
			"status":        fact.NewStatus,
			"error":         err,
		})
		// No task exists, so the dedup key must not suppress a redelivery
		// within the window.
		if delErr := d.redis.Del(ctx, dedupKey(fact.ApplicationID, fact.NewStatus)).Err(); delErr != nil {
			d.logger.Error("failed to release dedup key", map[string]interface{}{
				"applicationId": fact.ApplicationID,
				"status":        fact.NewStatus,
				"error":         delErr,
			})
		}
		return
	}

	metrics.NotificationsEnqueued.WithLabelValues(string(fact.NewStatus)).Inc()
	d.logger.Info("status email enqueued", map[string]interface{}{
		"applicationId": fact.ApplicationID,
		"oldStatus":     fact.OldStatus,
		"newStatus":     fact.NewStatus,
	})
}
