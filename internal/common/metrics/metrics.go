package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SweepApplicationsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sweeper_applications_rejected_total",
			Help: "Total number of stale applications auto-rejected by the sweeper",
		},
	)

	SweepApplicationsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sweeper_applications_failed_total",
			Help: "Total number of stale applications the sweeper failed to reject",
		},
	)

	SweepRunsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sweeper_runs_skipped_total",
			Help: "Total number of sweep invocations skipped because a sweep was already running",
		},
	)

	NotificationsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_enqueued_total",
			Help: "Total number of status notifications enqueued",
		},
		[]string{"status"},
	)

	NotificationsDeduped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_deduped_total",
			Help: "Total number of status notifications suppressed by the dedup lock",
		},
		[]string{"status"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of status notification emails delivered",
		},
		[]string{"status"},
	)

	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Total number of status notification emails that exhausted retries",
		},
		[]string{"status"},
	)

	QueueTasksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_tasks_processed_total",
			Help: "Total number of background tasks processed by outcome",
		},
		[]string{"kind", "outcome"},
	)

	QueueTaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "queue_task_duration_seconds",
			Help: "Duration of background task execution in seconds",
		},
		[]string{"kind"},
	)
)
