// Package queue is the durable background work queue. Tasks are JSON
// envelopes on a Redis list; consumers own retry and backoff independently
// of the request path that enqueued them. A task in flight is parked on a
// processing list, and a task awaiting retry sits in a delayed set, so a
// crash or shutdown at any point leaves it recoverable from Redis.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"jobtrack/internal/common/config"
	"jobtrack/internal/common/logger"
	"jobtrack/internal/common/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Task is the queue envelope.
type Task struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	Attempt    int             `json:"attempt"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
}

// Handler executes one task kind. A nil return acknowledges the task; an
// error triggers the retry policy.
type Handler func(ctx context.Context, payload json.RawMessage) error

// AlertFunc is invoked when a task exhausts its attempts and is dead-lettered.
type AlertFunc func(ctx context.Context, task Task, err error)

// Queue is a Redis-list-backed task queue with bounded retries and fixed
// backoff. Retries wait in a sorted set scored by their ready time and are
// promoted back onto the main list when due.
type Queue struct {
	redis         *redis.Client
	key           string
	processingKey string
	delayedKey    string
	deadKey       string
	maxAttempts   int
	backoff       time.Duration
	handlers      map[string]Handler
	alert         AlertFunc
	logger        logger.Logger
	wg            sync.WaitGroup
}

func New(rdb *redis.Client, cfg config.QueueConfig, log logger.Logger) *Queue {
	return &Queue{
		redis:         rdb,
		key:           cfg.Key,
		processingKey: cfg.Key + ":processing",
		delayedKey:    cfg.Key + ":delayed",
		deadKey:       cfg.DeadKey,
		maxAttempts:   cfg.MaxAttempts,
		backoff:       time.Duration(cfg.Backoff) * time.Second,
		handlers:      make(map[string]Handler),
		logger:        log.WithFields(map[string]interface{}{"component": "queue"}),
	}
}

// Register binds a handler to a task kind. Wiring happens once at startup.
func (q *Queue) Register(kind string, h Handler) {
	q.handlers[kind] = h
}

// SetAlertFunc installs the dead-letter alert hook.
func (q *Queue) SetAlertFunc(f AlertFunc) {
	q.alert = f
}

// Enqueue pushes a task. Callers must enqueue only after their own
// persistence writes have committed.
func (q *Queue) Enqueue(ctx context.Context, kind string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload for %s: %w", kind, err)
	}

	task := Task{
		ID:         uuid.New().String(),
		Kind:       kind,
		Payload:    data,
		Attempt:    0,
		EnqueuedAt: time.Now().UTC(),
	}

	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task %s: %w", kind, err)
	}

	if err := q.redis.LPush(ctx, q.key, raw).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", kind, err)
	}

	q.logger.Debug("task enqueued", map[string]interface{}{
		"taskId": task.ID,
		"kind":   kind,
	})
	return nil
}

// Start requeues tasks orphaned by a previous run, then launches consumer
// goroutines and the retry promoter. They exit when ctx is cancelled; call
// Wait to drain them.
func (q *Queue) Start(ctx context.Context, consumers int) {
	q.recoverOrphans(ctx)

	for i := 0; i < consumers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.consume(ctx)
		}()
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.promote(ctx)
	}()
}

// Wait blocks until all consumers have exited.
func (q *Queue) Wait() {
	q.wg.Wait()
}

// recoverOrphans moves tasks left on the processing list by a crashed run
// back onto the main list. Runs before any consumer of this process starts,
// so everything found here is an orphan.
func (q *Queue) recoverOrphans(ctx context.Context) {
	for {
		raw, err := q.redis.RPopLPush(ctx, q.processingKey, q.key).Result()
		if err == redis.Nil {
			return
		}
		if err != nil {
			q.logger.Error("orphan recovery failed", map[string]interface{}{"error": err})
			return
		}
		q.logger.Warn("requeued task orphaned by previous run", map[string]interface{}{"task": raw})
	}
}

func (q *Queue) consume(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		raw, err := q.redis.BRPopLPush(ctx, q.key, q.processingKey, time.Second).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			q.logger.Error("queue pop failed", map[string]interface{}{"error": err})
			continue
		}

		q.process(ctx, raw)
		q.ack(raw)
	}
}

// promote periodically moves due retries from the delayed set back onto the
// main list.
func (q *Queue) promote(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.promoteDue(ctx)
		}
	}
}

func (q *Queue) promoteDue(ctx context.Context) {
	due, err := q.redis.ZRangeByScore(ctx, q.delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(time.Now().UnixMilli(), 10),
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			q.logger.Error("delayed scan failed", map[string]interface{}{"error": err})
		}
		return
	}

	for _, raw := range due {
		// ZRem first: whichever promoter removes the member owns the push.
		removed, err := q.redis.ZRem(ctx, q.delayedKey, raw).Result()
		if err != nil || removed == 0 {
			continue
		}
		if err := q.redis.LPush(ctx, q.key, raw).Err(); err != nil {
			q.logger.Error("retry promotion failed", map[string]interface{}{"error": err})
		}
	}
}

// ProcessOne promotes due retries, then pops and processes at most one task.
// Used by tests to step the queue deterministically.
func (q *Queue) ProcessOne(ctx context.Context) (bool, error) {
	q.promoteDue(ctx)

	raw, err := q.redis.RPopLPush(ctx, q.key, q.processingKey).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	q.process(ctx, raw)
	q.ack(raw)
	return true, nil
}

func (q *Queue) process(ctx context.Context, raw string) {
	var task Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		q.logger.Error("discarding malformed task", map[string]interface{}{"error": err})
		return
	}

	handler, ok := q.handlers[task.Kind]
	if !ok {
		q.logger.Error("no handler for task kind", map[string]interface{}{
			"taskId": task.ID,
			"kind":   task.Kind,
		})
		q.deadLetter(ctx, task, fmt.Errorf("no handler registered for kind %q", task.Kind))
		return
	}

	start := time.Now()
	err := handler(ctx, task.Payload)
	metrics.QueueTaskDuration.WithLabelValues(task.Kind).Observe(time.Since(start).Seconds())

	if err == nil {
		metrics.QueueTasksProcessed.WithLabelValues(task.Kind, "ok").Inc()
		return
	}

	task.Attempt++
	if task.Attempt < q.maxAttempts {
		q.logger.Warn("task failed, scheduling retry", map[string]interface{}{
			"taskId":  task.ID,
			"kind":    task.Kind,
			"attempt": task.Attempt,
			"error":   err.Error(),
		})
		metrics.QueueTasksProcessed.WithLabelValues(task.Kind, "retried").Inc()
		q.parkForRetry(task)
		return
	}

	metrics.QueueTasksProcessed.WithLabelValues(task.Kind, "dead").Inc()
	q.deadLetter(ctx, task, err)
}

// ack removes a handled task from the processing list. Detached from the
// consumer's ctx so shutdown mid-handler still acknowledges.
func (q *Queue) ack(raw string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.redis.LRem(ctx, q.processingKey, 1, raw).Err(); err != nil {
		q.logger.Error("ack failed", map[string]interface{}{"error": err})
	}
}

// parkForRetry places the task in the delayed set, scored by the time it
// becomes due. The set survives process death, unlike an in-memory timer.
func (q *Queue) parkForRetry(task Task) {
	raw, err := json.Marshal(task)
	if err != nil {
		q.logger.Error("retry marshal failed", map[string]interface{}{"taskId": task.ID, "error": err})
		return
	}

	// Detached from the consumer's ctx: the retry must survive the request
	// that spawned it.
	parkCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	readyAt := time.Now().Add(q.backoff)
	err = q.redis.ZAdd(parkCtx, q.delayedKey, redis.Z{
		Score:  float64(readyAt.UnixMilli()),
		Member: raw,
	}).Err()
	if err != nil {
		q.logger.Error("retry park failed", map[string]interface{}{"taskId": task.ID, "error": err})
	}
}

func (q *Queue) deadLetter(ctx context.Context, task Task, cause error) {
	q.logger.Error("task exhausted retries, dead-lettering", map[string]interface{}{
		"taskId":   task.ID,
		"kind":     task.Kind,
		"attempts": task.Attempt,
		"error":    cause.Error(),
	})

	if raw, err := json.Marshal(task); err == nil {
		// Detached push: the dead letter must land even during shutdown.
		pushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := q.redis.LPush(pushCtx, q.deadKey, raw).Err(); err != nil {
			q.logger.Error("dead-letter push failed", map[string]interface{}{"taskId": task.ID, "error": err})
		}
	}

	if q.alert != nil {
		q.alert(ctx, task, cause)
	}
}
