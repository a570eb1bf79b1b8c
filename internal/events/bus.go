// Package events carries status-change facts from the workflow to its
// subscribers.
package events

import (
	"context"

	"jobtrack/internal/common/logger"
	"jobtrack/internal/models"
)

// Subscriber consumes StatusChanged facts. Subscriber failures are the
// subscriber's problem; the fact describes an already-committed change.
type Subscriber interface {
	OnStatusChanged(ctx context.Context, fact models.StatusChanged)
}

// Bus fans StatusChanged facts out to its subscribers.
type Bus struct {
	subscribers []Subscriber
	logger      logger.Logger
}

func NewBus(log logger.Logger) *Bus {
	return &Bus{logger: log.WithFields(map[string]interface{}{"component": "event-bus"})}
}

// Subscribe registers a subscriber. Not safe to call after Publish is in use;
// wiring happens once at startup.
func (b *Bus) Subscribe(s Subscriber) {
	b.subscribers = append(b.subscribers, s)
}

// Publish delivers the fact to every subscriber.
func (b *Bus) Publish(ctx context.Context, fact models.StatusChanged) {
	b.logger.Debug("publishing status change", map[string]interface{}{
		"applicationId": fact.ApplicationID,
		"oldStatus":     fact.OldStatus,
		"newStatus":     fact.NewStatus,
	})
	for _, s := range b.subscribers {
		s.OnStatusChanged(ctx, fact)
	}
}
