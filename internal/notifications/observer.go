package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"mediaq/internal/config"
	"mediaq/internal/events"
	"mediaq/internal/logging"
)

// Observer turns queue events into notifications. It is meant to be
// registered with events.Hub.Subscribe, which delivers events one at a time.
type Observer struct {
	svc      Service
	logger   *slog.Logger
	queue    bool
	errors   bool
	describe func(jobID string) string
	now      func() time.Time

	mu      sync.Mutex
	started time.Time
}

// NewObserver builds an observer honoring the notify_queue and notify_errors
// switches. describe maps a job id to a display name and may be nil.
func NewObserver(cfg *config.Config, svc Service, describe func(jobID string) string, logger *slog.Logger) *Observer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Observer{
		svc:      svc,
		logger:   logging.NewComponentLogger(logger, "notifications"),
		queue:    cfg.Notifications.NotifyQueue,
		errors:   cfg.Notifications.NotifyErrors,
		describe: describe,
		now:      time.Now,
	}
}

// Handle processes one event.
func (o *Observer) Handle(evt events.Event) {
	switch evt.Type {
	case events.TypeWorking:
		o.mu.Lock()
		if o.started.IsZero() {
			o.started = o.now()
		}
		o.mu.Unlock()
	case events.TypeFailed:
		if !o.errors {
			return
		}
		o.publish(EventJobFailed, Payload{"job": o.name(evt.JobID), "error": evt.Error})
	case events.TypeCancelled:
		if !o.queue {
			return
		}
		o.publish(EventQueueStopped, Payload{"job": o.name(evt.JobID)})
	case events.TypeCompleted:
		o.mu.Lock()
		started := o.started
		o.started = time.Time{}
		o.mu.Unlock()
		if !o.queue || started.IsZero() {
			return
		}
		o.publish(EventQueueCompleted, Payload{
			"succeeded": evt.Completed,
			"failed":    evt.Failed,
			"duration":  o.now().Sub(started),
		})
	}
}

func (o *Observer) name(jobID string) string {
	if o.describe == nil {
		return ""
	}
	return o.describe(jobID)
}

func (o *Observer) publish(event Event, p Payload) {
	if err := o.svc.Publish(context.Background(), event, p); err != nil {
		if errors.Is(err, context.Canceled) {
			o.logger.Debug("notification cancelled", logging.String("event", string(event)))
			return
		}
		logging.WarnWithContext(o.logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check ntfy_topic and network access"),
			logging.String(logging.FieldImpact, "the notification was not delivered"),
		)
	}
}
