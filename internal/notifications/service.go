package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mediaq/internal/config"
)

const userAgent = "mediaq/0.1.0"

// Event names a notification.
type Event string

const (
	EventQueueStarted   Event = "queue_started"
	EventQueueCompleted Event = "queue_completed"
	EventQueueStopped   Event = "queue_stopped"
	EventJobFailed      Event = "job_failed"
	EventTest           Event = "test"
)

// Payload carries event fields. Keys are event specific.
type Payload map[string]any

// Service delivers notifications.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, p Payload) error {
	data, ok := format(event, p)
	if !ok {
		return nil
	}
	return n.send(ctx, data)
}

func format(event Event, p Payload) (payload, bool) {
	switch event {
	case EventQueueStarted:
		return payload{
			title:   "mediaq - Queue Started",
			message: fmt.Sprintf("Started processing %d jobs", intValue(p, "count")),
			tags:    []string{"mediaq", "queue", "started"},
		}, true
	case EventQueueCompleted:
		succeeded := intValue(p, "succeeded")
		failed := intValue(p, "failed")
		duration := durationText(p["duration"])
		if failed == 0 {
			return payload{
				title:   "mediaq - Queue Complete",
				message: fmt.Sprintf("Queue complete: %d jobs converted in %s", succeeded, duration),
				tags:    []string{"mediaq", "queue", "completed"},
			}, true
		}
		return payload{
			title:   "mediaq - Queue Complete (with errors)",
			message: fmt.Sprintf("Queue complete: %d succeeded, %d failed in %s", succeeded, failed, duration),
			tags:    []string{"mediaq", "queue", "completed"},
		}, true
	case EventQueueStopped:
		return payload{
			title:   "mediaq - Queue Stopped",
			message: fmt.Sprintf("Queue stopped while converting %s", stringValue(p, "job", "a job")),
			tags:    []string{"mediaq", "queue", "stopped"},
		}, true
	case EventJobFailed:
		var builder strings.Builder
		builder.WriteString("❌ Failed")
		if job := stringValue(p, "job", ""); job != "" {
			builder.WriteString(" to convert ")
			builder.WriteString(job)
		}
		builder.WriteString(": ")
		builder.WriteString(stringValue(p, "error", "unknown"))
		return payload{
			title:    "mediaq - Error",
			message:  builder.String(),
			tags:     []string{"mediaq", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return payload{
			title:    "mediaq - Test",
			message:  "🧪 Notification system test",
			tags:     []string{"mediaq", "test"},
			priority: "low",
		}, true
	default:
		return payload{}, false
	}
}

func intValue(p Payload, key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func stringValue(p Payload, key, fallback string) string {
	switch v := p[key].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	case error:
		if v != nil {
			return strings.TrimSpace(v.Error())
		}
	}
	return fallback
}

func durationText(value any) string {
	d, _ := value.(time.Duration)
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
