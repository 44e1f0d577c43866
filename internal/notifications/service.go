package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shelfscan/internal/config"
)

const userAgent = "shelfscan/0.1.0"

// Event identifies the kind of alert being published.
type Event string

const (
	EventReviewNeeded     Event = "review_needed"
	EventResolveFailed    Event = "resolve_failed"
	EventSessionCompleted Event = "session_completed"
	EventTest             Event = "test"
)

// Payload carries event fields. Recognised keys depend on the event:
//
//	review_needed:     barcode, title, reason, confidence
//	resolve_failed:    barcode, error
//	session_completed: resolved, review, failed, duration
type Payload map[string]any

// Service publishes alerts.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a no-op when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventReviewNeeded:
		title := payload.text("title")
		if title == "" {
			title = "unknown title"
		}
		body := fmt.Sprintf("Needs review: %s (%s)", title, payload.text("barcode"))
		if confidence, ok := payload.number("confidence"); ok {
			body += fmt.Sprintf("\nConfidence: %.0f", confidence)
		}
		if reason := payload.text("reason"); reason != "" {
			body += "\nReason: " + reason
		}
		return message{
			title: "shelfscan - Review Needed",
			body:  body,
			tags:  []string{"shelfscan", "review"},
		}, true
	case EventResolveFailed:
		errText := payload.text("error")
		if errText == "" {
			errText = "unknown"
		}
		return message{
			title:    "shelfscan - Lookup Failed",
			body:     fmt.Sprintf("Could not resolve %s: %s", payload.text("barcode"), errText),
			tags:     []string{"shelfscan", "error", "alert"},
			priority: "high",
		}, true
	case EventSessionCompleted:
		resolved, _ := payload.number("resolved")
		review, _ := payload.number("review")
		failed, _ := payload.number("failed")
		duration := payload.duration("duration")
		title := "shelfscan - Session Complete"
		if failed > 0 {
			title = "shelfscan - Session Complete (with errors)"
		}
		return message{
			title: title,
			body: fmt.Sprintf("Scanned %d titles in %s: %d need review, %d failed",
				int(resolved), duration, int(review), int(failed)),
			tags: []string{"shelfscan", "session", "completed"},
		}, true
	case EventTest:
		return message{
			title:    "shelfscan - Test",
			body:     "Notification system test",
			tags:     []string{"shelfscan", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (p Payload) text(key string) string {
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (p Payload) number(key string) (float64, bool) {
	switch v := p[key].(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

func (p Payload) duration(key string) string {
	d, _ := p[key].(time.Duration)
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
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
