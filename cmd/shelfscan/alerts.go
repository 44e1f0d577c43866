package main

import (
	"context"
	"log/slog"
	"time"

	"shelfscan/internal/identification"
	"shelfscan/internal/logging"
	"shelfscan/internal/notifications"
	"shelfscan/internal/scanner"
	"shelfscan/internal/services"
)

// alerter forwards results that need a human to the notification service.
// Delivery failures are logged and never fail the command.
type alerter struct {
	svc    notifications.Service
	logger *slog.Logger
}

func newAlerter(svc notifications.Service, logger *slog.Logger) *alerter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &alerter{svc: svc, logger: logger}
}

func (a *alerter) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if a == nil || a.svc == nil {
		return
	}
	if err := a.svc.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		logging.WarnWithContext(a.logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "alert was not delivered"),
		)
	}
}

func (a *alerter) resolution(ctx context.Context, res *identification.Resolution) {
	if res == nil || !res.NeedsReview {
		return
	}
	a.publish(ctx, notifications.EventReviewNeeded, notifications.Payload{
		"barcode":    res.Barcode,
		"title":      res.Candidate.Title,
		"reason":     res.ReviewReason,
		"confidence": res.Confidence,
	})
}

func (a *alerter) scanEvent(ctx context.Context, evt scanner.Event) {
	switch evt.Status {
	case scanner.StatusCompleted:
		res, _ := evt.Result.(*identification.Resolution)
		a.resolution(ctx, res)
	case scanner.StatusFailed:
		a.publish(ctx, notifications.EventResolveFailed, notifications.Payload{
			"barcode": evt.Barcode,
			"error":   services.UserMessage(evt.Err),
		})
	}
}

func (a *alerter) sessionSummary(ctx context.Context, results []*identification.Resolution, failed int, elapsed time.Duration) {
	review := 0
	for _, res := range results {
		if res.NeedsReview {
			review++
		}
	}
	a.publish(ctx, notifications.EventSessionCompleted, notifications.Payload{
		"resolved": len(results),
		"review":   review,
		"failed":   failed,
		"duration": elapsed,
	})
}
