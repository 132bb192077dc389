package billing

import (
	"context"
	"fmt"
	"log/slog"
)

// HandleWebhook verifies, deduplicates and applies one provider webhook
// delivery. Returned errors signal the provider to retry the delivery, so
// permanent conditions (unattributable events, event types we don't act on)
// are logged and swallowed instead.
//
// The event ID is marked as applied only after processing succeeds: a
// delivery that fails mid-way stays retryable, and only retries of an
// already-applied event are skipped.
func (m *Manager) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if m.provider == nil {
		return ErrCheckoutNotAvailable
	}

	event, err := m.provider.ParseWebhook(ctx, payload, signature)
	if err != nil {
		return err
	}

	log := m.log.With(
		slog.String("event_id", event.EventID),
		slog.String("event_type", string(event.Type)),
		slog.String("provider_event", event.ProviderEvent))

	if m.deduper != nil && event.EventID != "" {
		seen, err := m.deduper.Seen(ctx, event.EventID)
		if err != nil {
			return err
		}
		if seen {
			log.InfoContext(ctx, "skipping duplicate webhook delivery")
			return nil
		}
	}

	if err := m.applyWebhookEvent(ctx, log, event); err != nil {
		return err
	}

	if m.deduper != nil && event.EventID != "" {
		if err := m.deduper.MarkSeen(ctx, event.EventID); err != nil {
			// The event is applied; worst case the provider redelivers it.
			log.ErrorContext(ctx, "failed to record webhook event id", slog.Any("error", err))
		}
	}
	return nil
}

func (m *Manager) applyWebhookEvent(ctx context.Context, log *slog.Logger, event *WebhookEvent) error {
	switch event.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventPaymentSucceeded:
		if event.CustomerID == "" {
			log.WarnContext(ctx, "webhook has no customer attribution, ignoring")
			return nil
		}

		pc, ok := m.planByPrice[event.PriceID]
		if !ok {
			// A price missing from the mapping is a configuration gap;
			// retries will succeed once the mapping is deployed.
			return fmt.Errorf("%w: %s", ErrUnknownPriceID, event.PriceID)
		}

		if _, err := m.Upgrade(ctx, event.CustomerID, pc.plan, pc.cycle, event.SubscriptionID); err != nil {
			return err
		}
		log.InfoContext(ctx, "applied subscription purchase",
			slog.String("user_id", event.CustomerID), slog.String("plan_id", string(pc.plan)))
		return nil

	case EventSubscriptionCancelled:
		if event.CustomerID == "" {
			log.WarnContext(ctx, "webhook has no customer attribution, ignoring")
			return nil
		}
		if _, err := m.Cancel(ctx, event.CustomerID); err != nil {
			return err
		}
		log.InfoContext(ctx, "applied subscription cancellation",
			slog.String("user_id", event.CustomerID))
		return nil

	case EventPaymentFailed:
		// Paddle retries payment on its own schedule; the subscription stays
		// active until it expires or the provider cancels it.
		log.WarnContext(ctx, "payment failed", slog.String("user_id", event.CustomerID))
		return nil

	default:
		log.DebugContext(ctx, "ignoring webhook event type")
		return nil
	}
}
