package billing

import (
	"context"
	"time"
)

// Provider abstracts the payment processor. The provider hosts checkout and
// the customer portal, so no card data ever touches this service; the only
// inbound surface is signed webhooks.
type Provider interface {
	// CreateCheckoutLink creates a hosted checkout session for a price.
	CreateCheckoutLink(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error)

	// GetCustomerPortalLink returns a pre-authenticated link where the user
	// can manage payment methods and cancel.
	GetCustomerPortalLink(ctx context.Context, sub *Subscription) (*PortalLink, error)

	// ParseWebhook validates the signature and normalizes the event.
	// Must reject unsigned or tampered payloads.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error)
}

// CheckoutRequest contains the data needed to open a checkout session.
type CheckoutRequest struct {
	PriceID    string // provider's price identifier
	CustomerID string // our user ID, round-tripped through webhook custom data
	Email      string // optional billing email
	SuccessURL string // redirect after successful payment
}

// CheckoutLink is a hosted checkout session.
type CheckoutLink struct {
	URL       string    `json:"url"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PortalLink is a customer portal session.
type PortalLink struct {
	URL              string    `json:"url"`
	CancelURL        string    `json:"cancel_url,omitempty"`
	UpdatePaymentURL string    `json:"update_payment_url,omitempty"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// WebhookEvent is a billing event normalized across providers.
type WebhookEvent struct {
	EventID        string         // provider's unique event ID, used for dedup
	Type           EventType      // normalized event type
	ProviderEvent  string         // original provider event name
	SubscriptionID string         // provider's subscription ID
	CustomerID     string         // our user ID from checkout custom data
	Status         string         // provider's subscription status
	PriceID        string         // the price the customer paid for
	Raw            map[string]any // full event payload
}

// EventType is the normalized billing event kind. Provider implementations
// map their own event names onto these.
type EventType string

const (
	EventSubscriptionCreated   EventType = "subscription_created"
	EventSubscriptionUpdated   EventType = "subscription_updated"
	EventSubscriptionCancelled EventType = "subscription_cancelled"
	EventPaymentSucceeded      EventType = "payment_succeeded"
	EventPaymentFailed         EventType = "payment_failed"
)
