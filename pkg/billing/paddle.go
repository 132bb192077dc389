package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds configuration for the Paddle billing provider.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY,required"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

// PaddleProvider implements Provider for Paddle.
type PaddleProvider struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
}

// NewPaddleProvider creates a Paddle billing provider.
func NewPaddleProvider(config PaddleConfig) (*PaddleProvider, error) {
	if config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if config.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	var client *paddle.SDK
	var err error

	switch strings.ToLower(config.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(config.APIKey)
	case "production", "":
		client, err = paddle.New(config.APIKey)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidProviderEnvironment, config.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("create paddle client: %w", err)
	}

	return &PaddleProvider{
		client:   client,
		verifier: paddle.NewWebhookVerifier(config.WebhookSecret),
	}, nil
}

// CreateCheckoutLink creates a hosted checkout session in Paddle.
// The customer ID travels through transaction custom data so the webhook can
// attribute the purchase back to our user.
func (p *PaddleProvider) CreateCheckoutLink(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error) {
	if req.PriceID == "" {
		return nil, ErrMissingPriceID
	}
	if req.CustomerID == "" {
		return nil, ErrMissingCustomerID
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.PriceID,
		Quantity: 1,
	})

	transactionReq := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			"customer_id": req.CustomerID,
		},
	}
	if req.Email != "" {
		transactionReq.CustomData["email"] = req.Email
	}
	if req.SuccessURL != "" {
		transactionReq.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(req.SuccessURL),
		}
	}

	transaction, err := p.client.TransactionsClient.CreateTransaction(ctx, transactionReq)
	if err != nil {
		return nil, fmt.Errorf("create paddle transaction: %w", err)
	}

	if transaction.Checkout == nil || transaction.Checkout.URL == nil {
		return nil, ErrNoCheckoutURL
	}

	return &CheckoutLink{
		URL:       *transaction.Checkout.URL,
		SessionID: transaction.ID,
		ExpiresAt: time.Now().Add(24 * time.Hour), // Paddle checkout links expire in 24 hours
	}, nil
}

// GetCustomerPortalLink returns a link to Paddle's customer portal scoped to
// the given subscription.
func (p *PaddleProvider) GetCustomerPortalLink(ctx context.Context, sub *Subscription) (*PortalLink, error) {
	if sub == nil {
		return nil, ErrNilSubscription
	}
	if sub.ProviderSubID == "" {
		return nil, errors.New("subscription has no provider subscription ID")
	}

	portalSession, err := p.client.CustomerPortalSessionsClient.CreateCustomerPortalSession(ctx,
		&paddle.CreateCustomerPortalSessionRequest{
			CustomerID:      sub.UserID,
			SubscriptionIDs: []string{sub.ProviderSubID},
		})
	if err != nil {
		return nil, fmt.Errorf("create paddle customer portal session: %w", err)
	}

	link := &PortalLink{
		URL:       portalSession.URLs.General.Overview,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	for _, subURL := range portalSession.URLs.Subscriptions {
		if subURL.ID == sub.ProviderSubID {
			link.CancelURL = subURL.CancelSubscription
			link.UpdatePaymentURL = subURL.UpdateSubscriptionPaymentMethod
			break
		}
	}
	if link.URL == "" {
		return nil, ErrNoPortalURL
	}
	return link, nil
}

// ParseWebhook validates the Paddle-Signature header against the payload and
// normalizes the event for the webhook processor.
func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request for verification: %w", err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, fmt.Errorf("webhook verification: %w", err)
	}
	if !valid {
		return nil, ErrWebhookVerificationFailed
	}

	var paddleEvent struct {
		EventID   string         `json:"event_id"`
		EventType string         `json:"event_type"`
		Data      map[string]any `json:"data"`
	}
	if err := json.Unmarshal(payload, &paddleEvent); err != nil {
		return nil, fmt.Errorf("parse webhook payload: %w", err)
	}

	event := &WebhookEvent{
		EventID:       paddleEvent.EventID,
		Type:          mapPaddleEventType(paddleEvent.EventType),
		ProviderEvent: paddleEvent.EventType,
		Raw:           paddleEvent.Data,
	}

	if status, ok := paddleEvent.Data["status"].(string); ok {
		event.Status = status
	}
	if customData, ok := paddleEvent.Data["custom_data"].(map[string]any); ok {
		if customerID, ok := customData["customer_id"].(string); ok {
			event.CustomerID = customerID
		}
	}

	switch {
	case strings.HasPrefix(paddleEvent.EventType, "subscription."):
		if subID, ok := paddleEvent.Data["id"].(string); ok {
			event.SubscriptionID = subID
		}
		// Subscription items nest the price under "price".
		if items, ok := paddleEvent.Data["items"].([]any); ok && len(items) > 0 {
			if item, ok := items[0].(map[string]any); ok {
				if price, ok := item["price"].(map[string]any); ok {
					if priceID, ok := price["id"].(string); ok {
						event.PriceID = priceID
					}
				}
			}
		}

	case strings.HasPrefix(paddleEvent.EventType, "transaction."):
		// Transactions carry the subscription ID when one exists; fall back
		// to the transaction ID for one-off purchases.
		if txnID, ok := paddleEvent.Data["id"].(string); ok {
			event.SubscriptionID = txnID
		}
		if subID, ok := paddleEvent.Data["subscription_id"].(string); ok {
			event.SubscriptionID = subID
		}
		if items, ok := paddleEvent.Data["items"].([]any); ok && len(items) > 0 {
			if item, ok := items[0].(map[string]any); ok {
				if priceID, ok := item["price_id"].(string); ok {
					event.PriceID = priceID
				}
			}
		}
	}

	return event, nil
}

func mapPaddleEventType(paddleEvent string) EventType {
	switch paddleEvent {
	case "transaction.completed", "subscription.created":
		return EventSubscriptionCreated
	case "subscription.updated":
		return EventSubscriptionUpdated
	case "subscription.canceled":
		return EventSubscriptionCancelled
	case "transaction.payment_succeeded":
		return EventPaymentSucceeded
	case "transaction.payment_failed":
		return EventPaymentFailed
	default:
		return EventType(paddleEvent)
	}
}
