package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clauseguard/clauseguard/pkg/docstore"
)

// SubscriptionCollection is the document store collection holding
// subscription rows, active and historical.
const SubscriptionCollection = "subscriptions"

// Store persists subscription rows. Uniqueness of the active row per user is
// enforced by the backing store (a partial unique index on user_id where
// status is active), which is what makes Create safe under concurrent
// sign-ups for the same user.
type Store interface {
	// GetActive returns the user's active subscription.
	// Returns ErrSubscriptionNotFound if the user has none.
	GetActive(ctx context.Context, userID string) (*Subscription, error)

	// Create inserts a new subscription row.
	// Returns ErrDuplicateActiveSubscription when the user already has an
	// active row.
	Create(ctx context.Context, sub *Subscription) error

	// Cancel marks an existing row cancelled without creating a successor.
	Cancel(ctx context.Context, subID string, at time.Time) error

	// Replace atomically cancels the old row and inserts its successor.
	// Plan changes go through here so there is no window where the user has
	// zero or two active subscriptions.
	Replace(ctx context.Context, old *Subscription, next *Subscription, at time.Time) error

	// ListExpired returns active paid subscriptions whose term ended before
	// the given time. Free subscriptions (no end date) are never returned.
	ListExpired(ctx context.Context, before time.Time) ([]Subscription, error)
}

type store struct {
	docs docstore.Store
}

// NewStore creates a subscription Store backed by a generic document store.
func NewStore(docs docstore.Store) Store {
	if docs == nil {
		panic("billing: document store is required")
	}
	return &store{docs: docs}
}

func (s *store) GetActive(ctx context.Context, userID string) (*Subscription, error) {
	var subs []Subscription
	err := s.docs.Query(ctx, SubscriptionCollection, []docstore.Filter{
		docstore.Where("user_id", docstore.OpEqual, userID),
		docstore.Where("status", docstore.OpEqual, string(StatusActive)),
	}, &subs, docstore.WithLimit(1))
	if err != nil {
		return nil, fmt.Errorf("query active subscription for user %s: %w", userID, err)
	}
	if len(subs) == 0 {
		return nil, ErrSubscriptionNotFound
	}
	return &subs[0], nil
}

func (s *store) Create(ctx context.Context, sub *Subscription) error {
	if err := s.docs.Set(ctx, SubscriptionCollection, sub.ID, sub); err != nil {
		if errors.Is(err, docstore.ErrDuplicateKey) {
			return ErrDuplicateActiveSubscription
		}
		return fmt.Errorf("create subscription %s: %w", sub.ID, err)
	}
	return nil
}

func (s *store) Cancel(ctx context.Context, subID string, at time.Time) error {
	err := s.docs.Update(ctx, SubscriptionCollection, subID, cancelPatch(at))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrSubscriptionNotFound
		}
		return fmt.Errorf("cancel subscription %s: %w", subID, err)
	}
	return nil
}

func (s *store) Replace(ctx context.Context, old *Subscription, next *Subscription, at time.Time) error {
	ops := []docstore.BatchOp{
		docstore.BatchUpdate(SubscriptionCollection, old.ID, cancelPatch(at)),
		docstore.BatchSet(SubscriptionCollection, next.ID, next),
	}
	if err := s.docs.Batch(ctx, ops); err != nil {
		if errors.Is(err, docstore.ErrDuplicateKey) {
			return ErrDuplicateActiveSubscription
		}
		return fmt.Errorf("replace subscription %s with %s: %w", old.ID, next.ID, err)
	}
	return nil
}

func (s *store) ListExpired(ctx context.Context, before time.Time) ([]Subscription, error) {
	var subs []Subscription
	err := s.docs.Query(ctx, SubscriptionCollection, []docstore.Filter{
		docstore.Where("status", docstore.OpEqual, string(StatusActive)),
		docstore.Where("end_date", docstore.OpLessOrEqual, before),
	}, &subs, docstore.WithOrderBy("end_date", false))
	if err != nil {
		return nil, fmt.Errorf("list expired subscriptions: %w", err)
	}
	return subs, nil
}

func cancelPatch(at time.Time) map[string]any {
	return map[string]any{
		"status":       string(StatusCancelled),
		"cancelled_at": at,
		"updated_at":   at,
	}
}
