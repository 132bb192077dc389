package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/clauseguard/clauseguard/pkg/catalog"
)

// expireSweepConcurrency bounds parallel downgrades in one sweep pass.
const expireSweepConcurrency = 8

// Price maps a provider price to a plan and billing cycle. The mapping is
// deployment configuration: price IDs are created in the provider dashboard.
type Price struct {
	PriceID string
	PlanID  catalog.PlanID
	Cycle   Cycle
}

// Notifier delivers subscription lifecycle notifications. Failures are
// logged and never block the lifecycle transition itself.
type Notifier interface {
	SubscriptionUpgraded(ctx context.Context, userID string, sub Subscription) error
	SubscriptionExpired(ctx context.Context, userID string, expired Subscription) error
}

// Manager owns subscription lifecycle transitions: creating the initial free
// subscription, paid upgrades, cancellation back to free, and sweeping
// expired terms. All transitions funnel through Store.Replace so a user is
// never left without exactly one active subscription.
type Manager struct {
	catalog  *catalog.Catalog
	store    Store
	provider Provider
	prices   []Price
	deduper  EventDeduper
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time

	priceByPlan map[planCycle]string
	planByPrice map[string]planCycle
}

type planCycle struct {
	plan  catalog.PlanID
	cycle Cycle
}

// ManagerOption configures optional Manager settings.
type ManagerOption func(*Manager)

// WithProvider attaches a payment provider and its price mappings, enabling
// checkout, portal links and webhook processing.
func WithProvider(p Provider, prices []Price) ManagerOption {
	return func(m *Manager) {
		m.provider = p
		m.prices = prices
	}
}

// WithDeduper enables webhook event deduplication.
func WithDeduper(d EventDeduper) ManagerOption {
	return func(m *Manager) { m.deduper = d }
}

// WithNotifier enables lifecycle notifications.
func WithNotifier(n Notifier) ManagerOption {
	return func(m *Manager) { m.notifier = n }
}

// WithLogger sets the manager's logger.
func WithLogger(log *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithManagerClock overrides the time source for tests.
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a subscription lifecycle Manager.
// Panics on nil required dependencies to fail fast during initialization.
func NewManager(cat *catalog.Catalog, store Store, opts ...ManagerOption) *Manager {
	if cat == nil {
		panic("billing: catalog is required")
	}
	if store == nil {
		panic("billing: subscription store is required")
	}

	m := &Manager{
		catalog: cat,
		store:   store,
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.priceByPlan = make(map[planCycle]string, len(m.prices))
	m.planByPrice = make(map[string]planCycle, len(m.prices))
	for _, p := range m.prices {
		key := planCycle{plan: p.PlanID, cycle: p.Cycle}
		m.priceByPlan[key] = p.PriceID
		m.planByPrice[p.PriceID] = key
	}

	return m
}

// EnsureSubscription returns the user's active subscription, creating the
// free one on first contact. Safe under concurrent calls for the same user:
// the loser of the create race re-reads the winner's row.
func (m *Manager) EnsureSubscription(ctx context.Context, userID string) (*Subscription, error) {
	sub, err := m.store.GetActive(ctx, userID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, ErrSubscriptionNotFound) {
		return nil, err
	}

	free := m.newSubscription(userID, m.catalog.Default(), CycleMonthly, "")
	if err := m.store.Create(ctx, free); err != nil {
		if errors.Is(err, ErrDuplicateActiveSubscription) {
			return m.store.GetActive(ctx, userID)
		}
		return nil, err
	}

	m.log.InfoContext(ctx, "created initial free subscription",
		slog.String("user_id", userID), slog.String("subscription_id", free.ID))
	return free, nil
}

// Upgrade moves the user onto the given plan for the given cycle, cancelling
// the current subscription and starting a fresh term now. Switching to the
// free plan is a cancellation and goes through Cancel instead.
func (m *Manager) Upgrade(ctx context.Context, userID string, planID catalog.PlanID, cycle Cycle, providerSubID string) (*Subscription, error) {
	plan, ok := m.catalog.Get(planID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}
	if plan.IsFree() {
		return m.Cancel(ctx, userID)
	}
	if !cycle.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBillingCycle, cycle)
	}

	current, err := m.EnsureSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}

	next := m.newSubscription(userID, plan, cycle, providerSubID)
	if err := m.store.Replace(ctx, current, next, m.now()); err != nil {
		return nil, err
	}

	m.log.InfoContext(ctx, "subscription upgraded",
		slog.String("user_id", userID),
		slog.String("from_plan", string(current.PlanID)),
		slog.String("to_plan", string(planID)),
		slog.String("cycle", string(cycle)))

	// Receipt delivery must not fail the upgrade itself.
	if m.notifier != nil {
		if err := m.notifier.SubscriptionUpgraded(ctx, userID, *next); err != nil {
			m.log.ErrorContext(ctx, "failed to send upgrade receipt",
				slog.String("user_id", userID), slog.Any("error", err))
		}
	}
	return next, nil
}

// Cancel moves the user back to the free plan immediately. Cancelling a free
// subscription is a no-op.
func (m *Manager) Cancel(ctx context.Context, userID string) (*Subscription, error) {
	current, err := m.EnsureSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current.PlanID == m.catalog.Default().ID {
		return current, nil
	}

	free := m.newSubscription(userID, m.catalog.Default(), CycleMonthly, "")
	if err := m.store.Replace(ctx, current, free, m.now()); err != nil {
		return nil, err
	}

	m.log.InfoContext(ctx, "subscription cancelled",
		slog.String("user_id", userID), slog.String("was_plan", string(current.PlanID)))
	return free, nil
}

// PreviewChange computes the proration for moving the user to the given plan
// without changing anything.
func (m *Manager) PreviewChange(ctx context.Context, userID string, planID catalog.PlanID, cycle Cycle) (*Proration, error) {
	plan, ok := m.catalog.Get(planID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}

	current, err := m.EnsureSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	return CalculateProratedAmount(current, plan, cycle, m.now())
}

// Checkout opens a hosted checkout session for the given plan and cycle.
// The actual plan switch happens later, when the provider's webhook confirms
// payment.
func (m *Manager) Checkout(ctx context.Context, userID string, planID catalog.PlanID, cycle Cycle, email, successURL string) (*CheckoutLink, error) {
	if m.provider == nil {
		return nil, ErrCheckoutNotAvailable
	}
	plan, ok := m.catalog.Get(planID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}
	if plan.IsFree() {
		return nil, fmt.Errorf("%w: plan %s has no checkout", ErrFreeTargetPlan, planID)
	}

	priceID, ok := m.priceByPlan[planCycle{plan: planID, cycle: cycle}]
	if !ok {
		return nil, fmt.Errorf("%w: plan %s cycle %s", ErrUnmappedPlanCycle, planID, cycle)
	}

	// Make sure the user exists in our records before they pay.
	if _, err := m.EnsureSubscription(ctx, userID); err != nil {
		return nil, err
	}

	return m.provider.CreateCheckoutLink(ctx, CheckoutRequest{
		PriceID:    priceID,
		CustomerID: userID,
		Email:      email,
		SuccessURL: successURL,
	})
}

// PortalLink returns a customer portal session for the user's active paid
// subscription.
func (m *Manager) PortalLink(ctx context.Context, userID string) (*PortalLink, error) {
	if m.provider == nil {
		return nil, ErrCheckoutNotAvailable
	}
	current, err := m.store.GetActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	return m.provider.GetCustomerPortalLink(ctx, current)
}

// ExpireSweep downgrades every subscription whose paid term has ended to the
// free plan and returns the subscriptions it expired. Meant to run
// periodically; a run that finds nothing is cheap.
func (m *Manager) ExpireSweep(ctx context.Context) ([]Subscription, error) {
	now := m.now()
	expired, err := m.store.ListExpired(ctx, now)
	if err != nil {
		return nil, err
	}
	if len(expired) == 0 {
		return nil, nil
	}

	var (
		mu   sync.Mutex
		done []Subscription
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(expireSweepConcurrency)
	for _, sub := range expired {
		g.Go(func() error {
			free := m.newSubscription(sub.UserID, m.catalog.Default(), CycleMonthly, "")
			if err := m.store.Replace(ctx, &sub, free, now); err != nil {
				return fmt.Errorf("expire subscription %s: %w", sub.ID, err)
			}

			m.log.InfoContext(ctx, "subscription expired, downgraded to free",
				slog.String("user_id", sub.UserID),
				slog.String("subscription_id", sub.ID),
				slog.String("was_plan", string(sub.PlanID)))

			// Notification failures must not fail the sweep.
			if m.notifier != nil {
				if err := m.notifier.SubscriptionExpired(ctx, sub.UserID, sub); err != nil {
					m.log.ErrorContext(ctx, "failed to send expiry notification",
						slog.String("user_id", sub.UserID), slog.Any("error", err))
				}
			}

			mu.Lock()
			done = append(done, sub)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return done, err
	}
	return done, nil
}

func (m *Manager) newSubscription(userID string, plan catalog.Plan, cycle Cycle, providerSubID string) *Subscription {
	now := m.now()
	sub := &Subscription{
		ID:            uuid.NewString(),
		UserID:        userID,
		PlanID:        plan.ID,
		Status:        StatusActive,
		StartDate:     now,
		Price:         plan.Price.Amount,
		Currency:      plan.Price.Currency,
		ProviderSubID: providerSubID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if !plan.IsFree() {
		end := now.Add(cycle.TermDuration())
		sub.EndDate = &end
	}
	return sub
}
