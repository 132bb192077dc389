package entitlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clauseguard/clauseguard/pkg/catalog"
)

// PlanResolver resolves the active plan ID for a user. Implementations
// should return ErrNoActivePlan (possibly wrapped) when the user has no
// subscription yet; the engine then falls back to the default plan so
// brand-new users can probe entitlements before their record exists.
type PlanResolver func(ctx context.Context, userID string) (catalog.PlanID, error)

// StaticPlanResolver returns a resolver that always yields the given plan.
// Useful in tests and single-tenant deployments.
func StaticPlanResolver(planID catalog.PlanID) PlanResolver {
	return func(ctx context.Context, userID string) (catalog.PlanID, error) {
		return planID, nil
	}
}

// Engine is the entitlement decision point: given a user, an action and a
// requested amount it resolves the active plan, the feature descriptor and
// the relevant usage counter, and returns an allow/deny Decision.
//
// The engine only reads usage; all writes go through the Recorder. The
// check-then-record sequence is deliberately not atomic: two concurrent
// requests can both pass the check before either records, so transient
// overshoot up to the concurrency level is possible. Exact enforcement
// would require a conditional increment against the store instead.
type Engine struct {
	catalog     *catalog.Catalog
	usage       UsageStore
	resolvePlan PlanResolver
	now         func() time.Time
}

// EngineOption configures optional Engine settings.
type EngineOption func(*Engine)

// WithClock overrides the engine's time source. Used in tests to pin
// period and day boundaries.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an entitlement Engine.
// Panics on nil required dependencies to fail fast during initialization.
func NewEngine(cat *catalog.Catalog, usage UsageStore, resolvePlan PlanResolver, opts ...EngineOption) *Engine {
	if cat == nil {
		panic("entitlement: catalog is required")
	}
	if usage == nil {
		panic("entitlement: usage store is required")
	}
	if resolvePlan == nil {
		panic("entitlement: plan resolver is required")
	}

	e := &Engine{
		catalog:     cat,
		usage:       usage,
		resolvePlan: resolvePlan,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CheckLimit decides whether the user may perform the action amount times
// right now. Unknown actions and non-positive amounts are caller errors and
// return an error rather than a denial Decision.
func (e *Engine) CheckLimit(ctx context.Context, userID string, action catalog.Feature, amount int64) (Decision, error) {
	spec, ok := ActionSpec(action)
	if !ok {
		return Decision{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if amount <= 0 {
		return Decision{}, fmt.Errorf("%w: got %d", ErrInvalidAmount, amount)
	}

	plan, err := e.activePlan(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	fl := plan.FeatureLimit(action)
	if !fl.Available() {
		decision := Decision{
			Allowed:         false,
			Reason:          ReasonFeatureUnavailable,
			UpgradeRequired: true,
		}
		if required, ok := e.catalog.CheapestWith(action); ok {
			decision.RequiredPlan = required.ID
		}
		return decision, nil
	}

	// Unlimited features skip the usage read entirely.
	if fl.IsUnlimited() {
		return Decision{Allowed: true, Limit: catalog.Unlimited, Remaining: catalog.Unlimited}, nil
	}

	now := e.now()
	usage, err := e.usage.Get(ctx, userID, PeriodKey(now))
	if err != nil {
		return Decision{}, err
	}

	var used int64
	if spec.Scope == catalog.PeriodDaily {
		used = usage.DailyCount(DayKey(now), spec.Field)
	} else {
		used = usage.MonthlyCount(spec.Field)
	}

	if used+amount > fl.Limit {
		return Decision{
			Allowed:      false,
			Reason:       ReasonLimitExceeded,
			Limit:        fl.Limit,
			CurrentUsage: used,
			Remaining:    max(0, fl.Limit-used),
		}, nil
	}

	return Decision{
		Allowed:      true,
		Limit:        fl.Limit,
		CurrentUsage: used,
		Remaining:    fl.Limit - used - amount,
	}, nil
}

// activePlan resolves the user's plan, falling back to the default plan both
// when the user has no subscription and when the stored plan ID is no longer
// in the catalog (data drift after a catalog change).
func (e *Engine) activePlan(ctx context.Context, userID string) (catalog.Plan, error) {
	planID, err := e.resolvePlan(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoActivePlan) {
			return e.catalog.Default(), nil
		}
		return catalog.Plan{}, fmt.Errorf("resolve plan for user %s: %w", userID, err)
	}

	plan, ok := e.catalog.Get(planID)
	if !ok {
		return e.catalog.Default(), nil
	}
	return plan, nil
}
