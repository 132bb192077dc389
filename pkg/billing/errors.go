package billing

import "errors"

var (
	ErrSubscriptionNotFound        = errors.New("subscription not found")
	ErrDuplicateActiveSubscription = errors.New("user already has an active subscription")
	ErrPlanNotFound                = errors.New("billing plan not found")
	ErrInvalidBillingCycle         = errors.New("invalid billing cycle")
	ErrCheckoutNotAvailable        = errors.New("checkout requires a configured billing provider")

	// Proration input errors. These indicate caller bugs and are returned
	// loudly instead of silently producing a zero credit.
	ErrNilSubscription   = errors.New("current subscription is required")
	ErrFreeTargetPlan    = errors.New("cannot compute proration towards a free plan")
	ErrInvalidTermDates  = errors.New("subscription term dates are invalid")
	ErrUnknownPriceID    = errors.New("price ID is not mapped to any plan")
	ErrUnmappedPlanCycle = errors.New("no provider price configured for plan and cycle")

	// Provider errors.
	ErrMissingAPIKey              = errors.New("billing provider API key is required")
	ErrMissingWebhookSecret       = errors.New("billing provider webhook secret is required")
	ErrInvalidProviderEnvironment = errors.New("invalid billing provider environment")
	ErrWebhookVerificationFailed  = errors.New("webhook signature verification failed")
	ErrNoCheckoutURL              = errors.New("no checkout URL returned from provider")
	ErrNoPortalURL                = errors.New("no portal URL returned from provider")
	ErrMissingPriceID             = errors.New("price ID is required")
	ErrMissingCustomerID          = errors.New("customer ID is required")
)
