package entitlement

import "github.com/clauseguard/clauseguard/pkg/catalog"

// DenialReason explains why an action was not allowed.
type DenialReason string

const (
	// ReasonFeatureUnavailable means the plan does not include the action
	// at all; only an upgrade can unlock it.
	ReasonFeatureUnavailable DenialReason = "feature_unavailable"

	// ReasonLimitExceeded means the plan includes the action but the period
	// quota is exhausted.
	ReasonLimitExceeded DenialReason = "limit_exceeded"
)

// Decision is the outcome of an entitlement check.
//
// For denied limit checks, Limit/CurrentUsage/Remaining carry the numbers a
// caller needs to render "X of Y remaining". For feature denials,
// RequiredPlan names the cheapest plan that would unlock the action.
type Decision struct {
	Allowed bool         `json:"allowed"`
	Reason  DenialReason `json:"reason,omitempty"`
	Limit   int64        `json:"limit,omitempty"`

	// CurrentUsage and Remaining never omit their zeros: an exhausted quota
	// legitimately reads "10 used, 0 remaining".
	CurrentUsage    int64          `json:"current_usage"`
	Remaining       int64          `json:"remaining"`
	UpgradeRequired bool           `json:"upgrade_required,omitempty"`
	RequiredPlan    catalog.PlanID `json:"required_plan,omitempty"`
}
