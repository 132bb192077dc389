package entitlement

import "errors"

var (
	// ErrUnknownAction is returned when an action outside the closed
	// vocabulary is checked or recorded. This is a programming error in the
	// caller, not a user-facing limit.
	ErrUnknownAction = errors.New("unknown action")

	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrNoActivePlan is the sentinel a PlanResolver returns when the user
	// has no active subscription; the engine treats it as the default plan.
	ErrNoActivePlan = errors.New("no active plan for user")
)
