package billing

import (
	"time"

	"github.com/clauseguard/clauseguard/pkg/catalog"
)

// Status is the lifecycle state of a subscription row. Rows are immutable
// once cancelled: a plan change cancels the old row and creates a new one,
// so the collection doubles as subscription history.
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

// Cycle is the billing term length chosen at checkout. Plan list prices are
// monthly; annual terms bill twelve months upfront.
type Cycle string

const (
	CycleMonthly Cycle = "monthly"
	CycleAnnual  Cycle = "annual"
)

// Valid reports whether the cycle is one of the known terms.
func (c Cycle) Valid() bool {
	return c == CycleMonthly || c == CycleAnnual
}

// TermDuration returns the paid term length for the cycle.
func (c Cycle) TermDuration() time.Duration {
	if c == CycleAnnual {
		return 365 * 24 * time.Hour
	}
	return 30 * 24 * time.Hour
}

// Subscription ties a user to a plan for a term. Each user has exactly one
// active subscription at any moment; free subscriptions have no EndDate and
// never expire.
type Subscription struct {
	ID            string         `bson:"_id" json:"id"`
	UserID        string         `bson:"user_id" json:"user_id"`
	PlanID        catalog.PlanID `bson:"plan_id" json:"plan_id"`
	Status        Status         `bson:"status" json:"status"`
	StartDate     time.Time      `bson:"start_date" json:"start_date"`
	EndDate       *time.Time     `bson:"end_date,omitempty" json:"end_date,omitempty"`
	Price         int64          `bson:"price" json:"price"` // monthly rate in smallest currency unit
	Currency      string         `bson:"currency" json:"currency"`
	ProviderSubID string         `bson:"provider_sub_id,omitempty" json:"-"`
	CreatedAt     time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `bson:"updated_at" json:"updated_at"`
	CancelledAt   *time.Time     `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
}

// IsActive reports whether the subscription is the user's current one.
func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

// IsFree reports whether this subscription carries no billing.
func (s *Subscription) IsFree() bool {
	return s.Price == 0
}

// IsExpired reports whether the paid term has run out at the given time.
// Free subscriptions never expire.
func (s *Subscription) IsExpired(now time.Time) bool {
	return s.EndDate != nil && !now.Before(*s.EndDate)
}

// DaysRemaining returns whole days left in the term at the given time,
// rounding partial days up. Zero for expired or open-ended subscriptions.
func (s *Subscription) DaysRemaining(now time.Time) int {
	if s.EndDate == nil {
		return 0
	}
	remaining := s.EndDate.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(ceilDays(remaining))
}

func ceilDays(d time.Duration) int64 {
	const day = 24 * time.Hour
	return int64((d + day - 1) / day)
}
