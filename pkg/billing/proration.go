package billing

import (
	"fmt"
	"math"
	"time"

	"github.com/clauseguard/clauseguard/pkg/catalog"
)

// Proration breaks down the price of a mid-term plan change.
type Proration struct {
	ProratedAmount int64 `json:"prorated_amount"` // what the user pays now
	UnusedCredit   int64 `json:"unused_credit"`   // value of the remaining current term
	FullAmount     int64 `json:"full_amount"`     // new term price before credit
	DaysRemaining  int   `json:"days_remaining"`
	DaysUsed       int   `json:"days_used"`
	TotalDays      int   `json:"total_days"`
}

// CalculateProratedAmount computes the charge for switching the current
// subscription to newPlan on the given cycle at time now.
//
// The unused remainder of the current paid term is credited day-by-day
// against the new term's full price; the result never goes below zero (no
// refunds, the surplus is simply forfeited). Free current subscriptions have
// nothing to credit and pay the full price.
//
// Day counts round up, which slightly favors the user: a term entered
// seconds ago still counts as a full remaining day. Whether the current
// term is annual is inferred from its length; anything of 350 days or more
// is treated as a twelve-month term so that leap years and grace-shifted
// end dates don't flip the classification.
func CalculateProratedAmount(current *Subscription, newPlan catalog.Plan, cycle Cycle, now time.Time) (*Proration, error) {
	if current == nil {
		return nil, ErrNilSubscription
	}
	if !cycle.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBillingCycle, cycle)
	}
	if newPlan.IsFree() {
		return nil, ErrFreeTargetPlan
	}

	fullAmount := newPlan.Price.Amount
	if cycle == CycleAnnual {
		fullAmount = newPlan.Price.Amount * 12
	}

	// Nothing prepaid, nothing to credit.
	if current.IsFree() || current.EndDate == nil {
		return &Proration{
			ProratedAmount: fullAmount,
			FullAmount:     fullAmount,
		}, nil
	}

	end := *current.EndDate
	if !end.After(current.StartDate) {
		return nil, fmt.Errorf("%w: start %s is not before end %s",
			ErrInvalidTermDates, current.StartDate.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	totalDays := ceilDays(end.Sub(current.StartDate))
	daysRemaining := ceilDays(end.Sub(now))
	if daysRemaining < 0 {
		daysRemaining = 0
	}
	if daysRemaining > totalDays {
		daysRemaining = totalDays
	}

	isCurrentAnnual := totalDays >= 350
	currentTermTotal := current.Price
	if isCurrentAnnual {
		currentTermTotal = current.Price * 12
	}

	unusedCredit := int64(math.Round(float64(currentTermTotal) / float64(totalDays) * float64(daysRemaining)))

	prorated := fullAmount - unusedCredit
	if prorated < 0 {
		prorated = 0
	}

	return &Proration{
		ProratedAmount: prorated,
		UnusedCredit:   unusedCredit,
		FullAmount:     fullAmount,
		DaysRemaining:  int(daysRemaining),
		DaysUsed:       int(totalDays - daysRemaining),
		TotalDays:      int(totalDays),
	}, nil
}
