package entitlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clauseguard/clauseguard/pkg/docstore"
)

// UsageCollection is the document store collection holding usage records.
const UsageCollection = "usage"

// Usage is one user's usage record for one calendar month. Monthly holds
// cumulative counters per field; Daily holds per-day buckets for
// daily-scoped actions. A missing field or day reads as zero, which is how
// a new period implicitly resets all counters.
type Usage struct {
	ID      string                      `bson:"_id"`
	UserID  string                      `bson:"user_id,omitempty"`
	Period  string                      `bson:"period,omitempty"`
	Monthly map[string]int64            `bson:"monthly,omitempty"`
	Daily   map[string]map[string]int64 `bson:"daily,omitempty"`
}

// MonthlyCount returns the cumulative monthly counter for a field.
func (u *Usage) MonthlyCount(field string) int64 {
	return u.Monthly[field]
}

// DailyCount returns the counter for a field within one day bucket.
func (u *Usage) DailyCount(day, field string) int64 {
	return u.Daily[day][field]
}

// PeriodKey returns the usage period key (YYYY-MM) for a point in time.
// All calendar bucketing uses UTC.
func PeriodKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// DayKey returns the daily bucket key (YYYY-MM-DD) for a point in time.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func usageDocID(userID, period string) string {
	return fmt.Sprintf("user_%s_%s", userID, period)
}

// UsageStore reads and atomically mutates per-user usage records.
type UsageStore interface {
	// Get returns the usage record for a (user, period). A record that does
	// not exist yet reads as all-zero; absence is not an error.
	Get(ctx context.Context, userID, period string) (*Usage, error)

	// Increment atomically adds the given amounts to counter field paths for
	// the period containing at, creating the record lazily, and returns the
	// post-increment snapshot.
	Increment(ctx context.Context, userID string, at time.Time, fields map[string]int64) (*Usage, error)
}

type usageStore struct {
	store docstore.Store
}

// NewUsageStore creates a UsageStore backed by a generic document store.
// Increments rely on the store's atomic increment primitive; there is no
// read-modify-write anywhere in the counter path.
func NewUsageStore(store docstore.Store) UsageStore {
	if store == nil {
		panic("entitlement: document store is required")
	}
	return &usageStore{store: store}
}

func (s *usageStore) Get(ctx context.Context, userID, period string) (*Usage, error) {
	var u Usage
	err := s.store.Get(ctx, UsageCollection, usageDocID(userID, period), &u)
	if errors.Is(err, docstore.ErrNotFound) {
		return &Usage{ID: usageDocID(userID, period), UserID: userID, Period: period}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load usage for user %s period %s: %w", userID, period, err)
	}

	// The document is created by increments, which only write counters;
	// fill in the identity fields for callers.
	u.UserID = userID
	u.Period = period
	return &u, nil
}

func (s *usageStore) Increment(ctx context.Context, userID string, at time.Time, fields map[string]int64) (*Usage, error) {
	period := PeriodKey(at)
	if err := s.store.Increment(ctx, UsageCollection, usageDocID(userID, period), fields); err != nil {
		return nil, fmt.Errorf("increment usage for user %s: %w", userID, err)
	}
	return s.Get(ctx, userID, period)
}
