package entitlement

import (
	"context"
	"fmt"
	"time"

	"github.com/clauseguard/clauseguard/pkg/catalog"
)

// Recorder increments usage counters after an action has completed.
//
// Recording happens after the user-facing action already succeeded, so
// failures here must never propagate into the response path: callers log
// the error and move on. Under-counting is preferred over failing a
// response that was already delivered.
type Recorder struct {
	usage UsageStore
	now   func() time.Time
}

// RecorderOption configures optional Recorder settings.
type RecorderOption func(*Recorder)

// WithRecorderClock overrides the recorder's time source for tests.
func WithRecorderClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRecorder creates a usage Recorder.
// Panics on nil usage store to fail fast during initialization.
func NewRecorder(usage UsageStore, opts ...RecorderOption) *Recorder {
	if usage == nil {
		panic("entitlement: usage store is required")
	}
	r := &Recorder{usage: usage, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RecordUsage atomically adds amount to the action's counters and returns
// the post-increment snapshot. Daily-scoped actions bump both today's bucket
// and the monthly cumulative field, so month totals stay meaningful across
// day boundaries.
func (r *Recorder) RecordUsage(ctx context.Context, userID string, action catalog.Feature, amount int64) (*Usage, error) {
	spec, ok := ActionSpec(action)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidAmount, amount)
	}

	now := r.now()
	fields := map[string]int64{
		"monthly." + spec.Field: amount,
	}
	if spec.Scope == catalog.PeriodDaily {
		fields["daily."+DayKey(now)+"."+spec.Field] = amount
	}

	return r.usage.Increment(ctx, userID, now, fields)
}
