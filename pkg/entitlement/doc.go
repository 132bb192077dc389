// Package entitlement implements plan-based access control for metered
// actions: the allow/deny decision engine, the per-period usage counters,
// and the recorder that advances them.
//
// The closed action vocabulary and its mapping to counter fields and reset
// scopes live in a single table consumed by both the check path and the
// record path, so the two can never drift apart.
//
// Usage is bucketed by UTC calendar period: one document per user per month,
// with nested per-day buckets for daily-scoped actions. Counters only move
// through the document store's atomic increment, which keeps them correct
// under concurrent requests from the same user. The check-then-record
// sequence itself is not atomic; see Engine for the bounded-overshoot
// trade-off this implies.
package entitlement
