// Package billing manages subscription lifecycle and payment provider
// integration.
//
// The subscription model is append-mostly: every plan change cancels the
// current row and inserts a successor in one batch write, so the collection
// is both the current state (the single active row per user) and the full
// history. A partial unique index on the active row keeps concurrent
// transitions from producing two active subscriptions.
//
// Payments are fully delegated to the provider through hosted checkout;
// state only changes here when a signed webhook confirms it. Proration for
// mid-term plan changes is a pure day-based calculation over the current
// term; see CalculateProratedAmount.
package billing
