package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/clauseguard/clauseguard/pkg/aiclient"
	"github.com/clauseguard/clauseguard/pkg/billing"
	"github.com/clauseguard/clauseguard/pkg/catalog"
	"github.com/clauseguard/clauseguard/pkg/entitlement"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (a *api) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func (a *api) respondError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	a.respond(w, status, errorResponse{Error: msg})
}

// fail maps domain errors onto HTTP statuses. Anything unmapped is a 500
// with a generic body; the real error goes to the log, not the client.
func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, entitlement.ErrUnknownAction),
		errors.Is(err, entitlement.ErrInvalidAmount),
		errors.Is(err, billing.ErrInvalidBillingCycle),
		errors.Is(err, billing.ErrFreeTargetPlan),
		errors.Is(err, aiclient.ErrEmptyPrompt):
		status, msg = http.StatusBadRequest, err.Error()

	case errors.Is(err, billing.ErrPlanNotFound),
		errors.Is(err, catalog.ErrPlanNotFound),
		errors.Is(err, billing.ErrSubscriptionNotFound):
		status, msg = http.StatusNotFound, err.Error()

	case errors.Is(err, billing.ErrCheckoutNotAvailable),
		errors.Is(err, billing.ErrUnmappedPlanCycle):
		status, msg = http.StatusServiceUnavailable, "billing is not available"

	case errors.Is(err, billing.ErrWebhookVerificationFailed):
		status, msg = http.StatusBadRequest, "invalid webhook signature"

	case errors.Is(err, aiclient.ErrGeneratorExhausted):
		status, msg = http.StatusBadGateway, "AI backend is unavailable, try again shortly"
	}

	if status >= http.StatusInternalServerError {
		a.log.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	a.respond(w, status, errorResponse{Error: msg})
}

func decode(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
