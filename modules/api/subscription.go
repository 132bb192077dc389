package api

import (
	"net/http"

	"github.com/clauseguard/clauseguard/pkg/billing"
	"github.com/clauseguard/clauseguard/pkg/catalog"
)

// handleGetSubscription is ensure-on-read: the first request a user ever
// makes materializes their free subscription row.
func (a *api) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := a.manager.EnsureSubscription(r.Context(), UserID(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, sub)
}

type planChangeRequest struct {
	PlanID     string `json:"plan_id"`
	Cycle      string `json:"cycle"`
	Email      string `json:"email,omitempty"`
	SuccessURL string `json:"success_url,omitempty"`
}

func (req *planChangeRequest) cycle() billing.Cycle {
	if req.Cycle == "" {
		return billing.CycleMonthly
	}
	return billing.Cycle(req.Cycle)
}

func (a *api) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req planChangeRequest
	if err := decode(r, &req); err != nil {
		a.respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	link, err := a.manager.Checkout(r.Context(), UserID(r.Context()),
		catalog.PlanID(req.PlanID), req.cycle(), req.Email, req.SuccessURL)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, link)
}

func (a *api) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req planChangeRequest
	if err := decode(r, &req); err != nil {
		a.respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	proration, err := a.manager.PreviewChange(r.Context(), UserID(r.Context()),
		catalog.PlanID(req.PlanID), req.cycle())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, proration)
}

func (a *api) handleCancel(w http.ResponseWriter, r *http.Request) {
	sub, err := a.manager.Cancel(r.Context(), UserID(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, sub)
}

func (a *api) handlePortal(w http.ResponseWriter, r *http.Request) {
	link, err := a.manager.PortalLink(r.Context(), UserID(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, link)
}
