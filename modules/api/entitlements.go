package api

import (
	"net/http"
	"time"

	"github.com/clauseguard/clauseguard/pkg/catalog"
	"github.com/clauseguard/clauseguard/pkg/entitlement"
)

func nowUTC() time.Time { return time.Now().UTC() }

type checkRequest struct {
	Action string `json:"action"`
	Amount int64  `json:"amount,omitempty"`
}

func (req *checkRequest) normalize() {
	if req.Amount == 0 {
		req.Amount = 1
	}
}

// handleCheckEntitlement answers "may this user do this action right now".
// Denials are a successful check, not an error: the response is always a
// Decision with HTTP 200.
func (a *api) handleCheckEntitlement(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := decode(r, &req); err != nil {
		a.respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	req.normalize()

	decision, err := a.engine.CheckLimit(r.Context(), UserID(r.Context()), catalog.Feature(req.Action), req.Amount)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, decision)
}

func (a *api) handleRecordUsage(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := decode(r, &req); err != nil {
		a.respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	req.normalize()

	usage, err := a.recorder.RecordUsage(r.Context(), UserID(r.Context()), catalog.Feature(req.Action), req.Amount)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, usageView(usage))
}

func (a *api) handleGetUsage(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	usage, err := a.usage.Get(r.Context(), userID, entitlement.PeriodKey(nowUTC()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond(w, http.StatusOK, usageView(usage))
}

type usageResponse struct {
	UserID  string                      `json:"user_id"`
	Period  string                      `json:"period"`
	Monthly map[string]int64            `json:"monthly"`
	Daily   map[string]map[string]int64 `json:"daily,omitempty"`
}

func usageView(u *entitlement.Usage) usageResponse {
	monthly := u.Monthly
	if monthly == nil {
		monthly = map[string]int64{}
	}
	return usageResponse{
		UserID:  u.UserID,
		Period:  u.Period,
		Monthly: monthly,
		Daily:   u.Daily,
	}
}
