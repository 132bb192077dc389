package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clauseguard/clauseguard/pkg/catalog"
)

type planResponse struct {
	ID       catalog.PlanID                           `json:"id"`
	Name     string                                   `json:"name"`
	Price    moneyResponse                            `json:"price"`
	Interval catalog.BillingInterval                  `json:"interval"`
	Features map[catalog.Feature]featureLimitResponse `json:"features"`
	Default  bool                                     `json:"default,omitempty"`
}

type moneyResponse struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type featureLimitResponse struct {
	Enabled bool           `json:"enabled"`
	Limit   int64          `json:"limit"`
	Period  catalog.Period `json:"period,omitempty"`
}

func planView(p catalog.Plan) planResponse {
	features := make(map[catalog.Feature]featureLimitResponse, len(p.Features))
	for f, fl := range p.Features {
		features[f] = featureLimitResponse{Enabled: fl.Enabled, Limit: fl.Limit, Period: fl.Period}
	}
	return planResponse{
		ID:       p.ID,
		Name:     p.Name,
		Price:    moneyResponse{Amount: p.Price.Amount, Currency: p.Price.Currency},
		Interval: p.Interval,
		Features: features,
		Default:  p.Default,
	}
}

func (a *api) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans := a.catalog.List()
	out := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, planView(p))
	}
	a.respond(w, http.StatusOK, out)
}

func (a *api) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	id := catalog.PlanID(chi.URLParam(r, "id"))
	plan, ok := a.catalog.Get(id)
	if !ok {
		a.fail(w, r, catalog.ErrPlanNotFound)
		return
	}
	a.respond(w, http.StatusOK, planView(plan))
}
