package catalog

import "maps"

// Plan describes a subscription tier: display data, the monthly list price,
// and the availability and quota of every feature. Plans are immutable once
// loaded into a Catalog.
type Plan struct {
	ID       PlanID                   `yaml:"id"`
	Name     string                   `yaml:"name"`
	Price    Money                    `yaml:"price"`
	Interval BillingInterval          `yaml:"interval"`
	Features map[Feature]FeatureLimit `yaml:"features"`
	Default  bool                     `yaml:"default"`
}

// FeatureLimit returns the descriptor for a feature. Unknown keys resolve to
// a disabled zero descriptor so callers can probe arbitrary keys safely.
func (p Plan) FeatureLimit(f Feature) FeatureLimit {
	fl, ok := p.Features[f]
	if !ok {
		return FeatureLimit{}
	}
	return fl
}

// HasFeature reports whether the feature is usable on this plan.
func (p Plan) HasFeature(f Feature) bool {
	return p.FeatureLimit(f).Available()
}

// IsFree reports whether this is an unbilled plan.
func (p Plan) IsFree() bool {
	return p.Interval == BillingIntervalNone || p.Price.Amount == 0
}

func (p Plan) clone() Plan {
	p.Features = maps.Clone(p.Features)
	return p
}
