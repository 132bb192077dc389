package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Catalog is the validated, immutable set of plans the service sells.
type Catalog struct {
	plans     map[PlanID]Plan
	defaultID PlanID
	ordered   []Plan // sorted by price ascending for upgrade hints
}

// New validates the given plans and builds a Catalog.
//
// Validation enforces the catalog invariants: exactly one default plan, every
// feature key present in any plan present in all plans (possibly disabled),
// and no limit below -1.
func New(ctx context.Context, src Source) (*Catalog, error) {
	plans, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	if err := validatePlans(plans); err != nil {
		return nil, err
	}

	c := &Catalog{plans: make(map[PlanID]Plan, len(plans))}
	for id, plan := range plans {
		c.plans[id] = plan.clone()
		if plan.Default {
			c.defaultID = id
		}
		c.ordered = append(c.ordered, plan.clone())
	}
	sort.Slice(c.ordered, func(i, j int) bool {
		return c.ordered[i].Price.Amount < c.ordered[j].Price.Amount
	})

	return c, nil
}

// Get returns the plan with the given ID.
func (c *Catalog) Get(id PlanID) (Plan, bool) {
	plan, ok := c.plans[id]
	return plan, ok
}

// Default returns the default (free) plan.
func (c *Catalog) Default() Plan {
	return c.plans[c.defaultID]
}

// List returns all plans ordered by ascending price.
func (c *Catalog) List() []Plan {
	out := make([]Plan, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// CheapestWith returns the lowest-priced plan on which the feature is usable.
// Used to tell a denied caller which upgrade would unlock the action.
func (c *Catalog) CheapestWith(f Feature) (Plan, bool) {
	for _, plan := range c.ordered {
		if plan.HasFeature(f) {
			return plan, true
		}
	}
	return Plan{}, false
}

func validatePlans(plans map[PlanID]Plan) error {
	if len(plans) == 0 {
		return errors.Join(ErrInvalidPlanConfiguration, errors.New("no plans defined"))
	}

	var defaults int
	featureUnion := make(map[Feature]struct{})
	for id, plan := range plans {
		if plan.ID != id {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan ID mismatch: map key %s != plan.ID %s", id, plan.ID))
		}
		if plan.Default {
			defaults++
		}
		for f, fl := range plan.Features {
			featureUnion[f] = struct{}{}
			if fl.Limit < Unlimited {
				return errors.Join(ErrInvalidPlanConfiguration,
					fmt.Errorf("plan %s feature %s has invalid limit %d", id, f, fl.Limit))
			}
		}
	}

	if defaults != 1 {
		return errors.Join(ErrInvalidPlanConfiguration,
			fmt.Errorf("expected exactly one default plan, got %d", defaults))
	}

	// Every plan must define every known feature so plan comparison never
	// hits a missing key.
	for id, plan := range plans {
		for f := range featureUnion {
			if _, ok := plan.Features[f]; !ok {
				return errors.Join(ErrInvalidPlanConfiguration,
					fmt.Errorf("plan %s is missing feature %s", id, f))
			}
		}
	}

	return nil
}
