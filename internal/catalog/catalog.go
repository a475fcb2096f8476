// Package catalog reads the purchasable plan catalog from Stage. It is
// read-only and deliberately uncached: every page load reflects the
// platform's current state, including a subscription that just changed.
package catalog

import (
	"context"

	"github.com/dukerupert/stagedemo/internal/model"
)

// Source is the slice of the Stage API the catalog needs.
type Source interface {
	ListPlans(ctx context.Context) (*model.PlanList, error)
	GetUserPlans(ctx context.Context, identifier string) (*model.UserPlans, error)
}

type Catalog struct {
	source Source
}

func New(source Source) *Catalog {
	return &Catalog{source: source}
}

// ListPurchasable returns the catalog with draft plans filtered out.
// A draft plan is defined but not yet eligible for purchase.
func (c *Catalog) ListPurchasable(ctx context.Context) ([]model.Plan, error) {
	list, err := c.source.ListPlans(ctx)
	if err != nil {
		return nil, err
	}
	return filterDrafts(list.Items), nil
}

// SubscriptionForUser returns the plan the user currently holds (empty
// identifier if none) alongside the purchasable catalog.
func (c *Catalog) SubscriptionForUser(ctx context.Context, identifier string) (*model.UserPlans, error) {
	up, err := c.source.GetUserPlans(ctx, identifier)
	if err != nil {
		return nil, err
	}
	up.Plans.Items = filterDrafts(up.Plans.Items)
	return up, nil
}

func filterDrafts(plans []model.Plan) []model.Plan {
	out := make([]model.Plan, 0, len(plans))
	for _, p := range plans {
		if !p.Draft {
			out = append(out, p)
		}
	}
	return out
}
