// Package checkout validates a plan request and asks Stage to mint a
// hosted checkout session.
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukerupert/stagedemo/internal/model"
	"github.com/dukerupert/stagedemo/internal/stage"
)

// ErrPlanUnavailable is returned when the requested plan does not
// resolve to exactly one non-draft plan in the current catalog.
var ErrPlanUnavailable = errors.New("plan not available for purchase")

// StageAPI is the slice of the Stage client the orchestrator needs;
// tests substitute a fake.
type StageAPI interface {
	ListPlans(ctx context.Context) (*model.PlanList, error)
	CreateCheckoutSession(ctx context.Context, userIdentifier, planIdentifier string, params stage.CheckoutParams) (string, error)
}

type Orchestrator struct {
	api StageAPI
}

func New(api StageAPI) *Orchestrator {
	return &Orchestrator{api: api}
}

// Create validates that planIdentifier is purchasable right now, then
// mints a checkout session for the user and returns its redirect URL
// verbatim. Both the success and cancel URLs point back at origin. An
// unavailable plan returns ErrPlanUnavailable before any
// session-creation call is made.
func (o *Orchestrator) Create(ctx context.Context, userIdentifier, planIdentifier, origin string) (string, error) {
	list, err := o.api.ListPlans(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch catalog: %w", err)
	}

	matches := 0
	for _, p := range list.Items {
		if !p.Draft && p.Identifier == planIdentifier {
			matches++
		}
	}
	if matches != 1 {
		return "", ErrPlanUnavailable
	}

	url, err := o.api.CreateCheckoutSession(ctx, userIdentifier, planIdentifier, stage.CheckoutParams{
		SuccessURL:      origin,
		CancelURL:       origin,
		BillingInterval: stage.BillingIntervalMonth,
	})
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return url, nil
}
