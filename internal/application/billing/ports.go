package billing

import (
	"context"

	"github.com/jhoicas/rutslots-api/internal/application/subscription"
)

// PlanActivator cambios de plan que dispara la facturación.
type PlanActivator interface {
	ActivatePlan(ctx context.Context, in subscription.ActivateInput) (*subscription.Activation, error)
	MarkPastDue(ctx context.Context, userID, planCode, reason string) (bool, error)
}
