package subscription_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/rutslots-api/internal/application/audit"
	"github.com/jhoicas/rutslots-api/internal/application/ports"
	"github.com/jhoicas/rutslots-api/internal/application/quota"
	"github.com/jhoicas/rutslots-api/internal/application/subscription"
	"github.com/jhoicas/rutslots-api/internal/domain"
	"github.com/jhoicas/rutslots-api/internal/domain/entity"
	"github.com/jhoicas/rutslots-api/internal/infrastructure/memory"
	"github.com/jhoicas/rutslots-api/pkg/logger"
)

const user = "user-1"

func setup(t *testing.T) (*memory.Store, *subscription.ActivationService) {
	t.Helper()
	ctx := context.Background()
	mem := memory.NewStore(time.Second)
	for _, p := range []entity.Plan{
		{Code: "basic", Name: "Básico", PriceMonth: decimal.NewFromInt(9990), RUTQuota: 1, IsActive: true},
		{Code: "pro", Name: "Pro", PriceMonth: decimal.NewFromInt(19990), RUTQuota: 2, IsActive: true},
		{Code: "enterprise", Name: "Enterprise", PriceMonth: decimal.NewFromInt(34990), RUTQuota: 4, IsActive: true},
		{Code: "legacy", Name: "Antiguo", PriceMonth: decimal.NewFromInt(5000), RUTQuota: 1, IsActive: false},
	} {
		p := p
		_, err := mem.Plans().Upsert(ctx, &p)
		require.NoError(t, err)
	}
	rec := audit.NewRecorder(mem.AuditLogs(), logger.Nop())
	reconciler := quota.NewReconciler(mem, rec, quota.Config{})
	svc := subscription.NewActivationService(mem, mem.Plans(), mem.Subscriptions(), mem.Slots(), reconciler, rec, logger.Nop(),
		subscription.Config{Retry: quota.RetryPolicy{MaxRetries: 2, InitialInterval: time.Millisecond}})
	return mem, svc
}

func activate(t *testing.T, svc *subscription.ActivationService, plan string) *subscription.Activation {
	t.Helper()
	out, err := svc.ActivatePlan(context.Background(), subscription.ActivateInput{
		UserID: user, PlanCode: plan, Source: subscription.SourceWebhook, Provider: "mercadopago",
	})
	require.NoError(t, err)
	return out
}

func lockSlot(t *testing.T, mem *memory.Store, idx int, rutValue string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, mem.RunForUser(ctx, user, func(tx ports.UserTx) error {
		list, err := tx.Slots.ListByUserForUpdate(ctx, user)
		if err != nil {
			return err
		}
		s := list[idx-1]
		s.Assign(rutValue, time.Now())
		s.Lock("form-x", time.Now())
		return tx.Slots.Update(ctx, s)
	}))
}

func TestActivatePlan_CreaSuscripcionYSlots(t *testing.T) {
	mem, svc := setup(t)

	out := activate(t, svc, "pro")
	assert.False(t, out.NoOp)
	assert.Equal(t, quota.Result{Created: 2}, out.Sync)
	assert.Equal(t, entity.SubscriptionActive, out.Subscription.Status)

	st, err := svc.Status(context.Background(), user)
	require.NoError(t, err)
	require.NotNil(t, st.Plan)
	assert.Equal(t, "pro", st.Plan.Code)
	assert.Len(t, st.Slots, 2)

	hist, err := mem.History().ListByUser(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, entity.SubscriptionNone, hist[0].StatusFrom)
	assert.Equal(t, entity.SubscriptionActive, hist[0].StatusTo)
}

func TestActivatePlan_MismoPlanEsIdempotente(t *testing.T) {
	mem, svc := setup(t)
	first := activate(t, svc, "pro")
	before := len(mem.AuditEntries())

	again := activate(t, svc, "pro")
	assert.True(t, again.NoOp)
	assert.Equal(t, first.Subscription.ID, again.Subscription.ID)
	assert.Len(t, mem.AuditEntries(), before)

	hist, err := mem.History().ListByUser(context.Background(), user)
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}

func TestActivatePlan_CambioDePlanDesbloquea(t *testing.T) {
	mem, svc := setup(t)
	activate(t, svc, "pro")
	lockSlot(t, mem, 1, "12345678-5")

	out := activate(t, svc, "enterprise")
	assert.Equal(t, quota.Result{Created: 2, Unlocked: 1}, out.Sync)

	out = activate(t, svc, "basic")
	assert.Equal(t, 3, out.Sync.Removed)

	slots, err := mem.Slots().ListByUser(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "12345678-5", slots[0].RUT)
	assert.Equal(t, entity.SlotAvailable, slots[0].State)
}

func TestActivatePlan_PlanInexistenteOInactivo(t *testing.T) {
	_, svc := setup(t)
	for _, code := range []string{"", "gold", "legacy"} {
		_, err := svc.ActivatePlan(context.Background(), subscription.ActivateInput{UserID: user, PlanCode: code})
		assert.ErrorIs(t, err, domain.ErrPlanNotFound, code)
	}
}

func TestActivatePlan_ReintentaConflicto(t *testing.T) {
	mem := memory.NewStore(10 * time.Millisecond)
	ctx := context.Background()
	_, err := mem.Plans().Upsert(ctx, &entity.Plan{Code: "pro", RUTQuota: 2, IsActive: true})
	require.NoError(t, err)
	rec := audit.NewRecorder(mem.AuditLogs(), logger.Nop())
	svc := subscription.NewActivationService(mem, mem.Plans(), mem.Subscriptions(), mem.Slots(),
		quota.NewReconciler(mem, rec, quota.Config{}), rec, logger.Nop(),
		subscription.Config{Retry: quota.RetryPolicy{MaxRetries: 5, InitialInterval: 10 * time.Millisecond}})

	held := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- mem.RunForUser(ctx, user, func(ports.UserTx) error {
			close(held)
			time.Sleep(25 * time.Millisecond)
			return nil
		})
	}()
	<-held

	out, err := svc.ActivatePlan(ctx, subscription.ActivateInput{UserID: user, PlanCode: "pro"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Sync.Created)
	require.NoError(t, <-done)
}

func TestCancel_EliminaSuscripcionYSlots(t *testing.T) {
	mem, svc := setup(t)
	ctx := context.Background()
	activate(t, svc, "enterprise")

	res, err := svc.Cancel(ctx, user, "solicitud del usuario")
	require.NoError(t, err)
	assert.Equal(t, 4, res.Removed)

	st, err := svc.Status(ctx, user)
	require.NoError(t, err)
	assert.Nil(t, st.Subscription)
	assert.Empty(t, st.Slots)

	hist, err := mem.History().ListByUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, entity.SubscriptionCanceled, hist[1].StatusTo)

	_, err = svc.Cancel(ctx, user, "")
	assert.ErrorIs(t, err, domain.ErrNoActiveSubscription)
}

func TestMarkPastDue_NoTocaSlots(t *testing.T) {
	_, svc := setup(t)
	ctx := context.Background()
	activate(t, svc, "pro")

	marked, err := svc.MarkPastDue(ctx, user, "basic", "pago rechazado")
	require.NoError(t, err)
	assert.False(t, marked, "otro plan no se marca")

	marked, err = svc.MarkPastDue(ctx, user, "pro", "pago rechazado")
	require.NoError(t, err)
	assert.True(t, marked)

	st, err := svc.Status(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, entity.SubscriptionPastDue, st.Subscription.Status)
	assert.Len(t, st.Slots, 2)

	// reactivar el mismo plan desde past_due sí es un cambio
	out := activate(t, svc, "pro")
	assert.False(t, out.NoOp)
}

func TestResyncAll(t *testing.T) {
	mem, svc := setup(t)
	ctx := context.Background()
	activate(t, svc, "pro")

	// un slot de más (p. ej. dato heredado) se elimina al resincronizar
	require.NoError(t, mem.Slots().Create(ctx, entity.NewEmptySlot("extra", user, 3, time.Now())))

	n, err := svc.ResyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	slots, err := mem.Slots().ListByUser(ctx, user)
	require.NoError(t, err)
	assert.Len(t, slots, 2)
}

func TestActivatePlan_CupoSobreElMaximoNoEsPermanente(t *testing.T) {
	mem, svc := setup(t)
	ctx := context.Background()
	_, err := mem.Plans().Upsert(ctx, &entity.Plan{Code: "big", Name: "Grande", PriceMonth: decimal.NewFromInt(99990), RUTQuota: 60, IsActive: true})
	require.NoError(t, err)

	_, err = svc.ActivatePlan(ctx, subscription.ActivateInput{UserID: user, PlanCode: "big", Source: subscription.SourceWebhook})
	assert.ErrorIs(t, err, domain.ErrPlanMisconfigured)
	assert.NotErrorIs(t, err, domain.ErrInvalidInput)
	assert.NotErrorIs(t, err, domain.ErrPlanNotFound)

	st, err := svc.Status(ctx, user)
	require.NoError(t, err)
	assert.Nil(t, st.Subscription)
	assert.Empty(t, st.Slots)
}
