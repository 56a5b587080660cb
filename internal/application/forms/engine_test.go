package forms_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/rutslots-api/internal/application/audit"
	"github.com/jhoicas/rutslots-api/internal/application/forms"
	"github.com/jhoicas/rutslots-api/internal/application/quota"
	"github.com/jhoicas/rutslots-api/internal/application/slots"
	"github.com/jhoicas/rutslots-api/internal/domain"
	"github.com/jhoicas/rutslots-api/internal/domain/entity"
	"github.com/jhoicas/rutslots-api/internal/infrastructure/memory"
	"github.com/jhoicas/rutslots-api/pkg/logger"
)

const user = "user-1"

type fixture struct {
	mem    *memory.Store
	engine *forms.Engine
	slots  *slots.Store
	ids    []string
}

func setup(t *testing.T, active bool) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := memory.NewStore(time.Second)
	rec := audit.NewRecorder(mem.AuditLogs(), logger.Nop())

	_, err := quota.NewReconciler(mem, rec, quota.Config{}).Reconcile(ctx, user, 2)
	require.NoError(t, err)
	status := entity.SubscriptionActive
	if !active {
		status = entity.SubscriptionPastDue
	}
	require.NoError(t, mem.Subscriptions().Replace(ctx, &entity.Subscription{
		ID: "sub-1", UserID: user, PlanID: "plan-pro", Status: status, ActivatedAt: time.Now(),
	}))

	list, err := mem.Slots().ListByUser(ctx, user)
	require.NoError(t, err)
	f := &fixture{
		mem:    mem,
		engine: forms.NewEngine(mem, rec, nil),
		slots:  slots.NewStore(mem, mem.Slots(), rec, slots.Config{}),
	}
	for _, s := range list {
		f.ids = append(f.ids, s.ID)
	}
	return f
}

func countActions(entries []entity.AuditEntry, action string) int {
	n := 0
	for _, e := range entries {
		if e.Action == action {
			n++
		}
	}
	return n
}

// Escenario: slot available usado en un formulario queda locked y ya no acepta cambios de RUT.
func TestSubmit_BloqueaEnPrimerUso(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()
	_, err := f.slots.SetIdentifier(ctx, user, f.ids[0], "76.354.771-K")
	require.NoError(t, err)

	sub, err := f.engine.SubmitAndLockFirstUse(ctx, user, forms.SubmitInput{SlotID: f.ids[0], Type: "compras"})
	require.NoError(t, err)
	assert.True(t, sub.LockedSlot)
	assert.Equal(t, entity.FormStored, sub.Form.Status)
	assert.NotNil(t, sub.Form.SubmittedAt)
	assert.Equal(t, "76354771-K", sub.Form.SIIRut)
	assert.Equal(t, entity.SlotLocked, sub.Slot.State)
	require.NotNil(t, sub.Slot.LockedByFormID)
	assert.Equal(t, sub.Form.ID, *sub.Slot.LockedByFormID)

	_, err = f.slots.SetIdentifier(ctx, user, f.ids[0], "11111111-1")
	assert.ErrorIs(t, err, domain.ErrSlotLocked)

	entries := f.mem.AuditEntries()
	assert.Equal(t, 1, countActions(entries, entity.AuditSlotLocked))
	assert.Equal(t, 0, countActions(entries, entity.AuditFormSubmitted))

	stored, err := f.mem.Forms().GetByID(ctx, user, sub.Form.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, entity.FormStored, stored.Status)
}

func TestSubmit_SlotYaBloqueadoNoCambiaBloqueo(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()
	_, err := f.slots.SetIdentifier(ctx, user, f.ids[0], "12345678-5")
	require.NoError(t, err)

	first, err := f.engine.SubmitAndLockFirstUse(ctx, user, forms.SubmitInput{SlotID: f.ids[0], Type: "ventas"})
	require.NoError(t, err)
	second, err := f.engine.SubmitAndLockFirstUse(ctx, user, forms.SubmitInput{SlotID: f.ids[0], Type: "compras"})
	require.NoError(t, err)

	assert.False(t, second.LockedSlot)
	assert.Equal(t, *first.Slot.LockedByFormID, *second.Slot.LockedByFormID)
	assert.Equal(t, 1, countActions(f.mem.AuditEntries(), entity.AuditFormSubmitted))
}

func TestSubmit_SlotVacioNoSeBloquea(t *testing.T) {
	f := setup(t, true)

	sub, err := f.engine.SubmitAndLockFirstUse(context.Background(), user, forms.SubmitInput{
		SlotID: f.ids[1], Type: "compras", SIIRut: "11.111.111-1",
	})
	require.NoError(t, err)
	assert.False(t, sub.LockedSlot)
	assert.Equal(t, entity.SlotEmpty, sub.Slot.State)
	assert.Equal(t, "11111111-1", sub.Form.SIIRut)
}

func TestSubmit_SlotInexistenteNoCreaFormulario(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()

	_, err := f.engine.SubmitAndLockFirstUse(ctx, user, forms.SubmitInput{SlotID: "no-existe", Type: "compras"})
	assert.ErrorIs(t, err, domain.ErrSlotNotFound)
	_, err = f.engine.SubmitAndLockFirstUse(ctx, "otro", forms.SubmitInput{SlotID: f.ids[0], Type: "compras"})
	assert.Error(t, err)

	assert.Equal(t, 0, countActions(f.mem.AuditEntries(), entity.AuditFormCreated))
}

func TestSubmit_Validaciones(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()

	_, err := f.engine.SubmitAndLockFirstUse(ctx, user, forms.SubmitInput{SlotID: f.ids[0], Type: "boletas"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.engine.SubmitAndLockFirstUse(ctx, user, forms.SubmitInput{SlotID: f.ids[0], Type: "compras", SIIRut: "12345678-4"})
	assert.ErrorIs(t, err, domain.ErrInvalidIdentifier)
}

func TestSubmit_RequiereSuscripcionActiva(t *testing.T) {
	f := setup(t, false)

	_, err := f.engine.SubmitAndLockFirstUse(context.Background(), user, forms.SubmitInput{SlotID: f.ids[0], Type: "compras"})
	assert.ErrorIs(t, err, domain.ErrNoActiveSubscription)
}

func TestGetForm_SoloDelUsuario(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()
	_, err := f.slots.SetIdentifier(ctx, user, f.ids[0], "76.354.771-K")
	require.NoError(t, err)
	sub, err := f.engine.SubmitAndLockFirstUse(ctx, user, forms.SubmitInput{SlotID: f.ids[0], Type: "ventas"})
	require.NoError(t, err)

	got, err := f.engine.GetForm(ctx, user, sub.Form.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.Form.ID, got.ID)
	assert.Equal(t, entity.FormStored, got.Status)

	_, err = f.engine.GetForm(ctx, "otro-usuario", sub.Form.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.engine.GetForm(ctx, user, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestComplete_RegistraRespuestaDelSII(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()
	_, err := f.slots.SetIdentifier(ctx, user, f.ids[0], "76.354.771-K")
	require.NoError(t, err)
	ok, err := f.engine.SubmitAndLockFirstUse(ctx, user, forms.SubmitInput{SlotID: f.ids[0], Type: "compras"})
	require.NoError(t, err)
	failed, err := f.engine.SubmitAndLockFirstUse(ctx, user, forms.SubmitInput{SlotID: f.ids[0], Type: "ventas"})
	require.NoError(t, err)

	done, err := f.engine.Complete(ctx, user, ok.Form.ID, "")
	require.NoError(t, err)
	assert.Equal(t, entity.FormDone, done.Status)
	assert.Empty(t, done.ErrorMessage)

	rejected, err := f.engine.Complete(ctx, user, failed.Form.ID, "  rechazado por el SII ")
	require.NoError(t, err)
	assert.Equal(t, entity.FormError, rejected.Status)
	assert.Equal(t, "rechazado por el SII", rejected.ErrorMessage)

	// ya resuelto
	_, err = f.engine.Complete(ctx, user, ok.Form.ID, "tarde")
	assert.ErrorIs(t, err, domain.ErrConflict)
	_, err = f.engine.Complete(ctx, user, "no-existe", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// el slot sigue bloqueado aunque el envío haya fallado
	list, err := f.mem.Slots().ListByUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, entity.SlotLocked, list[0].State)
	assert.Equal(t, 2, countActions(f.mem.AuditEntries(), entity.AuditFormCompleted))
}
