package quota_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/rutslots-api/internal/application/audit"
	"github.com/jhoicas/rutslots-api/internal/application/ports"
	"github.com/jhoicas/rutslots-api/internal/application/quota"
	"github.com/jhoicas/rutslots-api/internal/domain"
	"github.com/jhoicas/rutslots-api/internal/domain/entity"
	"github.com/jhoicas/rutslots-api/internal/infrastructure/memory"
	"github.com/jhoicas/rutslots-api/pkg/logger"
)

const user = "user-1"

func newReconciler(t *testing.T, lockTimeout time.Duration) (*memory.Store, *quota.Reconciler) {
	t.Helper()
	store := memory.NewStore(lockTimeout)
	rec := audit.NewRecorder(store.AuditLogs(), logger.Nop())
	return store, quota.NewReconciler(store, rec, quota.Config{MaxQuota: 10})
}

func slotsOf(t *testing.T, store *memory.Store, userID string) []*entity.RutSlot {
	t.Helper()
	slots, err := store.Slots().ListByUser(context.Background(), userID)
	require.NoError(t, err)
	return slots
}

// assignAndLock deja el slot idx con un RUT y bloqueado, como si se hubiera usado en un formulario.
func assignAndLock(t *testing.T, store *memory.Store, idx int, rutValue string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.RunForUser(ctx, user, func(tx ports.UserTx) error {
		slots, err := tx.Slots.ListByUserForUpdate(ctx, user)
		if err != nil {
			return err
		}
		s := slots[idx-1]
		s.Assign(rutValue, time.Now())
		s.Lock("form-"+rutValue, time.Now())
		return tx.Slots.Update(ctx, s)
	}))
}

func assertContiguousUnlocked(t *testing.T, slots []*entity.RutSlot, quota int) {
	t.Helper()
	require.Len(t, slots, quota)
	for i, s := range slots {
		assert.Equal(t, i+1, s.SlotIndex)
		assert.False(t, s.IsLocked(), "slot %d sigue bloqueado", s.SlotIndex)
		assert.Nil(t, s.LockedAt)
		assert.Nil(t, s.LockedByFormID)
	}
}

func TestReconcile_CreaSlotsVacios(t *testing.T) {
	store, r := newReconciler(t, time.Second)

	res, err := r.Reconcile(context.Background(), user, 2)
	require.NoError(t, err)
	assert.Equal(t, quota.Result{Created: 2}, res)

	slots := slotsOf(t, store, user)
	assertContiguousUnlocked(t, slots, 2)
	for _, s := range slots {
		assert.Equal(t, entity.SlotEmpty, s.State)
		assert.Empty(t, s.RUT)
	}
}

// Escenario: plan pro con slot 1 bloqueado; subir a enterprise desbloquea y agrega dos slots vacíos.
func TestReconcile_SubirDesbloqueaYConservaRUT(t *testing.T) {
	store, r := newReconciler(t, time.Second)
	ctx := context.Background()
	_, err := r.Reconcile(ctx, user, 2)
	require.NoError(t, err)
	assignAndLock(t, store, 1, "12345678-5")

	res, err := r.Reconcile(ctx, user, 4)
	require.NoError(t, err)
	assert.Equal(t, quota.Result{Created: 2, Unlocked: 1}, res)

	slots := slotsOf(t, store, user)
	assertContiguousUnlocked(t, slots, 4)
	assert.Equal(t, "12345678-5", slots[0].RUT)
	assert.Equal(t, entity.SlotAvailable, slots[0].State)
	assert.Equal(t, entity.SlotEmpty, slots[2].State)
	assert.Equal(t, entity.SlotEmpty, slots[3].State)
}

// Escenario: enterprise con slots 1 y 3 bloqueados; bajar a basic elimina 2..4 y desbloquea el 1.
func TestReconcile_BajarEliminaIndicesAltos(t *testing.T) {
	store, r := newReconciler(t, time.Second)
	ctx := context.Background()
	_, err := r.Reconcile(ctx, user, 4)
	require.NoError(t, err)
	assignAndLock(t, store, 1, "12345678-5")
	assignAndLock(t, store, 3, "11111111-1")

	res, err := r.Reconcile(ctx, user, 1)
	require.NoError(t, err)
	assert.Equal(t, quota.Result{Removed: 3, Unlocked: 1}, res)

	slots := slotsOf(t, store, user)
	assertContiguousUnlocked(t, slots, 1)
	assert.Equal(t, "12345678-5", slots[0].RUT)
}

func TestReconcile_MismoCupoNoHaceNada(t *testing.T) {
	store, r := newReconciler(t, time.Second)
	ctx := context.Background()
	_, err := r.Reconcile(ctx, user, 2)
	require.NoError(t, err)
	before := len(store.AuditEntries())

	res, err := r.Reconcile(ctx, user, 2)
	require.NoError(t, err)
	assert.False(t, res.Changed())
	assert.Len(t, store.AuditEntries(), before)
}

func TestReconcile_CupoCeroEliminaTodo(t *testing.T) {
	store, r := newReconciler(t, time.Second)
	ctx := context.Background()
	_, err := r.Reconcile(ctx, user, 3)
	require.NoError(t, err)

	res, err := r.Reconcile(ctx, user, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Removed)
	assert.Empty(t, slotsOf(t, store, user))
}

func TestReconcile_CupoFueraDeRango(t *testing.T) {
	_, r := newReconciler(t, time.Second)
	for _, q := range []int{-1, 11} {
		_, err := r.Reconcile(context.Background(), user, q)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "cupo %d", q)
	}
}

func TestReconcile_RegistraAuditoria(t *testing.T) {
	store, r := newReconciler(t, time.Second)
	ctx := context.Background()
	_, err := r.Reconcile(ctx, user, 2)
	require.NoError(t, err)
	assignAndLock(t, store, 1, "12345678-5")

	_, err = r.Reconcile(ctx, user, 1)
	require.NoError(t, err)

	actions := map[string]int{}
	var sync entity.AuditEntry
	for _, e := range store.AuditEntries() {
		actions[e.Action]++
		if e.Action == entity.AuditSubscriptionSync {
			sync = e
		}
	}
	assert.Equal(t, 2, actions[entity.AuditSlotCreated])
	assert.Equal(t, 1, actions[entity.AuditSlotRemoved])
	assert.Equal(t, 1, actions[entity.AuditSlotStateChanged])
	assert.Equal(t, 2, actions[entity.AuditSubscriptionSync])
	assert.Equal(t, 1, sync.Metadata["quota"])
	assert.Equal(t, 2, sync.Metadata["previous"])
}

// Reconciliaciones concurrentes del mismo usuario se serializan: el resultado final corresponde
// a alguno de los cupos pedidos, con índices contiguos y sin duplicados.
func TestReconcile_ConcurrenteSerializa(t *testing.T) {
	store, r := newReconciler(t, 5*time.Second)
	quotas := []int{1, 4, 2, 4, 1, 2, 3, 4}

	g, ctx := errgroup.WithContext(context.Background())
	for _, q := range quotas {
		g.Go(func() error {
			_, err := r.Reconcile(ctx, user, q)
			return err
		})
	}
	require.NoError(t, g.Wait())

	slots := slotsOf(t, store, user)
	assert.Contains(t, quotas, len(slots))
	assertContiguousUnlocked(t, slots, len(slots))
}

func TestReconcile_TimeoutEsConflicto(t *testing.T) {
	store, r := newReconciler(t, 20*time.Millisecond)
	ctx := context.Background()

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- store.RunForUser(ctx, user, func(ports.UserTx) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	_, err := r.Reconcile(ctx, user, 2)
	assert.ErrorIs(t, err, domain.ErrReconcileConflict)
	assert.ErrorIs(t, err, domain.ErrLockTimeout)

	close(release)
	require.NoError(t, <-done)
}

func TestRetryOnConflict(t *testing.T) {
	policy := quota.RetryPolicy{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

	calls := 0
	err := quota.RetryOnConflict(context.Background(), policy, func(context.Context) error {
		calls++
		if calls < 3 {
			return domain.ErrReconcileConflict
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = quota.RetryOnConflict(context.Background(), policy, func(context.Context) error {
		calls++
		return domain.ErrReconcileConflict
	})
	assert.ErrorIs(t, err, domain.ErrReconcileConflict)
	assert.Equal(t, 4, calls)

	calls = 0
	boom := errors.New("boom")
	err = quota.RetryOnConflict(context.Background(), policy, func(context.Context) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestValidatePlanQuota(t *testing.T) {
	for _, q := range []int{1, 4, 10} {
		assert.NoError(t, quota.ValidatePlanQuota(&entity.Plan{Code: "p", RUTQuota: q}, 10), q)
	}
	for _, q := range []int{-1, 0, 11} {
		assert.ErrorIs(t, quota.ValidatePlanQuota(&entity.Plan{Code: "p", RUTQuota: q}, 10), domain.ErrPlanMisconfigured, q)
	}
	_, r := newReconciler(t, time.Second)
	assert.Equal(t, 10, r.MaxQuota())
}
