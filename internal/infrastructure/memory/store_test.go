package memory_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/rutslots-api/internal/application/ports"
	"github.com/jhoicas/rutslots-api/internal/domain"
	"github.com/jhoicas/rutslots-api/internal/domain/entity"
	"github.com/jhoicas/rutslots-api/internal/infrastructure/memory"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestRunForUser_RollbackDescartaCambios(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore(time.Second)

	boom := errors.New("boom")
	err := s.RunForUser(ctx, "u1", func(tx ports.UserTx) error {
		require.NoError(t, tx.Slots.Create(ctx, entity.NewEmptySlot("s1", "u1", 1, now)))
		return boom
	})
	require.ErrorIs(t, err, boom)

	slots, err := s.Slots().ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestRunForUser_CommitPublicaCambios(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore(time.Second)

	err := s.RunForUser(ctx, "u1", func(tx ports.UserTx) error {
		if err := tx.Slots.Create(ctx, entity.NewEmptySlot("s2", "u1", 2, now)); err != nil {
			return err
		}
		return tx.Slots.Create(ctx, entity.NewEmptySlot("s1", "u1", 1, now))
	})
	require.NoError(t, err)

	slots, err := s.Slots().ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, 1, slots[0].SlotIndex)
	assert.Equal(t, 2, slots[1].SlotIndex)
}

func TestRunForUser_SerializaPorUsuario(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore(5 * time.Second)

	var inside, maxInside int32
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			return s.RunForUser(gctx, "u1", func(tx ports.UserTx) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInside))
}

func TestRunForUser_TimeoutDeBloqueo(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore(20 * time.Millisecond)

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.RunForUser(ctx, "u1", func(ports.UserTx) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	err := s.RunForUser(ctx, "u1", func(ports.UserTx) error { return nil })
	assert.ErrorIs(t, err, domain.ErrLockTimeout)

	// otro usuario no compite por el mismo bloqueo
	assert.NoError(t, s.RunForUser(ctx, "u2", func(ports.UserTx) error { return nil }))

	close(release)
	require.NoError(t, <-done)
}

func TestSlotUpdate_RUTDuplicadoEnElMismoUsuario(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore(time.Second)
	a := entity.NewEmptySlot("a", "u1", 1, now)
	b := entity.NewEmptySlot("b", "u1", 2, now)
	require.NoError(t, s.Slots().Create(ctx, a))
	require.NoError(t, s.Slots().Create(ctx, b))

	a.Assign("12345678-5", now)
	require.NoError(t, s.Slots().Update(ctx, a))

	b.Assign("12345678-5", now)
	assert.ErrorIs(t, s.Slots().Update(ctx, b), domain.ErrDuplicateIdentifier)

	// otro usuario puede usar el mismo RUT
	c := entity.NewEmptySlot("c", "u2", 1, now)
	require.NoError(t, s.Slots().Create(ctx, c))
	c.Assign("12345678-5", now)
	assert.NoError(t, s.Slots().Update(ctx, c))
}

func TestWebhookRecord_Deduplica(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore(time.Second)
	repo := s.WebhookEvents()

	first, inserted, err := repo.Record(ctx, &entity.WebhookEvent{Provider: "mercadopago", ProviderEventID: "evt-1"})
	require.NoError(t, err)
	assert.True(t, inserted)

	again, inserted, err := repo.Record(ctx, &entity.WebhookEvent{Provider: "mercadopago", ProviderEventID: "evt-1"})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, first.ID, again.ID)

	require.NoError(t, repo.MarkProcessed(ctx, first.ID, ""))
	assert.True(t, s.WebhookEvent("mercadopago", "evt-1").Handled())
}
