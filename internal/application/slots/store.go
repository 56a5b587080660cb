package slots

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/rutslots-api/internal/application/audit"
	"github.com/jhoicas/rutslots-api/internal/application/ports"
	"github.com/jhoicas/rutslots-api/internal/domain"
	"github.com/jhoicas/rutslots-api/internal/domain/entity"
	"github.com/jhoicas/rutslots-api/internal/domain/repository"
	"github.com/jhoicas/rutslots-api/pkg/rut"
)

// Config opciones del store de slots.
type Config struct {
	// Clock fuente de tiempo; por defecto time.Now en UTC.
	Clock func() time.Time
}

// Store aplica las reglas de edición de slots de RUT (asignar, limpiar) sobre la tx del usuario.
type Store struct {
	txRunner ports.UserTxRunner
	slots    repository.RutSlotRepository
	audit    ports.AuditSink
	now      func() time.Time
}

// NewStore construye el store de slots.
func NewStore(txRunner ports.UserTxRunner, slots repository.RutSlotRepository, sink ports.AuditSink, cfg Config) *Store {
	now := cfg.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Store{txRunner: txRunner, slots: slots, audit: sink, now: now}
}

// GetSlots lista los slots del usuario ordenados por índice.
func (s *Store) GetSlots(ctx context.Context, userID string) ([]*entity.RutSlot, error) {
	if userID == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.slots.ListByUser(ctx, userID)
}

// SetIdentifier asigna un RUT al slot. Un texto vacío equivale a limpiar el slot.
// En un slot bloqueado solo se acepta el mismo RUT (no hay cambio); cualquier otro valor es ErrSlotLocked.
func (s *Store) SetIdentifier(ctx context.Context, userID, slotID, raw string) (*entity.RutSlot, error) {
	raw = strings.TrimSpace(raw)
	var result *entity.RutSlot
	batch := &audit.Batch{}

	err := s.txRunner.RunForUser(ctx, userID, func(tx ports.UserTx) error {
		batch.Reset()
		slot, err := s.lockSlot(ctx, tx, userID, slotID)
		if err != nil {
			return err
		}

		if slot.IsLocked() {
			normalized, err := rut.Normalize(raw)
			if err != nil || normalized != slot.RUT {
				return domain.ErrSlotLocked
			}
			result = slot
			return nil
		}

		var normalized string
		if raw != "" {
			normalized, err = rut.Normalize(raw)
			if err != nil {
				return fmt.Errorf("%w: %w", domain.ErrInvalidIdentifier, err)
			}
			if !rut.Validate(normalized) {
				return domain.ErrInvalidIdentifier
			}
			inUse, err := tx.Slots.IdentifierInUse(ctx, userID, normalized, slot.ID)
			if err != nil {
				return err
			}
			if inUse {
				return domain.ErrDuplicateIdentifier
			}
		}

		if normalized == slot.RUT && slot.LockedAt == nil {
			result = slot
			return nil
		}
		return s.apply(ctx, tx, batch, slot, normalized, &result)
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, batch.Entries()...)
	return result, nil
}

// ClearSlot vacía un slot no bloqueado.
func (s *Store) ClearSlot(ctx context.Context, userID, slotID string) (*entity.RutSlot, error) {
	var result *entity.RutSlot
	batch := &audit.Batch{}

	err := s.txRunner.RunForUser(ctx, userID, func(tx ports.UserTx) error {
		batch.Reset()
		slot, err := s.lockSlot(ctx, tx, userID, slotID)
		if err != nil {
			return err
		}
		if slot.IsLocked() {
			return domain.ErrSlotLocked
		}
		return s.apply(ctx, tx, batch, slot, "", &result)
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, batch.Entries()...)
	return result, nil
}

func (s *Store) lockSlot(ctx context.Context, tx ports.UserTx, userID, slotID string) (*entity.RutSlot, error) {
	if userID == "" || slotID == "" {
		return nil, domain.ErrSlotNotFound
	}
	slot, err := tx.Slots.GetForUpdate(ctx, userID, slotID)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, domain.ErrSlotNotFound
	}
	return slot, nil
}

func (s *Store) apply(ctx context.Context, tx ports.UserTx, batch *audit.Batch, slot *entity.RutSlot, normalized string, out **entity.RutSlot) error {
	now := s.now()
	from := slot.State
	if !slot.Assign(normalized, now) {
		return domain.ErrSlotLocked
	}
	if err := tx.Slots.Update(ctx, slot); err != nil {
		return err
	}
	batch.SlotTransition(slot, from, now)
	*out = slot
	return nil
}

// NormalizeStates recalcula el estado de los slots del usuario a partir de sus campos y persiste
// solo los que cambian. Devuelve cuántos se corrigieron.
func (s *Store) NormalizeStates(ctx context.Context, userID string) (int, error) {
	var fixed int
	batch := &audit.Batch{}
	err := s.txRunner.RunForUser(ctx, userID, func(tx ports.UserTx) error {
		batch.Reset()
		fixed = 0
		list, err := tx.Slots.ListByUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		now := s.now()
		for _, slot := range list {
			from, changed := slot.NormalizeState()
			if !changed {
				continue
			}
			slot.UpdatedAt = now
			if err := tx.Slots.Update(ctx, slot); err != nil {
				return err
			}
			batch.SlotTransition(slot, from, now)
			fixed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.audit.Record(ctx, batch.Entries()...)
	return fixed, nil
}

// NormalizeAll aplica NormalizeStates a todos los usuarios con slots. Sigue ante errores por usuario
// y los devuelve combinados.
func (s *Store) NormalizeAll(ctx context.Context) (int, error) {
	users, err := s.slots.ListUsersWithSlots(ctx)
	if err != nil {
		return 0, err
	}
	var total int
	var errs []error
	for _, id := range users {
		n, err := s.NormalizeStates(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("usuario %s: %w", id, err))
			continue
		}
		total += n
	}
	return total, errors.Join(errs...)
}
