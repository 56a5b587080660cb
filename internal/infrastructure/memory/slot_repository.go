package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/rutslots-api/internal/domain"
	"github.com/jhoicas/rutslots-api/internal/domain/entity"
	"github.com/jhoicas/rutslots-api/internal/domain/repository"
)

var _ repository.RutSlotRepository = (*slotRepo)(nil)

type slotRepo base

func (r *slotRepo) ListByUser(_ context.Context, userID string) ([]*entity.RutSlot, error) {
	var out []*entity.RutSlot
	err := base(*r).with(userID, func(d *userData) error {
		out = make([]*entity.RutSlot, 0, len(d.slots))
		for _, sl := range d.slots {
			out = append(out, sl.Clone())
		}
		return nil
	})
	return out, err
}

// ListByUserForUpdate: el bloqueo ya lo tiene la tx del usuario.
func (r *slotRepo) ListByUserForUpdate(ctx context.Context, userID string) ([]*entity.RutSlot, error) {
	return r.ListByUser(ctx, userID)
}

func (r *slotRepo) GetForUpdate(_ context.Context, userID, slotID string) (*entity.RutSlot, error) {
	var out *entity.RutSlot
	err := base(*r).with(userID, func(d *userData) error {
		for _, sl := range d.slots {
			if sl.ID == slotID {
				out = sl.Clone()
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *slotRepo) Create(_ context.Context, slot *entity.RutSlot) error {
	return base(*r).with(slot.UserID, func(d *userData) error {
		for _, sl := range d.slots {
			if sl.SlotIndex == slot.SlotIndex || sl.ID == slot.ID {
				return domain.ErrConflict
			}
		}
		d.slots = append(d.slots, slot.Clone())
		sort.Slice(d.slots, func(i, j int) bool { return d.slots[i].SlotIndex < d.slots[j].SlotIndex })
		return nil
	})
}

func (r *slotRepo) Update(_ context.Context, slot *entity.RutSlot) error {
	return base(*r).with(slot.UserID, func(d *userData) error {
		idx := -1
		for i, sl := range d.slots {
			if sl.ID == slot.ID {
				idx = i
				continue
			}
			if slot.RUT != "" && sl.RUT == slot.RUT {
				return domain.ErrDuplicateIdentifier
			}
		}
		if idx < 0 {
			return domain.ErrSlotNotFound
		}
		d.slots[idx] = slot.Clone()
		return nil
	})
}

func (r *slotRepo) DeleteAbove(_ context.Context, userID string, maxIndex int) (int, error) {
	removed := 0
	err := base(*r).with(userID, func(d *userData) error {
		kept := d.slots[:0]
		for _, sl := range d.slots {
			if sl.SlotIndex > maxIndex {
				removed++
				continue
			}
			kept = append(kept, sl)
		}
		d.slots = kept
		return nil
	})
	return removed, err
}

func (r *slotRepo) IdentifierInUse(_ context.Context, userID, rut, exceptSlotID string) (bool, error) {
	inUse := false
	err := base(*r).with(userID, func(d *userData) error {
		for _, sl := range d.slots {
			if sl.ID != exceptSlotID && sl.RUT != "" && sl.RUT == rut {
				inUse = true
				return nil
			}
		}
		return nil
	})
	return inUse, err
}

// ListUsersWithSlots lee el estado confirmado.
func (r *slotRepo) ListUsersWithSlots(_ context.Context) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []string
	for id, d := range r.s.users {
		if len(d.slots) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
