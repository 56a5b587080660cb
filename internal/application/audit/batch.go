package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/rutslots-api/internal/domain/entity"
)

// Batch acumula hechos durante una transacción; se entregan al sumidero solo después del commit.
type Batch struct {
	entries []entity.AuditEntry
}

// Add agrega un hecho. userID vacío se registra como evento de sistema.
func (b *Batch) Add(userID, action, entityName, entityID string, metadata map[string]any, at time.Time) {
	var uid *string
	if userID != "" {
		u := userID
		uid = &u
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	b.entries = append(b.entries, entity.AuditEntry{
		ID:       uuid.New().String(),
		UserID:   uid,
		Action:   action,
		Entity:   entityName,
		EntityID: entityID,
		Metadata: metadata,
		At:       at,
	})
}

// SlotTransition registra el cambio de estado de un slot (solo si hubo cambio).
func (b *Batch) SlotTransition(slot *entity.RutSlot, from entity.SlotState, at time.Time) {
	if from == slot.State {
		return
	}
	b.Add(slot.UserID, entity.AuditSlotStateChanged, entity.AuditEntitySlot, slot.ID, map[string]any{
		"from":       string(from),
		"to":         string(slot.State),
		"rut":        slot.RUT,
		"slot_index": slot.SlotIndex,
	}, at)
}

// Append agrega hechos ya construidos.
func (b *Batch) Append(entries ...entity.AuditEntry) {
	b.entries = append(b.entries, entries...)
}

// Entries devuelve los hechos acumulados.
func (b *Batch) Entries() []entity.AuditEntry {
	return b.entries
}

// Reset descarta lo acumulado (p. ej. antes de reintentar una tx).
func (b *Batch) Reset() {
	b.entries = b.entries[:0]
}
