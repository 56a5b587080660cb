package entity

import "time"

// SlotState estado de un slot de RUT.
type SlotState string

const (
	SlotEmpty     SlotState = "empty"     // sin RUT
	SlotAvailable SlotState = "available" // con RUT, editable
	SlotLocked    SlotState = "locked"    // usado en un formulario; RUT inmutable
)

// RutSlot es una unidad de cupo de un usuario que puede contener un RUT.
// SlotIndex es 1-based y único por usuario; RUT está normalizado o vacío.
type RutSlot struct {
	ID             string
	UserID         string
	SlotIndex      int
	RUT            string
	State          SlotState
	LockedAt       *time.Time
	LockedByFormID *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewEmptySlot construye el slot vacío que crea el reconciliador de cupo.
func NewEmptySlot(id, userID string, index int, now time.Time) *RutSlot {
	return &RutSlot{
		ID:        id,
		UserID:    userID,
		SlotIndex: index,
		State:     SlotEmpty,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsLocked informa si el slot está bloqueado.
func (s *RutSlot) IsLocked() bool { return s.State == SlotLocked }

// Assign fija un RUT ya normalizado y validado en un slot no bloqueado y recalcula el estado.
// Un RUT vacío deja el slot en empty. Devuelve false si el slot está bloqueado (no hay cambio).
func (s *RutSlot) Assign(normalized string, now time.Time) bool {
	if s.IsLocked() {
		return false
	}
	s.RUT = normalized
	if normalized == "" {
		s.State = SlotEmpty
	} else {
		s.State = SlotAvailable
	}
	s.LockedAt = nil
	s.LockedByFormID = nil
	s.UpdatedAt = now
	return true
}

// Clear vacía un slot no bloqueado.
func (s *RutSlot) Clear(now time.Time) bool {
	return s.Assign("", now)
}

// Lock bloquea el slot al formulario que lo usó por primera vez.
// Es el único camino hacia SlotLocked y solo aplica si el slot está available.
func (s *RutSlot) Lock(formID string, now time.Time) bool {
	if s.State != SlotAvailable {
		return false
	}
	s.State = SlotLocked
	t := now
	s.LockedAt = &t
	id := formID
	s.LockedByFormID = &id
	s.UpdatedAt = now
	return true
}

// ForceUnlock libera un slot bloqueado (solo para el reconciliador de cupo). El RUT se conserva.
func (s *RutSlot) ForceUnlock(now time.Time) bool {
	if !s.IsLocked() {
		return false
	}
	if s.RUT == "" {
		s.State = SlotEmpty
	} else {
		s.State = SlotAvailable
	}
	s.LockedAt = nil
	s.LockedByFormID = nil
	s.UpdatedAt = now
	return true
}

// NormalizeState recalcula el estado a partir de los campos (slots heredados):
// locked si tiene campos de bloqueo, si no available/empty según el RUT.
func (s *RutSlot) NormalizeState() (SlotState, bool) {
	var next SlotState
	switch {
	case s.LockedAt != nil || s.State == SlotLocked:
		next = SlotLocked
	case s.RUT != "":
		next = SlotAvailable
	default:
		next = SlotEmpty
	}
	prev := s.State
	s.State = next
	return prev, prev != next
}

// Clone copia profunda del slot.
func (s *RutSlot) Clone() *RutSlot {
	c := *s
	if s.LockedAt != nil {
		t := *s.LockedAt
		c.LockedAt = &t
	}
	if s.LockedByFormID != nil {
		id := *s.LockedByFormID
		c.LockedByFormID = &id
	}
	return &c
}
