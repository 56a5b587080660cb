package dto

import "time"

// SetSlotRequest entrada para asignar un RUT a un slot. Vacío limpia el slot.
type SetSlotRequest struct {
	RUT string `json:"rut"`
}

// SlotResponse salida de un slot de RUT.
type SlotResponse struct {
	ID             string     `json:"id"`
	SlotIndex      int        `json:"slot_index"`
	RUT            string     `json:"rut"`
	State          string     `json:"state"`
	LockedAt       *time.Time `json:"locked_at,omitempty"`
	LockedByFormID *string    `json:"locked_by_form_id,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// SlotListResponse slots del usuario con totales por estado.
type SlotListResponse struct {
	Items     []SlotResponse `json:"items"`
	Total     int            `json:"total"`
	Available int            `json:"available"`
	Locked    int            `json:"locked"`
	Empty     int            `json:"empty"`
}
