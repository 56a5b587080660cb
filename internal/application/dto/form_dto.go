package dto

import "time"

// SubmitFormRequest envío de formulario con un slot.
type SubmitFormRequest struct {
	SlotID string `json:"slot_id"`
	Type   string `json:"type"`              // compras | ventas
	SIIRut string `json:"sii_rut,omitempty"` // opcional; por defecto el RUT del slot
}

// FormResponse formulario registrado.
type FormResponse struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	SIIRut      string     `json:"sii_rut"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// CompleteFormRequest respuesta del SII; error vacío significa envío aceptado.
type CompleteFormRequest struct {
	Error string `json:"error,omitempty"`
}

// SubmitFormResponse formulario y estado final del slot.
type SubmitFormResponse struct {
	Form       FormResponse `json:"form"`
	Slot       SlotResponse `json:"slot"`
	LockedSlot bool         `json:"locked_slot"`
}
