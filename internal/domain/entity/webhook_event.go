package entity

import "time"

// WebhookEvent notificación recibida del proveedor de pagos, deduplicada por (Provider, ProviderEventID).
type WebhookEvent struct {
	ID                string
	Provider          string
	ProviderEventID   string
	EventType         string
	Status            string
	ExternalReference string
	Payload           []byte
	ProcessedAt       *time.Time
	ProcessingError   string
	CreatedAt         time.Time
}

// Handled informa si el evento ya se procesó sin error (no debe reprocesarse).
func (e *WebhookEvent) Handled() bool {
	return e.ProcessedAt != nil && e.ProcessingError == ""
}
