package repository

import (
	"context"

	"github.com/jhoicas/rutslots-api/internal/domain/entity"
)

// WebhookEventRepository registra notificaciones del proveedor de pagos para procesarlas una sola vez.
type WebhookEventRepository interface {
	// Record inserta el evento si (provider, provider_event_id) no existe y devuelve el registro vigente.
	// inserted es false cuando el evento ya estaba registrado.
	Record(ctx context.Context, ev *entity.WebhookEvent) (stored *entity.WebhookEvent, inserted bool, err error)
	// MarkProcessed fija processed_at y el error de procesamiento ("" si fue exitoso).
	MarkProcessed(ctx context.Context, id string, processingError string) error
}
