package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/rutslots-api/internal/domain/entity"
	"github.com/jhoicas/rutslots-api/internal/domain/repository"
)

var _ repository.WebhookEventRepository = (*WebhookEventRepo)(nil)

// WebhookEventRepo notificaciones del proveedor de pagos, únicas por (provider, provider_event_id).
type WebhookEventRepo struct {
	q Querier
}

// NewWebhookEventRepository construye el adaptador.
func NewWebhookEventRepository(q Querier) *WebhookEventRepo {
	return &WebhookEventRepo{q: q}
}

// Record inserta el evento; si ya existía devuelve el registro guardado con inserted=false.
func (r *WebhookEventRepo) Record(ctx context.Context, ev *entity.WebhookEvent) (*entity.WebhookEvent, bool, error) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	var payload any
	if len(ev.Payload) > 0 {
		payload = ev.Payload
	}
	insert := `
		INSERT INTO billing_webhook_events (id, provider, provider_event_id, event_type, status, external_reference, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (provider, provider_event_id) DO NOTHING`
	tag, err := r.q.Exec(ctx, insert, ev.ID, ev.Provider, ev.ProviderEventID, ev.EventType, ev.Status, ev.ExternalReference, payload, ev.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("record webhook: %w", err)
	}
	if tag.RowsAffected() == 1 {
		stored := *ev
		return &stored, true, nil
	}

	query := `
		SELECT id, provider, provider_event_id, event_type, status, external_reference, payload, processed_at, processing_error, created_at
		FROM billing_webhook_events WHERE provider = $1 AND provider_event_id = $2`
	var s entity.WebhookEvent
	err = r.q.QueryRow(ctx, query, ev.Provider, ev.ProviderEventID).Scan(
		&s.ID, &s.Provider, &s.ProviderEventID, &s.EventType, &s.Status, &s.ExternalReference, &s.Payload, &s.ProcessedAt, &s.ProcessingError, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, fmt.Errorf("record webhook: evento %s desaparecido", ev.ProviderEventID)
		}
		return nil, false, fmt.Errorf("get webhook: %w", err)
	}
	return &s, false, nil
}

// MarkProcessed fija processed_at y el error de procesamiento.
func (r *WebhookEventRepo) MarkProcessed(ctx context.Context, id string, processingError string) error {
	_, err := r.q.Exec(ctx, `UPDATE billing_webhook_events SET processed_at = now(), processing_error = $2 WHERE id = $1`, id, processingError)
	if err != nil {
		return fmt.Errorf("mark webhook processed: %w", err)
	}
	return nil
}
