package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/rutslots-api/internal/domain/entity"
	"github.com/jhoicas/rutslots-api/internal/domain/repository"
)

var _ repository.AuditLogRepository = (*AuditLogRepo)(nil)

// AuditLogRepo bitácora append-only.
type AuditLogRepo struct {
	q Querier
}

// NewAuditLogRepository construye el adaptador.
func NewAuditLogRepository(q Querier) *AuditLogRepo {
	return &AuditLogRepo{q: q}
}

// Append inserta los hechos en un solo batch.
func (r *AuditLogRepo) Append(ctx context.Context, entries ...entity.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, entity, entity_id, metadata, at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(query, e.ID, e.UserID, e.Action, e.Entity, e.EntityID, e.Metadata, e.At)
	}
	br := r.q.SendBatch(ctx, batch)
	defer br.Close()
	for range entries {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("append audit log: %w", err)
		}
	}
	return nil
}
