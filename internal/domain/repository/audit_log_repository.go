package repository

import (
	"context"

	"github.com/jhoicas/rutslots-api/internal/domain/entity"
)

// AuditLogRepository sumidero append-only de hechos de auditoría.
type AuditLogRepository interface {
	Append(ctx context.Context, entries ...entity.AuditEntry) error
}
