package ports

import (
	"context"

	"github.com/jhoicas/rutslots-api/internal/domain/entity"
	"github.com/jhoicas/rutslots-api/internal/domain/repository"
)

// UserTx agrupa los repositorios atados a una transacción serializada por usuario.
type UserTx struct {
	Slots         repository.RutSlotRepository
	Forms         repository.FormRepository
	Subscriptions repository.SubscriptionRepository
	History       repository.SubscriptionHistoryRepository
}

// UserTxRunner ejecuta fn dentro de una transacción que tiene el bloqueo exclusivo del usuario.
// Las operaciones concurrentes sobre el mismo usuario esperan; usuarios distintos no compiten.
// Si fn devuelve error se hace rollback completo; el bloqueo se libera en todos los caminos.
// Si la espera del bloqueo supera el timeout configurado devuelve domain.ErrLockTimeout.
type UserTxRunner interface {
	RunForUser(ctx context.Context, userID string, fn func(tx UserTx) error) error
}

// AuditSink recibe hechos de auditoría. Es best-effort: nunca falla la operación que los emite.
type AuditSink interface {
	Record(ctx context.Context, entries ...entity.AuditEntry)
}
