package repository

import (
	"context"

	"github.com/jhoicas/rutslots-api/internal/domain/entity"
)

// SubscriptionRepository puerto para la suscripción vigente (una por usuario).
type SubscriptionRepository interface {
	// GetByUser devuelve nil, nil si el usuario no tiene suscripción.
	GetByUser(ctx context.Context, userID string) (*entity.Subscription, error)
	// Replace reemplaza completa la suscripción del usuario (insert o upsert por user_id).
	Replace(ctx context.Context, sub *entity.Subscription) error
	// Delete elimina la suscripción vigente; no falla si no existe.
	Delete(ctx context.Context, userID string) error
	// ListSubscribedUsers devuelve los IDs de usuarios con suscripción (para resincronizar).
	ListSubscribedUsers(ctx context.Context) ([]string, error)
}

// SubscriptionHistoryRepository libro append-only de transiciones de suscripción.
type SubscriptionHistoryRepository interface {
	Append(ctx context.Context, h *entity.SubscriptionHistory) error
	ListByUser(ctx context.Context, userID string) ([]*entity.SubscriptionHistory, error)
}
