package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/rutslots-api/internal/domain/entity"
	"github.com/jhoicas/rutslots-api/internal/domain/repository"
)

var (
	_ repository.SubscriptionRepository        = (*SubscriptionRepo)(nil)
	_ repository.SubscriptionHistoryRepository = (*SubscriptionHistoryRepo)(nil)
)

// SubscriptionRepo suscripción vigente (una fila por usuario).
type SubscriptionRepo struct {
	q Querier
}

// NewSubscriptionRepository construye el adaptador.
func NewSubscriptionRepository(q Querier) *SubscriptionRepo {
	return &SubscriptionRepo{q: q}
}

// GetByUser nil, nil si el usuario no tiene suscripción.
func (r *SubscriptionRepo) GetByUser(ctx context.Context, userID string) (*entity.Subscription, error) {
	query := `
		SELECT id, user_id, plan_id, status, activated_at, expires_at, auto_renew, provider, external_subscription_id
		FROM user_subscriptions WHERE user_id = $1`
	var s entity.Subscription
	var status string
	err := r.q.QueryRow(ctx, query, userID).Scan(
		&s.ID, &s.UserID, &s.PlanID, &status, &s.ActivatedAt, &s.ExpiresAt, &s.AutoRenew, &s.Provider, &s.ExternalSubscriptionID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, translate(fmt.Errorf("get subscription: %w", err))
	}
	s.Status = entity.SubscriptionStatus(status)
	return &s, nil
}

// Replace inserta o reemplaza completa la suscripción del usuario.
func (r *SubscriptionRepo) Replace(ctx context.Context, s *entity.Subscription) error {
	query := `
		INSERT INTO user_subscriptions (id, user_id, plan_id, status, activated_at, expires_at, auto_renew, provider, external_subscription_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE
		SET id = EXCLUDED.id, plan_id = EXCLUDED.plan_id, status = EXCLUDED.status,
		    activated_at = EXCLUDED.activated_at, expires_at = EXCLUDED.expires_at, auto_renew = EXCLUDED.auto_renew,
		    provider = EXCLUDED.provider, external_subscription_id = EXCLUDED.external_subscription_id`
	_, err := r.q.Exec(ctx, query, s.ID, s.UserID, s.PlanID, string(s.Status), s.ActivatedAt, s.ExpiresAt, s.AutoRenew, s.Provider, s.ExternalSubscriptionID)
	if err != nil {
		return translate(fmt.Errorf("replace subscription: %w", err))
	}
	return nil
}

// Delete elimina la suscripción vigente.
func (r *SubscriptionRepo) Delete(ctx context.Context, userID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM user_subscriptions WHERE user_id = $1`, userID); err != nil {
		return translate(fmt.Errorf("delete subscription: %w", err))
	}
	return nil
}

// ListSubscribedUsers usuarios con suscripción vigente.
func (r *SubscriptionRepo) ListSubscribedUsers(ctx context.Context) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT user_id FROM user_subscriptions ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list subscribed users: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SubscriptionHistoryRepo libro append-only de transiciones.
type SubscriptionHistoryRepo struct {
	q Querier
}

// NewSubscriptionHistoryRepository construye el adaptador.
func NewSubscriptionHistoryRepository(q Querier) *SubscriptionHistoryRepo {
	return &SubscriptionHistoryRepo{q: q}
}

// Append agrega una transición.
func (r *SubscriptionHistoryRepo) Append(ctx context.Context, h *entity.SubscriptionHistory) error {
	query := `
		INSERT INTO subscription_history (id, user_id, plan_id, status_from, status_to, valid_from, valid_to, price_paid, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query, h.ID, h.UserID, h.PlanID, string(h.StatusFrom), string(h.StatusTo), h.ValidFrom, h.ValidTo, h.PricePaid, h.Notes)
	if err != nil {
		return translate(fmt.Errorf("append subscription history: %w", err))
	}
	return nil
}

// ListByUser transiciones del usuario en orden cronológico.
func (r *SubscriptionHistoryRepo) ListByUser(ctx context.Context, userID string) ([]*entity.SubscriptionHistory, error) {
	query := `
		SELECT id, user_id, plan_id, status_from, status_to, valid_from, valid_to, price_paid, notes
		FROM subscription_history WHERE user_id = $1 ORDER BY created_at, valid_from`
	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscription history: %w", err)
	}
	defer rows.Close()
	var out []*entity.SubscriptionHistory
	for rows.Next() {
		var h entity.SubscriptionHistory
		var from, to string
		if err := rows.Scan(&h.ID, &h.UserID, &h.PlanID, &from, &to, &h.ValidFrom, &h.ValidTo, &h.PricePaid, &h.Notes); err != nil {
			return nil, fmt.Errorf("scan subscription history: %w", err)
		}
		h.StatusFrom = entity.SubscriptionStatus(from)
		h.StatusTo = entity.SubscriptionStatus(to)
		out = append(out, &h)
	}
	return out, rows.Err()
}
