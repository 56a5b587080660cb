package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/rutslots-api/internal/application/ports"
	"github.com/jhoicas/rutslots-api/internal/domain"
)

var _ ports.UserTxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL serializada por usuario.
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxRunner construye el runner. lockTimeout <= 0 deja el lock_timeout del servidor.
func NewTxRunner(pool *pgxpool.Pool, lockTimeout time.Duration) *TxRunner {
	return &TxRunner{pool: pool, lockTimeout: lockTimeout}
}

// RunForUser inicia una transacción, toma el advisory lock transaccional del usuario, ejecuta fn con
// repos atados a la tx y hace Commit o Rollback. El advisory lock se libera al terminar la tx.
func (r *TxRunner) RunForUser(ctx context.Context, userID string, fn func(tx ports.UserTx) error) error {
	if userID == "" {
		return domain.ErrInvalidInput
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if r.lockTimeout > 0 {
		// SET no acepta parámetros; el valor es un entero controlado por config.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("lock_timeout: %w", err)
		}
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, userID); err != nil {
		return translate(fmt.Errorf("bloqueo de usuario: %w", err))
	}

	err = fn(ports.UserTx{
		Slots:         NewRutSlotRepository(tx),
		Forms:         NewFormRepository(tx),
		Subscriptions: NewSubscriptionRepository(tx),
		History:       NewSubscriptionHistoryRepository(tx),
	})
	if err != nil {
		return translate(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return translate(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}
