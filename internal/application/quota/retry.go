package quota

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/jhoicas/rutslots-api/internal/domain"
)

// RetryPolicy reintentos ante ErrReconcileConflict.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy tres reintentos desde 50ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, InitialInterval: 50 * time.Millisecond, MaxInterval: time.Second}
}

// RetryOnConflict ejecuta fn y la repite con backoff exponencial mientras falle con ErrReconcileConflict.
// Cualquier otro error se devuelve de inmediato.
func RetryOnConflict(ctx context.Context, p RetryPolicy, fn func(ctx context.Context) error) error {
	exp := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		exp.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		exp.MaxInterval = p.MaxInterval
	}
	exp.Reset()

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil || !errors.Is(err, domain.ErrReconcileConflict) || attempt >= p.MaxRetries {
			return err
		}

		timer := time.NewTimer(exp.NextBackOff())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
