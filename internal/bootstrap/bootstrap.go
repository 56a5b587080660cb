// Package bootstrap arma el backend de persistencia elegido por configuración y los servicios de
// aplicación sobre él. Lo comparten la API y la CLI.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/rutslots-api/internal/application/audit"
	"github.com/jhoicas/rutslots-api/internal/application/billing"
	"github.com/jhoicas/rutslots-api/internal/application/forms"
	"github.com/jhoicas/rutslots-api/internal/application/ports"
	"github.com/jhoicas/rutslots-api/internal/application/quota"
	"github.com/jhoicas/rutslots-api/internal/application/slots"
	"github.com/jhoicas/rutslots-api/internal/application/subscription"
	"github.com/jhoicas/rutslots-api/internal/domain/entity"
	"github.com/jhoicas/rutslots-api/internal/domain/repository"
	"github.com/jhoicas/rutslots-api/internal/infrastructure/memory"
	"github.com/jhoicas/rutslots-api/internal/infrastructure/postgres"
	"github.com/jhoicas/rutslots-api/pkg/config"
	"github.com/jhoicas/rutslots-api/pkg/logger"
)

// Backend repositorios y runner transaccional de un driver de almacenamiento.
type Backend struct {
	Driver        string
	TxRunner      ports.UserTxRunner
	Slots         repository.RutSlotRepository
	Plans         repository.PlanRepository
	Subscriptions repository.SubscriptionRepository
	AuditLogs     repository.AuditLogRepository
	WebhookEvents repository.WebhookEventRepository
	// Pool es nil con el driver memory.
	Pool *pgxpool.Pool
}

// Open conecta el driver configurado. Con memory además carga el catálogo de planes por defecto.
func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		mem := memory.NewStore(cfg.Slots.LockTimeout)
		b := &Backend{
			Driver:        config.StorageMemory,
			TxRunner:      mem,
			Slots:         mem.Slots(),
			Plans:         mem.Plans(),
			Subscriptions: mem.Subscriptions(),
			AuditLogs:     mem.AuditLogs(),
			WebhookEvents: mem.WebhookEvents(),
		}
		if _, err := SeedPlans(ctx, b.Plans, cfg.Slots.MaxQuota); err != nil {
			return nil, err
		}
		return b, nil

	case config.StoragePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Driver:        config.StoragePostgres,
			TxRunner:      postgres.NewTxRunner(pool, cfg.Slots.LockTimeout),
			Slots:         postgres.NewRutSlotRepository(pool),
			Plans:         postgres.NewPlanRepository(pool),
			Subscriptions: postgres.NewSubscriptionRepository(pool),
			AuditLogs:     postgres.NewAuditLogRepository(pool),
			WebhookEvents: postgres.NewWebhookEventRepository(pool),
			Pool:          pool,
		}, nil

	default:
		return nil, fmt.Errorf("driver de almacenamiento %q no soportado", cfg.Storage.Driver)
	}
}

// Ping comprueba la conexión; con memory siempre responde.
func (b *Backend) Ping(ctx context.Context) error {
	if b.Pool == nil {
		return nil
	}
	return b.Pool.Ping(ctx)
}

// Close libera el pool si existe.
func (b *Backend) Close() {
	if b.Pool != nil {
		b.Pool.Close()
	}
}

// Services servicios de aplicación listos para usar.
type Services struct {
	Audit         *audit.Recorder
	Slots         *slots.Store
	Forms         *forms.Engine
	Reconciler    *quota.Reconciler
	Subscriptions *subscription.ActivationService
	Webhooks      *billing.WebhookService
	Returns       *billing.ReturnService
}

// NewServices construye los servicios sobre el backend.
func NewServices(b *Backend, cfg *config.Config, log *logger.Logger) *Services {
	rec := audit.NewRecorder(b.AuditLogs, log.Component("audit"))
	reconciler := quota.NewReconciler(b.TxRunner, rec, quota.Config{MaxQuota: cfg.Slots.MaxQuota})
	subs := subscription.NewActivationService(
		b.TxRunner, b.Plans, b.Subscriptions, b.Slots, reconciler, rec, log,
		subscription.Config{Retry: quota.RetryPolicy{
			MaxRetries:      cfg.Reconcile.MaxRetries,
			InitialInterval: cfg.Reconcile.Backoff,
			MaxInterval:     cfg.Reconcile.MaxBackoff,
		}},
	)
	return &Services{
		Audit:         rec,
		Slots:         slots.NewStore(b.TxRunner, b.Slots, rec, slots.Config{}),
		Forms:         forms.NewEngine(b.TxRunner, rec, nil),
		Reconciler:    reconciler,
		Subscriptions: subs,
		Webhooks: billing.NewWebhookService(b.WebhookEvents, subs, rec, log, billing.Config{
			WebhookSecret:   cfg.Billing.WebhookSecret,
			DefaultProvider: cfg.Billing.Provider,
		}),
		Returns: billing.NewReturnService(rec, nil),
	}
}

// DefaultPlans catálogo inicial (precios mensuales en CLP).
func DefaultPlans() []entity.Plan {
	return []entity.Plan{
		{Code: "basic", Name: "Básico", PriceMonth: decimal.NewFromInt(9990), RUTQuota: 1, IsActive: true},
		{Code: "pro", Name: "Pro", PriceMonth: decimal.NewFromInt(19990), RUTQuota: 2, IsActive: true},
		{Code: "enterprise", Name: "Empresa", PriceMonth: decimal.NewFromInt(34990), RUTQuota: 4, IsActive: true},
	}
}

// SeedPlans crea o corrige el catálogo por defecto. Devuelve cuántos planes fueron creados.
// Ningún plan se escribe si alguno excede maxQuota.
func SeedPlans(ctx context.Context, plans repository.PlanRepository, maxQuota int) (int, error) {
	catalog := DefaultPlans()
	for i := range catalog {
		if err := quota.ValidatePlanQuota(&catalog[i], maxQuota); err != nil {
			return 0, err
		}
	}
	var created int
	for _, p := range catalog {
		p := p
		ok, err := plans.Upsert(ctx, &p)
		if err != nil {
			return created, fmt.Errorf("seed plan %s: %w", p.Code, err)
		}
		if ok {
			created++
		}
	}
	return created, nil
}
