// Package subscription activa, cancela y marca en mora suscripciones, y sincroniza los slots
// con el cupo del plan en la misma transacción.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/rutslots-api/internal/application/audit"
	"github.com/jhoicas/rutslots-api/internal/application/ports"
	"github.com/jhoicas/rutslots-api/internal/application/quota"
	"github.com/jhoicas/rutslots-api/internal/domain"
	"github.com/jhoicas/rutslots-api/internal/domain/entity"
	"github.com/jhoicas/rutslots-api/internal/domain/repository"
	"github.com/jhoicas/rutslots-api/pkg/logger"
)

// Orígenes de una activación.
const (
	SourceWebhook = "webhook"
	SourceAdmin   = "admin"
	SourceCLI     = "cli"
)

// Config opciones del servicio de suscripciones.
type Config struct {
	Retry quota.RetryPolicy
	// Period vigencia de una activación; por defecto un mes.
	Period time.Duration
	Clock  func() time.Time
}

// ActivateInput solicitud de activación de plan.
type ActivateInput struct {
	UserID                 string
	PlanCode               string
	Source                 string
	Provider               string
	ExternalSubscriptionID string
	PricePaid              *decimal.Decimal
	Notes                  string
}

// Activation resultado de una activación. NoOp es true si el plan ya estaba activo.
type Activation struct {
	Subscription *entity.Subscription
	Plan         *entity.Plan
	Sync         quota.Result
	NoOp         bool
}

// UserStatus resumen de la suscripción y los slots del usuario.
type UserStatus struct {
	Subscription *entity.Subscription
	Plan         *entity.Plan
	Slots        []*entity.RutSlot
}

// ActivationService punto de entrada de los cambios de plan.
type ActivationService struct {
	txRunner   ports.UserTxRunner
	plans      repository.PlanRepository
	subs       repository.SubscriptionRepository
	slots      repository.RutSlotRepository
	reconciler *quota.Reconciler
	audit      ports.AuditSink
	log        *logger.Logger
	retry      quota.RetryPolicy
	period     time.Duration
	now        func() time.Time
}

// NewActivationService construye el servicio.
func NewActivationService(
	txRunner ports.UserTxRunner,
	plans repository.PlanRepository,
	subs repository.SubscriptionRepository,
	slots repository.RutSlotRepository,
	reconciler *quota.Reconciler,
	sink ports.AuditSink,
	log *logger.Logger,
	cfg Config,
) *ActivationService {
	if cfg.Period <= 0 {
		cfg.Period = 30 * 24 * time.Hour
	}
	if cfg.Clock == nil {
		cfg.Clock = func() time.Time { return time.Now().UTC() }
	}
	return &ActivationService{
		txRunner:   txRunner,
		plans:      plans,
		subs:       subs,
		slots:      slots,
		reconciler: reconciler,
		audit:      sink,
		log:        log.Component("subscription"),
		retry:      cfg.Retry,
		period:     cfg.Period,
		now:        cfg.Clock,
	}
}

// ListPlans planes activos ordenados por cupo.
func (s *ActivationService) ListPlans(ctx context.Context) ([]*entity.Plan, error) {
	return s.plans.ListActive(ctx)
}

// Status suscripción vigente, plan y slots del usuario.
func (s *ActivationService) Status(ctx context.Context, userID string) (*UserStatus, error) {
	sub, err := s.subs.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := &UserStatus{Subscription: sub}
	if sub != nil {
		if out.Plan, err = s.plans.GetByID(ctx, sub.PlanID); err != nil {
			return nil, err
		}
	}
	if out.Slots, err = s.slots.ListByUser(ctx, userID); err != nil {
		return nil, err
	}
	return out, nil
}

// ActivatePlan reemplaza la suscripción vigente por el plan indicado y reconcilia los slots al cupo del
// plan, todo en una transacción. Si el mismo plan ya está activo no hace nada.
// Reintenta con backoff ante ErrReconcileConflict.
func (s *ActivationService) ActivatePlan(ctx context.Context, in ActivateInput) (*Activation, error) {
	if in.UserID == "" {
		return nil, fmt.Errorf("%w: usuario requerido", domain.ErrInvalidInput)
	}
	plan, err := s.activePlan(ctx, in.PlanCode)
	if err != nil {
		return nil, err
	}

	var out *Activation
	batch := &audit.Batch{}
	err = quota.RetryOnConflict(ctx, s.retry, func(ctx context.Context) error {
		batch.Reset()
		var err error
		out, err = s.activateOnce(ctx, batch, plan, in)
		return quota.AsConflict(err)
	})
	if err != nil {
		s.log.ForUser(in.UserID).Warn().Err(err).Str("plan", plan.Code).Msg("activación fallida")
		return nil, err
	}

	s.audit.Record(ctx, batch.Entries()...)
	if !out.NoOp {
		s.log.ForUser(in.UserID).Info().
			Str("plan", plan.Code).
			Str("source", in.Source).
			Int("created", out.Sync.Created).
			Int("removed", out.Sync.Removed).
			Int("unlocked", out.Sync.Unlocked).
			Msg("plan activado")
	}
	return out, nil
}

func (s *ActivationService) activateOnce(ctx context.Context, batch *audit.Batch, plan *entity.Plan, in ActivateInput) (*Activation, error) {
	var out *Activation
	err := s.txRunner.RunForUser(ctx, in.UserID, func(tx ports.UserTx) error {
		now := s.now()
		current, err := tx.Subscriptions.GetByUser(ctx, in.UserID)
		if err != nil {
			return err
		}
		if current.IsActive() && current.PlanID == plan.ID {
			out = &Activation{Subscription: current, Plan: plan, NoOp: true}
			return nil
		}

		from := entity.SubscriptionNone
		if current != nil {
			from = current.Status
		}
		expires := now.Add(s.period)
		sub := &entity.Subscription{
			ID:                     uuid.New().String(),
			UserID:                 in.UserID,
			PlanID:                 plan.ID,
			Status:                 entity.SubscriptionActive,
			ActivatedAt:            now,
			ExpiresAt:              &expires,
			AutoRenew:              true,
			Provider:               in.Provider,
			ExternalSubscriptionID: in.ExternalSubscriptionID,
		}
		if err := tx.Subscriptions.Replace(ctx, sub); err != nil {
			return fmt.Errorf("reemplazar suscripción: %w", err)
		}
		if err := tx.History.Append(ctx, &entity.SubscriptionHistory{
			ID:         uuid.New().String(),
			UserID:     in.UserID,
			PlanID:     plan.ID,
			StatusFrom: from,
			StatusTo:   entity.SubscriptionActive,
			ValidFrom:  now,
			ValidTo:    &expires,
			PricePaid:  in.PricePaid,
			Notes:      notes(in.Source, in.Notes),
		}); err != nil {
			return fmt.Errorf("registrar historial: %w", err)
		}

		res, entries, err := s.reconciler.ReconcileInTx(ctx, tx.Slots, in.UserID, plan.RUTQuota, now)
		if err != nil {
			return err
		}
		batch.Append(entries...)
		meta := map[string]any{"plan": plan.Code, "quota": plan.RUTQuota, "source": in.Source, "from": string(from)}
		if current != nil {
			meta["previous_plan_id"] = current.PlanID
		}
		batch.Add(in.UserID, entity.AuditSubscriptionActivate, entity.AuditEntitySubscription, sub.ID, meta, now)

		out = &Activation{Subscription: sub, Plan: plan, Sync: res}
		return nil
	})
	return out, err
}

// Cancel elimina la suscripción vigente, registra el historial y reconcilia los slots a cero.
func (s *ActivationService) Cancel(ctx context.Context, userID, reason string) (quota.Result, error) {
	var res quota.Result
	batch := &audit.Batch{}
	err := quota.RetryOnConflict(ctx, s.retry, func(ctx context.Context) error {
		batch.Reset()
		err := s.txRunner.RunForUser(ctx, userID, func(tx ports.UserTx) error {
			now := s.now()
			current, err := tx.Subscriptions.GetByUser(ctx, userID)
			if err != nil {
				return err
			}
			if current == nil {
				return domain.ErrNoActiveSubscription
			}
			if err := tx.Subscriptions.Delete(ctx, userID); err != nil {
				return fmt.Errorf("eliminar suscripción: %w", err)
			}
			if err := tx.History.Append(ctx, &entity.SubscriptionHistory{
				ID:         uuid.New().String(),
				UserID:     userID,
				PlanID:     current.PlanID,
				StatusFrom: current.Status,
				StatusTo:   entity.SubscriptionCanceled,
				ValidFrom:  current.ActivatedAt,
				ValidTo:    &now,
				Notes:      reason,
			}); err != nil {
				return fmt.Errorf("registrar historial: %w", err)
			}
			var entries []entity.AuditEntry
			res, entries, err = s.reconciler.ReconcileInTx(ctx, tx.Slots, userID, 0, now)
			if err != nil {
				return err
			}
			batch.Append(entries...)
			batch.Add(userID, entity.AuditSubscriptionCancel, entity.AuditEntitySubscription, current.ID, map[string]any{
				"plan_id": current.PlanID,
				"reason":  reason,
			}, now)
			return nil
		})
		return quota.AsConflict(err)
	})
	if err != nil {
		return quota.Result{}, err
	}
	s.audit.Record(ctx, batch.Entries()...)
	s.log.ForUser(userID).Info().Int("removed", res.Removed).Msg("suscripción cancelada")
	return res, nil
}

// MarkPastDue pasa a past_due la suscripción activa del plan indicado (pago rechazado o anulado).
// Los slots no cambian. Devuelve false si no había nada que marcar.
func (s *ActivationService) MarkPastDue(ctx context.Context, userID, planCode, reason string) (bool, error) {
	plan, err := s.plans.GetByCode(ctx, planCode)
	if err != nil {
		return false, err
	}
	if plan == nil {
		return false, domain.ErrPlanNotFound
	}

	marked := false
	batch := &audit.Batch{}
	err = s.txRunner.RunForUser(ctx, userID, func(tx ports.UserTx) error {
		batch.Reset()
		now := s.now()
		current, err := tx.Subscriptions.GetByUser(ctx, userID)
		if err != nil {
			return err
		}
		if !current.IsActive() || current.PlanID != plan.ID {
			return nil
		}
		current.Status = entity.SubscriptionPastDue
		if err := tx.Subscriptions.Replace(ctx, current); err != nil {
			return err
		}
		if err := tx.History.Append(ctx, &entity.SubscriptionHistory{
			ID:         uuid.New().String(),
			UserID:     userID,
			PlanID:     plan.ID,
			StatusFrom: entity.SubscriptionActive,
			StatusTo:   entity.SubscriptionPastDue,
			ValidFrom:  now,
			Notes:      reason,
		}); err != nil {
			return err
		}
		batch.Add(userID, entity.AuditSubscriptionPastDue, entity.AuditEntitySubscription, current.ID, map[string]any{
			"plan": plan.Code,
		}, now)
		marked = true
		return nil
	})
	if err != nil {
		return false, err
	}
	s.audit.Record(ctx, batch.Entries()...)
	return marked, nil
}

// ResyncAll reconcilia a cada usuario con suscripción al cupo de su plan. Los errores por usuario se
// acumulan y no detienen el recorrido.
func (s *ActivationService) ResyncAll(ctx context.Context) (int, error) {
	users, err := s.subs.ListSubscribedUsers(ctx)
	if err != nil {
		return 0, err
	}
	var (
		done int
		errs []error
	)
	for _, userID := range users {
		if err := s.resync(ctx, userID); err != nil {
			errs = append(errs, fmt.Errorf("usuario %s: %w", userID, err))
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}

func (s *ActivationService) resync(ctx context.Context, userID string) error {
	sub, err := s.subs.GetByUser(ctx, userID)
	if err != nil || sub == nil {
		return err
	}
	plan, err := s.plans.GetByID(ctx, sub.PlanID)
	if err != nil {
		return err
	}
	if plan == nil {
		return domain.ErrPlanNotFound
	}
	return quota.RetryOnConflict(ctx, s.retry, func(ctx context.Context) error {
		_, err := s.reconciler.Reconcile(ctx, userID, plan.RUTQuota)
		return err
	})
}

func (s *ActivationService) activePlan(ctx context.Context, code string) (*entity.Plan, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ErrPlanNotFound
	}
	plan, err := s.plans.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if plan == nil || !plan.IsActive {
		return nil, fmt.Errorf("%w: %s", domain.ErrPlanNotFound, code)
	}
	if err := quota.ValidatePlanQuota(plan, s.reconciler.MaxQuota()); err != nil {
		s.log.Error().Err(err).Str("plan", plan.Code).Msg("plan activo con cupo inválido")
		return nil, err
	}
	return plan, nil
}

func notes(source, extra string) string {
	if extra == "" {
		return "activación vía " + source
	}
	return "activación vía " + source + ": " + extra
}
