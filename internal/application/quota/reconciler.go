// Package quota sincroniza la cantidad de slots de RUT de un usuario con el cupo de su plan.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/rutslots-api/internal/application/audit"
	"github.com/jhoicas/rutslots-api/internal/application/ports"
	"github.com/jhoicas/rutslots-api/internal/domain"
	"github.com/jhoicas/rutslots-api/internal/domain/entity"
	"github.com/jhoicas/rutslots-api/internal/domain/repository"
)

// DefaultMaxQuota cupo máximo aceptado si no se configura otro.
const DefaultMaxQuota = 50

// Config opciones del reconciliador.
type Config struct {
	MaxQuota int
	Clock    func() time.Time
}

// Result resumen de una reconciliación.
type Result struct {
	Created  int `json:"created"`
	Removed  int `json:"removed"`
	Unlocked int `json:"unlocked"`
}

// Changed informa si la reconciliación modificó algún slot.
func (r Result) Changed() bool {
	return r.Created > 0 || r.Removed > 0 || r.Unlocked > 0
}

// Reconciler ajusta los slots al cupo: al subir crea slots vacíos hasta el cupo, al bajar elimina los de
// mayor índice. En ambos casos desbloquea los que quedan (cambio de plan = nuevo período de uso).
type Reconciler struct {
	txRunner ports.UserTxRunner
	audit    ports.AuditSink
	maxQuota int
	now      func() time.Time
}

// NewReconciler construye el reconciliador.
func NewReconciler(txRunner ports.UserTxRunner, sink ports.AuditSink, cfg Config) *Reconciler {
	maxQuota := cfg.MaxQuota
	if maxQuota <= 0 {
		maxQuota = DefaultMaxQuota
	}
	now := cfg.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Reconciler{txRunner: txRunner, audit: sink, maxQuota: maxQuota, now: now}
}

// Reconcile ajusta los slots del usuario a newQuota en su propia transacción.
// Si no se obtiene el bloqueo del usuario a tiempo devuelve ErrReconcileConflict (reintentable).
func (r *Reconciler) Reconcile(ctx context.Context, userID string, newQuota int) (Result, error) {
	if err := r.validate(userID, newQuota); err != nil {
		return Result{}, err
	}
	var (
		res     Result
		entries []entity.AuditEntry
	)
	err := r.txRunner.RunForUser(ctx, userID, func(tx ports.UserTx) error {
		var err error
		res, entries, err = r.ReconcileInTx(ctx, tx.Slots, userID, newQuota, r.now())
		return err
	})
	if err != nil {
		return Result{}, AsConflict(err)
	}
	r.audit.Record(ctx, entries...)
	return res, nil
}

// ReconcileInTx aplica la reconciliación con el repositorio de la tx del llamador, que ya tiene el bloqueo
// del usuario. Los hechos de auditoría se devuelven para registrarlos después del commit.
func (r *Reconciler) ReconcileInTx(
	ctx context.Context,
	slots repository.RutSlotRepository,
	userID string,
	newQuota int,
	now time.Time,
) (Result, []entity.AuditEntry, error) {
	if err := r.validate(userID, newQuota); err != nil {
		return Result{}, nil, err
	}

	current, err := slots.ListByUserForUpdate(ctx, userID)
	if err != nil {
		return Result{}, nil, AsConflict(err)
	}
	previous := len(current)

	var (
		res   Result
		batch audit.Batch
	)
	switch {
	case newQuota > previous:
		for _, s := range current {
			if err := r.unlock(ctx, slots, &batch, s, now, &res); err != nil {
				return Result{}, nil, err
			}
		}
		for idx := previous + 1; idx <= newQuota; idx++ {
			slot := entity.NewEmptySlot(uuid.New().String(), userID, idx, now)
			if err := slots.Create(ctx, slot); err != nil {
				return Result{}, nil, fmt.Errorf("crear slot %d: %w", idx, err)
			}
			res.Created++
			batch.Add(userID, entity.AuditSlotCreated, entity.AuditEntitySlot, slot.ID, map[string]any{
				"slot_index": idx,
			}, now)
		}

	case newQuota < previous:
		for _, s := range current {
			if s.SlotIndex > newQuota {
				batch.Add(userID, entity.AuditSlotRemoved, entity.AuditEntitySlot, s.ID, map[string]any{
					"slot_index": s.SlotIndex,
					"rut":        s.RUT,
					"state":      string(s.State),
				}, now)
			}
		}
		removed, err := slots.DeleteAbove(ctx, userID, newQuota)
		if err != nil {
			return Result{}, nil, fmt.Errorf("eliminar slots sobre %d: %w", newQuota, err)
		}
		res.Removed = removed
		for _, s := range current {
			if s.SlotIndex > newQuota {
				continue
			}
			if err := r.unlock(ctx, slots, &batch, s, now, &res); err != nil {
				return Result{}, nil, err
			}
		}
	}

	if res.Changed() {
		batch.Add(userID, entity.AuditSubscriptionSync, entity.AuditEntitySubscription, userID, map[string]any{
			"quota":    newQuota,
			"previous": previous,
			"result":   map[string]any{"created": res.Created, "removed": res.Removed, "unlocked": res.Unlocked},
		}, now)
	}
	return res, batch.Entries(), nil
}

func (r *Reconciler) unlock(ctx context.Context, slots repository.RutSlotRepository, batch *audit.Batch, s *entity.RutSlot, now time.Time, res *Result) error {
	from := s.State
	if !s.ForceUnlock(now) {
		return nil
	}
	if err := slots.Update(ctx, s); err != nil {
		return fmt.Errorf("desbloquear slot %d: %w", s.SlotIndex, err)
	}
	res.Unlocked++
	batch.SlotTransition(s, from, now)
	return nil
}

// MaxQuota cupo máximo que acepta el reconciliador.
func (r *Reconciler) MaxQuota() int { return r.maxQuota }

// ValidatePlanQuota exige un cupo de plan en 1..maxQuota.
func ValidatePlanQuota(p *entity.Plan, maxQuota int) error {
	if maxQuota <= 0 {
		maxQuota = DefaultMaxQuota
	}
	if p.RUTQuota < 1 || p.RUTQuota > maxQuota {
		return fmt.Errorf("%w: plan %s con cupo %d fuera de rango (1..%d)", domain.ErrPlanMisconfigured, p.Code, p.RUTQuota, maxQuota)
	}
	return nil
}

func (r *Reconciler) validate(userID string, quota int) error {
	if userID == "" {
		return fmt.Errorf("%w: usuario requerido", domain.ErrInvalidInput)
	}
	if quota < 0 || quota > r.maxQuota {
		return fmt.Errorf("%w: cupo %d fuera de rango (0..%d)", domain.ErrInvalidInput, quota, r.maxQuota)
	}
	return nil
}

// AsConflict traduce la espera de bloqueo agotada a ErrReconcileConflict; el resto pasa igual.
func AsConflict(err error) error {
	if err == nil || errors.Is(err, domain.ErrReconcileConflict) {
		return err
	}
	if errors.Is(err, domain.ErrLockTimeout) {
		return fmt.Errorf("%w: %w", domain.ErrReconcileConflict, err)
	}
	return err
}
