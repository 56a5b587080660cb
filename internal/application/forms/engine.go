// Package forms registra envíos de formularios al SII y bloquea el slot en su primer uso.
package forms

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/rutslots-api/internal/application/audit"
	"github.com/jhoicas/rutslots-api/internal/application/ports"
	"github.com/jhoicas/rutslots-api/internal/domain"
	"github.com/jhoicas/rutslots-api/internal/domain/entity"
	"github.com/jhoicas/rutslots-api/pkg/rut"
)

// SubmitInput datos de un envío de formulario.
type SubmitInput struct {
	SlotID string
	Type   string // compras | ventas
	SIIRut string // opcional; por defecto el RUT del slot
}

// Submission resultado del envío: formulario creado y estado final del slot.
type Submission struct {
	Form       *entity.Form
	Slot       *entity.RutSlot
	LockedSlot bool // true si este envío bloqueó el slot
}

// Engine motor de envío de formularios.
type Engine struct {
	txRunner ports.UserTxRunner
	audit    ports.AuditSink
	now      func() time.Time
}

// NewEngine construye el motor. clock nil usa time.Now en UTC.
func NewEngine(txRunner ports.UserTxRunner, sink ports.AuditSink, clock func() time.Time) *Engine {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{txRunner: txRunner, audit: sink, now: clock}
}

// SubmitAndLockFirstUse crea el formulario y, si el slot está available, lo bloquea al formulario.
// Todo ocurre en una transacción: si algo falla no queda formulario ni bloqueo.
// El slot se valida antes de persistir el formulario.
func (e *Engine) SubmitAndLockFirstUse(ctx context.Context, userID string, in SubmitInput) (*Submission, error) {
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	if !entity.IsValidFormType(in.Type) {
		return nil, fmt.Errorf("%w: tipo de formulario %q", domain.ErrInvalidInput, in.Type)
	}
	var siiRut string
	if raw := strings.TrimSpace(in.SIIRut); raw != "" {
		n, err := rut.Normalize(raw)
		if err != nil || !rut.Validate(n) {
			return nil, domain.ErrInvalidIdentifier
		}
		siiRut = n
	}

	var out *Submission
	batch := &audit.Batch{}
	err := e.txRunner.RunForUser(ctx, userID, func(tx ports.UserTx) error {
		batch.Reset()
		now := e.now()

		sub, err := tx.Subscriptions.GetByUser(ctx, userID)
		if err != nil {
			return err
		}
		if !sub.IsActive() {
			return domain.ErrNoActiveSubscription
		}

		slot, err := tx.Slots.GetForUpdate(ctx, userID, in.SlotID)
		if err != nil {
			return err
		}
		if slot == nil {
			return domain.ErrSlotNotFound
		}

		form := &entity.Form{
			ID:        uuid.New().String(),
			UserID:    userID,
			Type:      in.Type,
			SIIRut:    siiRut,
			Status:    entity.FormDraft,
			CreatedAt: now,
		}
		if form.SIIRut == "" {
			form.SIIRut = slot.RUT
		}
		if err := tx.Forms.Create(ctx, form); err != nil {
			return fmt.Errorf("crear formulario: %w", err)
		}
		batch.Add(userID, entity.AuditFormCreated, entity.AuditEntityForm, form.ID, map[string]any{
			"type":    form.Type,
			"sii_rut": form.SIIRut,
			"slot_id": slot.ID,
		}, now)

		if err := form.Advance(entity.FormStored); err != nil {
			return err
		}
		submitted := now
		form.SubmittedAt = &submitted
		if err := tx.Forms.Update(ctx, form); err != nil {
			return fmt.Errorf("actualizar formulario: %w", err)
		}

		from := slot.State
		locked := slot.Lock(form.ID, now)
		if locked {
			if err := tx.Slots.Update(ctx, slot); err != nil {
				return fmt.Errorf("bloquear slot: %w", err)
			}
			batch.SlotTransition(slot, from, now)
			batch.Add(userID, entity.AuditSlotLocked, entity.AuditEntitySlot, slot.ID, map[string]any{
				"form_id":    form.ID,
				"rut":        slot.RUT,
				"slot_index": slot.SlotIndex,
			}, now)
		} else {
			batch.Add(userID, entity.AuditFormSubmitted, entity.AuditEntityForm, form.ID, map[string]any{
				"slot_id":    slot.ID,
				"slot_state": string(slot.State),
			}, now)
		}

		out = &Submission{Form: form, Slot: slot, LockedSlot: locked}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.audit.Record(ctx, batch.Entries()...)
	return out, nil
}

// GetForm formulario del usuario. ErrNotFound si no existe o pertenece a otro usuario.
func (e *Engine) GetForm(ctx context.Context, userID, formID string) (*entity.Form, error) {
	var form *entity.Form
	err := e.txRunner.RunForUser(ctx, userID, func(tx ports.UserTx) error {
		var err error
		form, err = tx.Forms.GetByID(ctx, userID, formID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if form == nil {
		return nil, fmt.Errorf("%w: formulario %s", domain.ErrNotFound, formID)
	}
	return form, nil
}

// Complete registra la respuesta del SII para un formulario stored: sin mensaje pasa a done, con
// mensaje queda en error. El slot no cambia, un RUT usado sigue bloqueado aunque el envío falle.
func (e *Engine) Complete(ctx context.Context, userID, formID, errMsg string) (*entity.Form, error) {
	errMsg = strings.TrimSpace(errMsg)
	var form *entity.Form
	batch := &audit.Batch{}
	err := e.txRunner.RunForUser(ctx, userID, func(tx ports.UserTx) error {
		batch.Reset()
		now := e.now()
		f, err := tx.Forms.GetByID(ctx, userID, formID)
		if err != nil {
			return err
		}
		if f == nil {
			return fmt.Errorf("%w: formulario %s", domain.ErrNotFound, formID)
		}
		if f.Status != entity.FormStored {
			return fmt.Errorf("%w: formulario en estado %s", domain.ErrConflict, f.Status)
		}
		if errMsg == "" {
			if err := f.Advance(entity.FormDone); err != nil {
				return err
			}
		} else {
			f.Fail(errMsg)
		}
		if err := tx.Forms.Update(ctx, f); err != nil {
			return fmt.Errorf("actualizar formulario: %w", err)
		}
		batch.Add(userID, entity.AuditFormCompleted, entity.AuditEntityForm, f.ID, map[string]any{
			"status": string(f.Status),
			"error":  f.ErrorMessage,
		}, now)
		form = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.audit.Record(ctx, batch.Entries()...)
	return form, nil
}
