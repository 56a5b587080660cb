package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/rutslots-api/internal/domain"
	"github.com/jhoicas/rutslots-api/internal/domain/entity"
	"github.com/jhoicas/rutslots-api/internal/domain/repository"
)

var _ repository.RutSlotRepository = (*RutSlotRepo)(nil)

// RutSlotRepo implementación de RutSlotRepository sobre PostgreSQL (usable con pool o tx).
type RutSlotRepo struct {
	q Querier
}

// NewRutSlotRepository construye el adaptador de slots. Pasar pool o tx (Querier).
func NewRutSlotRepository(q Querier) *RutSlotRepo {
	return &RutSlotRepo{q: q}
}

const slotColumns = `id, user_id, slot_index, rut, state, locked_at, locked_by_form_id, created_at, updated_at`

func scanSlot(row pgx.Row) (*entity.RutSlot, error) {
	var s entity.RutSlot
	var state string
	if err := row.Scan(&s.ID, &s.UserID, &s.SlotIndex, &s.RUT, &state, &s.LockedAt, &s.LockedByFormID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.State = entity.SlotState(state)
	return &s, nil
}

func (r *RutSlotRepo) list(ctx context.Context, query, userID string) ([]*entity.RutSlot, error) {
	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, translate(fmt.Errorf("list slots: %w", err))
	}
	defer rows.Close()
	var out []*entity.RutSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(fmt.Errorf("list slots: %w", err))
	}
	return out, nil
}

// ListByUser devuelve los slots del usuario ordenados por índice.
func (r *RutSlotRepo) ListByUser(ctx context.Context, userID string) ([]*entity.RutSlot, error) {
	return r.list(ctx, `SELECT `+slotColumns+` FROM rut_slots WHERE user_id = $1 ORDER BY slot_index`, userID)
}

// ListByUserForUpdate igual que ListByUser bloqueando las filas (SELECT FOR UPDATE).
func (r *RutSlotRepo) ListByUserForUpdate(ctx context.Context, userID string) ([]*entity.RutSlot, error) {
	return r.list(ctx, `SELECT `+slotColumns+` FROM rut_slots WHERE user_id = $1 ORDER BY slot_index FOR UPDATE`, userID)
}

// GetForUpdate obtiene el slot del usuario y bloquea la fila. nil, nil si no existe o es de otro usuario.
func (r *RutSlotRepo) GetForUpdate(ctx context.Context, userID, slotID string) (*entity.RutSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM rut_slots WHERE id::text = $1 AND user_id = $2 FOR UPDATE`
	s, err := scanSlot(r.q.QueryRow(ctx, query, slotID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, translate(fmt.Errorf("get slot for update: %w", err))
	}
	return s, nil
}

// Create inserta un slot.
func (r *RutSlotRepo) Create(ctx context.Context, s *entity.RutSlot) error {
	query := `
		INSERT INTO rut_slots (id, user_id, slot_index, rut, state, locked_at, locked_by_form_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query, s.ID, s.UserID, s.SlotIndex, s.RUT, string(s.State), s.LockedAt, s.LockedByFormID, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: slot %d ya existe", domain.ErrConflict, s.SlotIndex)
		}
		return translate(fmt.Errorf("create slot: %w", err))
	}
	return nil
}

// Update persiste rut, estado y campos de bloqueo. El índice único parcial (user_id, rut) cubre
// asignaciones concurrentes del mismo RUT.
func (r *RutSlotRepo) Update(ctx context.Context, s *entity.RutSlot) error {
	query := `
		UPDATE rut_slots
		SET rut = $3, state = $4, locked_at = $5, locked_by_form_id = $6, updated_at = $7
		WHERE id = $1 AND user_id = $2`
	tag, err := r.q.Exec(ctx, query, s.ID, s.UserID, s.RUT, string(s.State), s.LockedAt, s.LockedByFormID, s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateIdentifier
		}
		return translate(fmt.Errorf("update slot: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSlotNotFound
	}
	return nil
}

// DeleteAbove elimina los slots con índice mayor a maxIndex.
func (r *RutSlotRepo) DeleteAbove(ctx context.Context, userID string, maxIndex int) (int, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM rut_slots WHERE user_id = $1 AND slot_index > $2`, userID, maxIndex)
	if err != nil {
		return 0, translate(fmt.Errorf("delete slots: %w", err))
	}
	return int(tag.RowsAffected()), nil
}

// IdentifierInUse informa si otro slot del usuario ya tiene el RUT.
func (r *RutSlotRepo) IdentifierInUse(ctx context.Context, userID, rut, exceptSlotID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM rut_slots WHERE user_id = $1 AND rut = $2 AND id::text <> $3)`
	if err := r.q.QueryRow(ctx, query, userID, rut, exceptSlotID).Scan(&exists); err != nil {
		return false, translate(fmt.Errorf("rut en uso: %w", err))
	}
	return exists, nil
}

// ListUsersWithSlots usuarios con al menos un slot.
func (r *RutSlotRepo) ListUsersWithSlots(ctx context.Context) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT DISTINCT user_id FROM rut_slots ORDER BY user_id`)
	if err != nil {
		return nil, translate(fmt.Errorf("list users with slots: %w", err))
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
