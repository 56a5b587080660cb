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

var _ repository.FormRepository = (*FormRepo)(nil)

// FormRepo formularios enviados.
type FormRepo struct {
	q Querier
}

// NewFormRepository construye el adaptador.
func NewFormRepository(q Querier) *FormRepo {
	return &FormRepo{q: q}
}

// Create inserta el formulario.
func (r *FormRepo) Create(ctx context.Context, f *entity.Form) error {
	query := `
		INSERT INTO forms (id, user_id, type, sii_rut, status, created_at, submitted_at, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query, f.ID, f.UserID, f.Type, f.SIIRut, string(f.Status), f.CreatedAt, f.SubmittedAt, f.ErrorMessage)
	if err != nil {
		return translate(fmt.Errorf("create form: %w", err))
	}
	return nil
}

// Update persiste estado, fecha de envío y error.
func (r *FormRepo) Update(ctx context.Context, f *entity.Form) error {
	query := `UPDATE forms SET status = $3, submitted_at = $4, error_message = $5 WHERE id = $1 AND user_id = $2`
	tag, err := r.q.Exec(ctx, query, f.ID, f.UserID, string(f.Status), f.SubmittedAt, f.ErrorMessage)
	if err != nil {
		return translate(fmt.Errorf("update form: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID formulario del usuario; nil, nil si no existe.
func (r *FormRepo) GetByID(ctx context.Context, userID, id string) (*entity.Form, error) {
	query := `
		SELECT id, user_id, type, sii_rut, status, created_at, submitted_at, error_message
		FROM forms WHERE id::text = $1 AND user_id = $2`
	var f entity.Form
	var status string
	err := r.q.QueryRow(ctx, query, id, userID).Scan(&f.ID, &f.UserID, &f.Type, &f.SIIRut, &status, &f.CreatedAt, &f.SubmittedAt, &f.ErrorMessage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get form: %w", err)
	}
	f.Status = entity.FormStatus(status)
	return &f, nil
}
