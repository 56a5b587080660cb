package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/rutslots-api/internal/domain/entity"
	"github.com/jhoicas/rutslots-api/internal/domain/repository"
)

var _ repository.PlanRepository = (*PlanRepo)(nil)

// PlanRepo catálogo de planes sobre PostgreSQL.
type PlanRepo struct {
	q Querier
}

// NewPlanRepository construye el adaptador.
func NewPlanRepository(q Querier) *PlanRepo {
	return &PlanRepo{q: q}
}

const planColumns = `id, code, name, price_month, rut_quota, is_active`

func scanPlan(row pgx.Row) (*entity.Plan, error) {
	var p entity.Plan
	if err := row.Scan(&p.ID, &p.Code, &p.Name, &p.PriceMonth, &p.RUTQuota, &p.IsActive); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PlanRepo) getOne(ctx context.Context, where string, arg any) (*entity.Plan, error) {
	p, err := scanPlan(r.q.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return p, nil
}

// GetByCode obtiene un plan por código (activo o no). nil, nil si no existe.
func (r *PlanRepo) GetByCode(ctx context.Context, code string) (*entity.Plan, error) {
	return r.getOne(ctx, `code = $1`, code)
}

// GetByID obtiene un plan por id. nil, nil si no existe.
func (r *PlanRepo) GetByID(ctx context.Context, id string) (*entity.Plan, error) {
	return r.getOne(ctx, `id::text = $1`, id)
}

// ListActive planes activos ordenados por cupo y precio.
func (r *PlanRepo) ListActive(ctx context.Context) ([]*entity.Plan, error) {
	rows, err := r.q.Query(ctx, `SELECT `+planColumns+` FROM plans WHERE is_active ORDER BY rut_quota, price_month, code`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()
	var out []*entity.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Upsert crea o actualiza el plan por código.
func (r *PlanRepo) Upsert(ctx context.Context, p *entity.Plan) (bool, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	query := `
		INSERT INTO plans (id, code, name, price_month, rut_quota, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO UPDATE
		SET name = EXCLUDED.name, price_month = EXCLUDED.price_month,
		    rut_quota = EXCLUDED.rut_quota, is_active = EXCLUDED.is_active, updated_at = now()
		RETURNING id, (xmax = 0)`
	var created bool
	if err := r.q.QueryRow(ctx, query, p.ID, p.Code, p.Name, p.PriceMonth, p.RUTQuota, p.IsActive).Scan(&p.ID, &created); err != nil {
		return false, fmt.Errorf("upsert plan: %w", err)
	}
	return created, nil
}
