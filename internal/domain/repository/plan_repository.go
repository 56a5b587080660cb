package repository

import (
	"context"

	"github.com/jhoicas/rutslots-api/internal/domain/entity"
)

// PlanRepository define el puerto de persistencia para el catálogo de planes.
type PlanRepository interface {
	GetByCode(ctx context.Context, code string) (*entity.Plan, error)
	GetByID(ctx context.Context, id string) (*entity.Plan, error)
	// ListActive devuelve los planes activos ordenados por cupo.
	ListActive(ctx context.Context) ([]*entity.Plan, error)
	// Upsert crea o corrige un plan por código (uso administrativo / seed).
	Upsert(ctx context.Context, plan *entity.Plan) (created bool, err error)
}
