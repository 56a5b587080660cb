package repository

import (
	"context"

	"github.com/jhoicas/rutslots-api/internal/domain/entity"
)

// FormRepository puerto de persistencia de formularios enviados.
type FormRepository interface {
	Create(ctx context.Context, form *entity.Form) error
	Update(ctx context.Context, form *entity.Form) error
	GetByID(ctx context.Context, userID, id string) (*entity.Form, error)
}
