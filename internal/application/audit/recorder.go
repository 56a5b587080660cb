package audit

import (
	"context"

	"github.com/jhoicas/rutslots-api/internal/application/ports"
	"github.com/jhoicas/rutslots-api/internal/domain/entity"
	"github.com/jhoicas/rutslots-api/internal/domain/repository"
	"github.com/jhoicas/rutslots-api/pkg/logger"
)

var _ ports.AuditSink = (*Recorder)(nil)

// Recorder escribe hechos de auditoría en el repositorio. Los errores se registran en el log
// y se descartan: la auditoría nunca bloquea la operación principal.
type Recorder struct {
	repo repository.AuditLogRepository
	log  *logger.Logger
}

// NewRecorder construye el sumidero de auditoría.
func NewRecorder(repo repository.AuditLogRepository, log *logger.Logger) *Recorder {
	return &Recorder{repo: repo, log: log}
}

// Record persiste los hechos; nunca devuelve error.
func (r *Recorder) Record(ctx context.Context, entries ...entity.AuditEntry) {
	if len(entries) == 0 {
		return
	}
	if err := r.repo.Append(ctx, entries...); err != nil {
		r.log.Warn().Err(err).
			Int("entries", len(entries)).
			Str("action", entries[0].Action).
			Msg("auditoría no registrada")
	}
}
