package billing

import (
	"context"
	"strings"
	"time"

	"github.com/jhoicas/rutslots-api/internal/application/audit"
	"github.com/jhoicas/rutslots-api/internal/application/ports"
	"github.com/jhoicas/rutslots-api/internal/domain/entity"
)

// ReturnQuery parámetros con que el checkout devuelve al usuario.
type ReturnQuery struct {
	Status            string
	PaymentID         string
	PreapprovalID     string
	ExternalReference string
}

// ReturnResult mensaje para el usuario.
type ReturnResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ReturnService atiende el retorno del checkout. Nunca activa planes: solo audita e informa.
type ReturnService struct {
	audit ports.AuditSink
	now   func() time.Time
}

// NewReturnService construye el servicio.
func NewReturnService(sink ports.AuditSink, clock func() time.Time) *ReturnService {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &ReturnService{audit: sink, now: clock}
}

// Return registra el retorno y arma el mensaje según el estado informado.
func (s *ReturnService) Return(ctx context.Context, userID string, q ReturnQuery) ReturnResult {
	status := strings.ToLower(strings.TrimSpace(q.Status))
	var b audit.Batch
	b.Add(userID, entity.AuditBillingReturn, entity.AuditEntitySubscription, userID, map[string]any{
		"status":             status,
		"payment_id":         q.PaymentID,
		"preapproval_id":     q.PreapprovalID,
		"external_reference": q.ExternalReference,
	}, s.now())
	s.audit.Record(ctx, b.Entries()...)

	switch status {
	case PaymentApproved, "authorized", "success":
		return ReturnResult{Status: status, Message: "Pago recibido. Tu plan se activará apenas el proveedor confirme el pago."}
	case PaymentPending, "in_process":
		return ReturnResult{Status: status, Message: "Tu pago está pendiente de confirmación."}
	case "":
		return ReturnResult{Status: status, Message: "No recibimos el estado del pago."}
	default:
		return ReturnResult{Status: status, Message: "El pago no se completó. Puedes intentarlo nuevamente."}
	}
}
