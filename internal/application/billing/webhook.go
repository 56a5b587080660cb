// Package billing recibe las notificaciones del proveedor de pagos. El webhook es la única fuente
// de activación de planes; el retorno del checkout solo informa.
package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/rutslots-api/internal/application/audit"
	"github.com/jhoicas/rutslots-api/internal/application/ports"
	"github.com/jhoicas/rutslots-api/internal/application/subscription"
	"github.com/jhoicas/rutslots-api/internal/domain"
	"github.com/jhoicas/rutslots-api/internal/domain/entity"
	"github.com/jhoicas/rutslots-api/internal/domain/repository"
	"github.com/jhoicas/rutslots-api/pkg/logger"
)

// Estados de pago informados por el proveedor.
const (
	PaymentApproved    = "approved"
	PaymentPending     = "pending"
	PaymentRejected    = "rejected"
	PaymentCancelled   = "cancelled"
	PaymentRefunded    = "refunded"
	PaymentChargedBack = "charged_back"
)

// SignaturePrefix prefijo del header X-Signature ("sha256=<hex>").
const SignaturePrefix = "sha256="

// Config opciones de la recepción de pagos.
type Config struct {
	// WebhookSecret clave HMAC; vacía desactiva la verificación de firma.
	WebhookSecret string
	// DefaultProvider proveedor asumido cuando la ruta no lo indica.
	DefaultProvider string
	Clock           func() time.Time
}

// Notification notificación de pago ya interpretada.
type Notification struct {
	Provider          string
	EventID           string
	EventType         string
	ResourceID        string
	Status            string
	ExternalReference string
	Amount            *decimal.Decimal
	Payload           []byte
}

// Outcome resultado del procesamiento de una notificación.
type Outcome struct {
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
	Action    string `json:"action"` // activated | noop | past_due | ignored | rejected
	Error     string `json:"error,omitempty"`
}

// payload forma del cuerpo que envía el proveedor.
type payload struct {
	ID     json.RawMessage `json:"id"`
	Type   string          `json:"type"`
	Action string          `json:"action"`
	Data   struct {
		ID                json.RawMessage  `json:"id"`
		Status            string           `json:"status"`
		ExternalReference string           `json:"external_reference"`
		TransactionAmount *decimal.Decimal `json:"transaction_amount"`
	} `json:"data"`
}

// ParseNotification interpreta el cuerpo JSON del webhook. Si el proveedor no informa id de evento
// se usa "<tipo>:<recurso>:<estado>" como clave de deduplicación.
func ParseNotification(provider string, body []byte) (*Notification, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: cuerpo del webhook: %v", domain.ErrInvalidInput, err)
	}
	eventType := p.Type
	if eventType == "" {
		eventType, _, _ = strings.Cut(p.Action, ".")
	}
	n := &Notification{
		Provider:          strings.ToLower(strings.TrimSpace(provider)),
		EventID:           rawID(p.ID),
		EventType:         eventType,
		ResourceID:        rawID(p.Data.ID),
		Status:            strings.ToLower(p.Data.Status),
		ExternalReference: p.Data.ExternalReference,
		Amount:            p.Data.TransactionAmount,
		Payload:           body,
	}
	if n.Provider == "" {
		return nil, fmt.Errorf("%w: proveedor requerido", domain.ErrInvalidInput)
	}
	if n.EventID == "" {
		if n.ResourceID == "" {
			return nil, fmt.Errorf("%w: el webhook no identifica el evento", domain.ErrInvalidInput)
		}
		n.EventID = n.EventType + ":" + n.ResourceID + ":" + n.Status
	}
	return n, nil
}

// rawID acepta ids numéricos o de texto.
func rawID(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	return s
}

// WebhookService procesa notificaciones de pago una sola vez por evento.
type WebhookService struct {
	events    repository.WebhookEventRepository
	activator PlanActivator
	audit     ports.AuditSink
	log       *logger.Logger
	secret    []byte
	provider  string
	now       func() time.Time
}

// NewWebhookService construye el servicio.
func NewWebhookService(events repository.WebhookEventRepository, activator PlanActivator, sink ports.AuditSink, log *logger.Logger, cfg Config) *WebhookService {
	if cfg.Clock == nil {
		cfg.Clock = func() time.Time { return time.Now().UTC() }
	}
	return &WebhookService{
		events:    events,
		activator: activator,
		audit:     sink,
		log:       log.Component("billing"),
		secret:    []byte(cfg.WebhookSecret),
		provider:  strings.ToLower(strings.TrimSpace(cfg.DefaultProvider)),
		now:       cfg.Clock,
	}
}

// Provider devuelve name o, si viene vacío, el proveedor por defecto.
func (s *WebhookService) Provider(name string) string {
	if strings.TrimSpace(name) == "" {
		return s.provider
	}
	return name
}

// VerifySignature compara el header X-Signature con el HMAC-SHA256 del cuerpo.
func (s *WebhookService) VerifySignature(body []byte, header string) error {
	if len(s.secret) == 0 {
		return nil
	}
	got, ok := strings.CutPrefix(strings.TrimSpace(header), SignaturePrefix)
	if !ok {
		return fmt.Errorf("%w: firma ausente", domain.ErrUnauthorized)
	}
	sig, err := hex.DecodeString(got)
	if err != nil {
		return fmt.Errorf("%w: firma mal formada", domain.ErrUnauthorized)
	}
	if !hmac.Equal(sig, Sign(s.secret, body)) {
		return fmt.Errorf("%w: firma inválida", domain.ErrUnauthorized)
	}
	return nil
}

// Sign calcula el HMAC-SHA256 del cuerpo.
func Sign(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}

// Handle registra la notificación y, si no fue procesada antes, aplica el cambio de plan.
// Errores permanentes (referencia inválida, plan inexistente) se registran y se confirman al proveedor;
// errores transitorios se devuelven para que el proveedor reintente.
func (s *WebhookService) Handle(ctx context.Context, n *Notification) (*Outcome, error) {
	now := s.now()
	stored, inserted, err := s.events.Record(ctx, &entity.WebhookEvent{
		Provider:          n.Provider,
		ProviderEventID:   n.EventID,
		EventType:         n.EventType,
		Status:            n.Status,
		ExternalReference: n.ExternalReference,
		Payload:           n.Payload,
		CreatedAt:         now,
	})
	if err != nil {
		return nil, fmt.Errorf("registrar webhook: %w", err)
	}
	out := &Outcome{EventID: n.EventID}
	if !inserted && stored.Handled() {
		out.Duplicate = true
		out.Action = "noop"
		s.log.Debug().Str("event_id", n.EventID).Msg("webhook duplicado")
		return out, nil
	}

	var batch audit.Batch
	batch.Add("", entity.AuditWebhookReceived, entity.AuditEntityWebhook, stored.ID, map[string]any{
		"provider":           n.Provider,
		"event_id":           n.EventID,
		"type":               n.EventType,
		"status":             n.Status,
		"external_reference": n.ExternalReference,
		"retry":              !inserted,
	}, now)
	s.audit.Record(ctx, batch.Entries()...)

	action, procErr := s.process(ctx, n)
	out.Action = action

	var processingError string
	if procErr != nil {
		processingError = procErr.Error()
	}
	if err := s.events.MarkProcessed(ctx, stored.ID, processingError); err != nil {
		s.log.Warn().Err(err).Str("event_id", n.EventID).Msg("no se pudo marcar el webhook como procesado")
	}

	if procErr != nil {
		if isPermanent(procErr) {
			out.Action = "rejected"
			out.Error = procErr.Error()
			s.log.Warn().Err(procErr).Str("event_id", n.EventID).Msg("webhook descartado")
			return out, nil
		}
		s.log.Error().Err(procErr).Str("event_id", n.EventID).Msg("webhook con error transitorio")
		return nil, procErr
	}
	s.log.Info().Str("event_id", n.EventID).Str("action", action).Msg("webhook procesado")
	return out, nil
}

func (s *WebhookService) process(ctx context.Context, n *Notification) (string, error) {
	if n.EventType != "" && n.EventType != "payment" && n.EventType != "subscription_preapproval" {
		return "ignored", nil
	}
	switch n.Status {
	case PaymentApproved, "authorized":
		ref, err := ParseExternalReference(n.ExternalReference)
		if err != nil {
			return "", err
		}
		act, err := s.activator.ActivatePlan(ctx, subscription.ActivateInput{
			UserID:                 ref.UserID,
			PlanCode:               ref.PlanCode,
			Source:                 subscription.SourceWebhook,
			Provider:               n.Provider,
			ExternalSubscriptionID: n.ResourceID,
			PricePaid:              n.Amount,
			Notes:                  "evento " + n.EventID,
		})
		if err != nil {
			return "", err
		}
		if act.NoOp {
			return "noop", nil
		}
		return "activated", nil

	case PaymentRejected, PaymentCancelled, PaymentRefunded, PaymentChargedBack:
		ref, err := ParseExternalReference(n.ExternalReference)
		if err != nil {
			return "", err
		}
		marked, err := s.activator.MarkPastDue(ctx, ref.UserID, ref.PlanCode, "pago "+n.Status)
		if err != nil {
			return "", err
		}
		if marked {
			return "past_due", nil
		}
		return "noop", nil

	default:
		return "ignored", nil
	}
}

func isPermanent(err error) bool {
	return errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrPlanNotFound)
}
