package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/rutslots-api/internal/application/billing"
)

// SignatureHeader header con el HMAC del cuerpo del webhook.
const SignatureHeader = "X-Signature"

// BillingHandler webhook del proveedor de pagos y retorno del checkout.
type BillingHandler struct {
	webhooks *billing.WebhookService
	returns  *billing.ReturnService
}

// NewBillingHandler construye el handler.
func NewBillingHandler(webhooks *billing.WebhookService, returns *billing.ReturnService) *BillingHandler {
	return &BillingHandler{webhooks: webhooks, returns: returns}
}

// Webhook godoc
// @Summary      Notificación del proveedor de pagos
// @Description  Única fuente de activación de planes. Idempotente por id de evento.
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        provider     path    string  false  "Proveedor (ej. mercadopago); sin él se usa BILLING_PROVIDER"
// @Param        X-Signature  header  string  false  "sha256=<hex HMAC del cuerpo>"
// @Success      200  {object}  billing.Outcome
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/billing/webhooks/{provider} [post]
// @Router       /api/billing/webhook [post]
func (h *BillingHandler) Webhook(c *fiber.Ctx) error {
	// El cuerpo de fasthttp se reutiliza entre peticiones.
	body := append([]byte(nil), c.Body()...)
	if err := h.webhooks.VerifySignature(body, c.Get(SignatureHeader)); err != nil {
		return writeError(c, err)
	}
	n, err := billing.ParseNotification(h.webhooks.Provider(c.Params("provider")), body)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.webhooks.Handle(c.Context(), n)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Return godoc
// @Summary      Retorno del checkout
// @Description  Solo informa al usuario; la activación llega por webhook.
// @Tags         billing
// @Security     Bearer
// @Produce      json
// @Param        status              query  string  false  "estado del pago"
// @Param        payment_id          query  string  false  "id del pago"
// @Param        preapproval_id      query  string  false  "id de la suscripción en el proveedor"
// @Param        external_reference  query  string  false  "user:<id>|plan:<code>"
// @Success      200  {object}  billing.ReturnResult
// @Router       /api/billing/return [get]
func (h *BillingHandler) Return(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	res := h.returns.Return(c.Context(), userID, billing.ReturnQuery{
		Status:            c.Query("status"),
		PaymentID:         c.Query("payment_id"),
		PreapprovalID:     c.Query("preapproval_id"),
		ExternalReference: c.Query("external_reference"),
	})
	return c.JSON(res)
}
