package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/rutslots-api/internal/application/dto"
	"github.com/jhoicas/rutslots-api/internal/application/subscription"
	"github.com/jhoicas/rutslots-api/internal/domain/entity"
)

// SubscriptionHandler planes, estado y cancelación de la suscripción.
type SubscriptionHandler struct {
	svc *subscription.ActivationService
}

// NewSubscriptionHandler construye el handler.
func NewSubscriptionHandler(svc *subscription.ActivationService) *SubscriptionHandler {
	return &SubscriptionHandler{svc: svc}
}

// ListPlans godoc
// @Summary      Catálogo de planes
// @Tags         plans
// @Produce      json
// @Success      200  {array}  dto.PlanResponse
// @Router       /api/plans [get]
func (h *SubscriptionHandler) ListPlans(c *fiber.Ctx) error {
	plans, err := h.svc.ListPlans(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.PlanResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, toPlanResponse(p))
	}
	return c.JSON(out)
}

// Me godoc
// @Summary      Suscripción del usuario
// @Tags         subscription
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.SubscriptionResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/me/subscription [get]
func (h *SubscriptionHandler) Me(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	st, err := h.svc.Status(c.Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	out := dto.SubscriptionResponse{Status: string(entity.SubscriptionNone), SlotsTotal: len(st.Slots)}
	if sub := st.Subscription; sub != nil {
		activated := sub.ActivatedAt
		out.Status = string(sub.Status)
		out.ActivatedAt = &activated
		out.ExpiresAt = sub.ExpiresAt
		out.AutoRenew = sub.AutoRenew
	}
	if st.Plan != nil {
		p := toPlanResponse(st.Plan)
		out.Plan = &p
	}
	for _, s := range st.Slots {
		if s.RUT != "" {
			out.SlotsUsed++
		}
		if s.IsLocked() {
			out.SlotsLocked++
		}
	}
	return c.JSON(out)
}

// Cancel godoc
// @Summary      Cancelar suscripción
// @Description  Elimina la suscripción vigente y deja al usuario sin slots.
// @Tags         subscription
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CancelSubscriptionRequest  false  "motivo"
// @Success      200   {object}  dto.SyncResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/subscription/cancel [post]
func (h *SubscriptionHandler) Cancel(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.CancelSubscriptionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return invalidBody(c)
		}
	}
	res, err := h.svc.Cancel(c.Context(), userID, in.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toSyncResponse(res))
}

// AdminSetPlan godoc
// @Summary      Corregir el plan de un usuario (admin)
// @Tags         admin
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID del usuario"
// @Param        body  body  dto.AdminSetPlanRequest  true  "plan_code"
// @Success      200   {object}  dto.ActivationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/admin/users/{id}/plan [put]
func (h *SubscriptionHandler) AdminSetPlan(c *fiber.Ctx) error {
	var in dto.AdminSetPlanRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	notes := in.Notes
	if by := GetUserID(c); by != "" {
		notes = "por " + by + " " + notes
	}
	act, err := h.svc.ActivatePlan(c.Context(), subscription.ActivateInput{
		UserID:   c.Params("id"),
		PlanCode: in.PlanCode,
		Source:   subscription.SourceAdmin,
		Notes:    notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ActivationResponse{
		Plan:   toPlanResponse(act.Plan),
		Status: string(act.Subscription.Status),
		NoOp:   act.NoOp,
		Sync:   toSyncResponse(act.Sync),
	})
}
