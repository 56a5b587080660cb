package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/rutslots-api/internal/application/dto"
	"github.com/jhoicas/rutslots-api/internal/application/forms"
)

// FormHandler envío de formularios.
type FormHandler struct {
	engine *forms.Engine
}

// NewFormHandler construye el handler.
func NewFormHandler(engine *forms.Engine) *FormHandler {
	return &FormHandler{engine: engine}
}

// Submit godoc
// @Summary      Enviar formulario
// @Description  Registra el formulario y bloquea el slot en su primer uso.
// @Tags         forms
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SubmitFormRequest  true  "slot_id, type (compras|ventas), sii_rut opcional"
// @Success      201   {object}  dto.SubmitFormResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/forms [post]
func (h *FormHandler) Submit(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.SubmitFormRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	sub, err := h.engine.SubmitAndLockFirstUse(c.Context(), userID, forms.SubmitInput{
		SlotID: in.SlotID,
		Type:   in.Type,
		SIIRut: in.SIIRut,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SubmitFormResponse{
		Form:       toFormResponse(sub.Form),
		Slot:       toSlotResponse(sub.Slot),
		LockedSlot: sub.LockedSlot,
	})
}

// Get godoc
// @Summary      Consultar formulario
// @Tags         forms
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del formulario"
// @Success      200  {object}  dto.FormResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/forms/{id} [get]
func (h *FormHandler) Get(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	form, err := h.engine.GetForm(c.Context(), userID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toFormResponse(form))
}

// Complete godoc
// @Summary      Registrar respuesta del SII
// @Description  stored pasa a done, o a error si viene mensaje. El slot sigue bloqueado.
// @Tags         forms
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true   "ID del formulario"
// @Param        body  body  dto.CompleteFormRequest  false  "error opcional"
// @Success      200   {object}  dto.FormResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/forms/{id}/result [put]
func (h *FormHandler) Complete(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.CompleteFormRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return invalidBody(c)
		}
	}
	form, err := h.engine.Complete(c.Context(), userID, c.Params("id"), in.Error)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toFormResponse(form))
}
