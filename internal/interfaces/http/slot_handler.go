package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/rutslots-api/internal/application/dto"
	"github.com/jhoicas/rutslots-api/internal/application/slots"
)

// SlotHandler expone los slots de RUT del usuario autenticado.
type SlotHandler struct {
	store *slots.Store
}

// NewSlotHandler construye el handler.
func NewSlotHandler(store *slots.Store) *SlotHandler {
	return &SlotHandler{store: store}
}

// List godoc
// @Summary      Listar slots de RUT
// @Tags         slots
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.SlotListResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/slots [get]
func (h *SlotHandler) List(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	list, err := h.store.GetSlots(c.Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toSlotList(list))
}

// Set godoc
// @Summary      Asignar RUT a un slot
// @Description  Normaliza y valida el RUT. Un RUT vacío limpia el slot. Los slots bloqueados no se editan.
// @Tags         slots
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string              true  "ID del slot"
// @Param        body  body  dto.SetSlotRequest  true  "rut"
// @Success      200   {object}  dto.SlotResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/slots/{id} [put]
func (h *SlotHandler) Set(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.SetSlotRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	slot, err := h.store.SetIdentifier(c.Context(), userID, c.Params("id"), in.RUT)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toSlotResponse(slot))
}

// Clear godoc
// @Summary      Vaciar un slot
// @Tags         slots
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del slot"
// @Success      200  {object}  dto.SlotResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/slots/{id} [delete]
func (h *SlotHandler) Clear(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	slot, err := h.store.ClearSlot(c.Context(), userID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toSlotResponse(slot))
}
