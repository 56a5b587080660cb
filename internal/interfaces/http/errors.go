package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/rutslots-api/internal/application/dto"
	"github.com/jhoicas/rutslots-api/internal/domain"
)

// errorMapping traduce un error de dominio a status y código HTTP. El orden importa:
// los errores específicos van antes que los genéricos que envuelven.
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrInvalidIdentifier, fiber.StatusBadRequest, "INVALID_RUT"},
	{domain.ErrDuplicateIdentifier, fiber.StatusConflict, "DUPLICATE_RUT"},
	{domain.ErrSlotLocked, fiber.StatusConflict, "SLOT_LOCKED"},
	{domain.ErrSlotNotFound, fiber.StatusNotFound, "SLOT_NOT_FOUND"},
	{domain.ErrReconcileConflict, fiber.StatusConflict, "RECONCILE_CONFLICT"},
	{domain.ErrLockTimeout, fiber.StatusConflict, "LOCK_TIMEOUT"},
	{domain.ErrPlanNotFound, fiber.StatusNotFound, "PLAN_NOT_FOUND"},
	{domain.ErrPlanMisconfigured, fiber.StatusInternalServerError, "PLAN_MISCONFIGURED"},
	{domain.ErrNoActiveSubscription, fiber.StatusForbidden, "NO_ACTIVE_SUBSCRIPTION"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
}

// writeError responde el error de dominio con su status; lo desconocido es 500 sin detalles internos.
func writeError(c *fiber.Ctx, err error) error {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			return c.Status(m.status).JSON(dto.ErrorResponse{Code: m.code, Message: err.Error()})
		}
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
