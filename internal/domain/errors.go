package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// Slots de RUT.
	ErrInvalidIdentifier   = errors.New("RUT inválido, revisa el dígito verificador")
	ErrDuplicateIdentifier = errors.New("ya tienes este RUT en otro slot")
	ErrSlotLocked          = errors.New("el slot está bloqueado y no es editable")
	ErrSlotNotFound        = errors.New("slot no encontrado")

	// Concurrencia: espera de bloqueo agotada. ErrReconcileConflict es transitorio y se reintenta.
	ErrLockTimeout       = errors.New("tiempo de espera de bloqueo agotado")
	ErrReconcileConflict = errors.New("conflicto al sincronizar slots con el plan")

	// Planes y suscripciones.
	ErrPlanNotFound         = errors.New("plan no encontrado o inactivo")
	ErrNoActiveSubscription = errors.New("no tienes una suscripción activa")
	// ErrPlanMisconfigured el plan existe pero su cupo no es aplicable; es un error de operación, no del pagador.
	ErrPlanMisconfigured = errors.New("plan mal configurado")
)
