package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlanResponse plan del catálogo.
type PlanResponse struct {
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	PriceMonth decimal.Decimal `json:"price_month"`
	RUTQuota   int             `json:"rut_quota"`
}

// SubscriptionResponse suscripción vigente del usuario.
type SubscriptionResponse struct {
	Status      string        `json:"status"`
	Plan        *PlanResponse `json:"plan,omitempty"`
	ActivatedAt *time.Time    `json:"activated_at,omitempty"`
	ExpiresAt   *time.Time    `json:"expires_at,omitempty"`
	AutoRenew   bool          `json:"auto_renew"`
	SlotsTotal  int           `json:"slots_total"`
	SlotsUsed   int           `json:"slots_used"`
	SlotsLocked int           `json:"slots_locked"`
}

// CancelSubscriptionRequest motivo opcional de cancelación.
type CancelSubscriptionRequest struct {
	Reason string `json:"reason"`
}

// SyncResponse resultado de la sincronización de slots.
type SyncResponse struct {
	Created  int `json:"created"`
	Removed  int `json:"removed"`
	Unlocked int `json:"unlocked"`
}

// AdminSetPlanRequest corrección administrativa del plan de un usuario.
type AdminSetPlanRequest struct {
	PlanCode string `json:"plan_code"`
	Notes    string `json:"notes"`
}

// ActivationResponse resultado de una activación.
type ActivationResponse struct {
	Plan   PlanResponse `json:"plan"`
	Status string       `json:"status"`
	NoOp   bool         `json:"noop"`
	Sync   SyncResponse `json:"sync"`
}
