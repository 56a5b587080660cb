package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionStatus estados de la suscripción vigente.
type SubscriptionStatus string

const (
	SubscriptionNone     SubscriptionStatus = "none"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Subscription es la suscripción vigente de un usuario (una por usuario).
// Se reemplaza completa cuando cambia el plan; no se actualiza por partes.
type Subscription struct {
	ID                     string
	UserID                 string
	PlanID                 string
	Status                 SubscriptionStatus
	ActivatedAt            time.Time
	ExpiresAt              *time.Time
	AutoRenew              bool
	Provider               string
	ExternalSubscriptionID string
}

// IsActive informa si la suscripción habilita el uso de slots.
func (s *Subscription) IsActive() bool {
	return s != nil && s.Status == SubscriptionActive
}

// SubscriptionHistory registro inmutable de una transición de estado de la suscripción.
type SubscriptionHistory struct {
	ID         string
	UserID     string
	PlanID     string
	StatusFrom SubscriptionStatus
	StatusTo   SubscriptionStatus
	ValidFrom  time.Time
	ValidTo    *time.Time
	PricePaid  *decimal.Decimal
	Notes      string
}
