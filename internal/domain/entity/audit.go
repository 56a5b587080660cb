package entity

import "time"

// Acciones de auditoría emitidas por el motor de slots.
const (
	AuditSlotStateChanged     = "rut_slot_state_changed"
	AuditSlotLocked           = "rut_slot_locked"
	AuditSlotCreated          = "rut_slot_created"
	AuditSlotRemoved          = "rut_slot_removed"
	AuditFormCreated          = "form_created"
	AuditFormSubmitted        = "form_submitted"
	AuditFormCompleted        = "form_completed"
	AuditSubscriptionSync     = "subscription_sync_slots"
	AuditSubscriptionActivate = "subscription_activated"
	AuditSubscriptionCancel   = "subscription_canceled"
	AuditSubscriptionPastDue  = "subscription_past_due"
	AuditBillingReturn        = "billing_return"
	AuditWebhookReceived      = "billing_webhook_received"
)

// Entidades referenciadas por la auditoría.
const (
	AuditEntitySlot         = "user_rut_slot"
	AuditEntityForm         = "form"
	AuditEntitySubscription = "user_subscription_current"
	AuditEntityPlan         = "plan"
	AuditEntityWebhook      = "billing_webhook_event"
)

// AuditEntry hecho inmutable sobre una transición de estado.
type AuditEntry struct {
	ID       string
	UserID   *string // nil para eventos de sistema
	Action   string
	Entity   string
	EntityID string
	Metadata map[string]any
	At       time.Time
}
