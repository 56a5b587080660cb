package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/rutslots-api/internal/application/billing"
	"github.com/jhoicas/rutslots-api/internal/application/forms"
	"github.com/jhoicas/rutslots-api/internal/application/slots"
	"github.com/jhoicas/rutslots-api/internal/application/subscription"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Slots         *slots.Store
	Forms         *forms.Engine
	Subscriptions *subscription.ActivationService
	Webhooks      *billing.WebhookService
	Returns       *billing.ReturnService
	Ping          Pinger
	JWTSecret     string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", NewHealthHandler(deps.Ping).Health)

	api := app.Group("/api")
	subHandler := NewSubscriptionHandler(deps.Subscriptions)
	billingHandler := NewBillingHandler(deps.Webhooks, deps.Returns)

	// Públicas
	api.Get("/plans", subHandler.ListPlans)
	api.Post("/billing/webhooks/:provider", billingHandler.Webhook)
	api.Post("/billing/webhook", billingHandler.Webhook)

	// Rutas protegidas (requieren Bearer Token)
	auth := AuthMiddleware(deps.JWTSecret)

	api.Get("/billing/return", auth, billingHandler.Return)
	api.Get("/me/subscription", auth, subHandler.Me)
	api.Post("/subscription/cancel", auth, subHandler.Cancel)

	slotsGroup := api.Group("/slots", auth)
	slotHandler := NewSlotHandler(deps.Slots)
	slotsGroup.Get("/", slotHandler.List)
	slotsGroup.Put("/:id", slotHandler.Set)
	slotsGroup.Delete("/:id", slotHandler.Clear)

	formHandler := NewFormHandler(deps.Forms)
	api.Post("/forms", auth, formHandler.Submit)
	api.Get("/forms/:id", auth, formHandler.Get)
	api.Put("/forms/:id/result", auth, formHandler.Complete)

	admin := api.Group("/admin", auth, RequireRole(RoleAdmin))
	admin.Put("/users/:id/plan", subHandler.AdminSetPlan)
}
