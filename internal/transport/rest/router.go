package rest

import (
	"database/sql"
	"log/slog"

	"github.com/frahmantamala/subscription-billing/internal/payment"
	"github.com/frahmantamala/subscription-billing/internal/plan"
	"github.com/frahmantamala/subscription-billing/internal/transport/middleware"
	"github.com/frahmantamala/subscription-billing/internal/webhook"
	"github.com/go-chi/chi"
)

func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	allowedOrigins string,
	paymentHandler *payment.Handler,
	webhookHandler *webhook.Handler,
	planHandler *plan.Handler,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.CORS(allowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if planHandler != nil {
			r.Get("/plans", planHandler.GetPlans)
		}

		// The webhook endpoint carries no session auth; the payload hash
		// authenticates the sender.
		if webhookHandler != nil {
			r.Post("/webhook/paygate", webhookHandler.HandleNotification)
		}

		if paymentHandler != nil {
			r.Route("/payment", func(pr chi.Router) {
				pr.Post("/3d/init", paymentHandler.StartSecurePayment)
				pr.Post("/3d/complete", paymentHandler.CompleteSecurePayment)
				pr.Get("/return/{outcome}", paymentHandler.HandleReturn)
				pr.Get("/{orderID}", paymentHandler.GetPayment)
			})

			r.Route("/cards", func(cr chi.Router) {
				cr.Post("/", paymentHandler.SaveCard)
				cr.Get("/", paymentHandler.ListCards)
				cr.Post("/charge", paymentHandler.ChargeStoredCard)
				cr.Delete("/{token}", paymentHandler.DeleteCard)
			})
		}
	})
}
