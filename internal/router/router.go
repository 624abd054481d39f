package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rspatil/orderdesk/internal/handler"
	customMiddleware "github.com/rspatil/orderdesk/internal/middleware"
)

func NewRouter(
	webhookHandler *handler.WebhookHandler,
	orderHandler *handler.OrderHandler,
	subscriptionHandler *handler.SubscriptionHandler,
	eventsHandler *handler.EventsHandler,
	healthHandler *handler.HealthHandler,
) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(customMiddleware.MetricsMiddleware)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Post("/webhooks/{channel}", webhookHandler.Ingest)

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", orderHandler.Create)
			r.Get("/{id}", orderHandler.Get)
			r.Patch("/{id}/status", orderHandler.UpdateStatus)
		})

		r.Post("/subscriptions", subscriptionHandler.Register)
	})

	// Long-lived SSE connections sit outside the timeout group.
	r.Get("/restaurants/{restaurantID}/orders/stream", eventsHandler.Stream)

	// Health & Readiness Routes
	r.Get("/healthz", healthHandler.Liveness)
	r.Get("/readyz", healthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
