// Package http exposes the ledger services as a JSON API.
package http

import (
	"log/slog"
	"net/http"

	"github.com/cimillas/client-ledger/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps are the services and settings the router serves. Scenarios and
// Metrics are optional.
type Deps struct {
	Clients     ClientAPI
	Lifecycle   LifecycleAPI
	Orders      OrderAPI
	Scenarios   ScenarioRunner
	Metrics     http.Handler
	Ready       []Pinger
	CORSOrigins []string
	Logger      *slog.Logger
}

type handler struct {
	clients   ClientAPI
	lifecycle LifecycleAPI
	orders    OrderAPI
	scenarios ScenarioRunner
	logger    *slog.Logger
}

func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	h := &handler{
		clients:   d.Clients,
		lifecycle: d.Lifecycle,
		orders:    d.Orders,
		scenarios: d.Scenarios,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(CORS(d.CORSOrigins))
	r.NotFound(NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(MethodNotAllowedHandler().ServeHTTP)

	r.Get("/health", HealthHandler)
	r.Get("/ready", ReadyHandler(d.Ready...))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Route("/api/clients", func(r chi.Router) {
		r.Post("/", h.createClient)
		r.Get("/", h.searchClients)
		r.Get("/by-profit", h.clientsByProfit)
		r.Post("/reset-profit", h.resetProfit)
		r.Get("/profit/{id}", h.clientProfit)
		r.Patch("/deactivate/{id}", h.deactivateClient)
		r.Patch("/recover/{id}", h.recoverClient)
		r.Get("/{id}", h.getClient)
		r.Put("/{id}", h.updateClient)
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Post("/", h.createOrder)
		r.Get("/client/{id}", h.listOrders(d.Orders.ListByClient))
		r.Get("/supplier/{id}", h.listOrders(d.Orders.ListBySupplier))
		r.Get("/consumer/{id}", h.listOrders(d.Orders.ListByConsumer))
		r.Patch("/deactivate/{id}", h.deactivateOrder)
		r.Get("/{id}", h.getOrder)
		r.Patch("/{id}/price", h.updateOrderPrice)
		r.Delete("/{id}", h.deleteOrder)
	})

	if d.Scenarios != nil {
		r.Post("/api/scenarios/{name}", h.runScenario)
	}
	return r
}
