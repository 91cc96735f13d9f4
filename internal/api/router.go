package api

import (
	"context"
	"net/http"

	"cargo-route-service/internal/api/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// Deps are the services the HTTP layer delegates to.
type Deps struct {
	Resolver   handlers.PointResolver
	Distances  handlers.DistanceCalculator
	Prices     handlers.PriceCalculator
	Options    handlers.OptionGenerator
	Selector   handlers.OptionSelector
	Routes     handlers.RouteReader
	Lifecycle  handlers.LegTransitions
	Legs       handlers.LegReader
	Health     map[string]func(ctx context.Context) error
	CORSOrigin []string
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: d.CORSOrigin,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
	}).Handler)
	r.Use(forwardBearer)

	health := &handlers.HealthHandler{Checks: d.Health}
	distance := &handlers.DistanceHandler{Resolver: d.Resolver, Distances: d.Distances}
	prices := &handlers.PriceHandler{Prices: d.Prices}
	routes := &handlers.RouteHandler{Options: d.Options, Selector: d.Selector, Routes: d.Routes}
	legs := &handlers.LegHandler{Lifecycle: d.Lifecycle, Legs: d.Legs}

	r.Get("/health", health.Health)
	r.Post("/distance", distance.Distance)
	r.Post("/prices/estimate", prices.Estimate)
	r.Post("/prices/real", prices.Real)
	r.Post("/route-options", routes.Plan)

	r.Route("/routes", func(r chi.Router) {
		r.Post("/", routes.Select)
		r.Get("/{id}", routes.Get)
	})

	r.Route("/legs/{id}", func(r chi.Router) {
		r.Get("/", legs.Get)
		r.Post("/start", legs.Start)
		r.Post("/complete", legs.Complete)
		r.Post("/cancel", legs.Cancel)
	})

	return r
}
