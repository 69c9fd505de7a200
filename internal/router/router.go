package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"merch-inventory-dashboard/internal/handler"
	"merch-inventory-dashboard/internal/metrics"
	"merch-inventory-dashboard/internal/middleware"
	"merch-inventory-dashboard/internal/web"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler          *handler.Handler
	PageHandler      *handler.PageHandler
	InventoryHandler *handler.InventoryHandler
	AdminHandler     *handler.AdminHandler
	Metrics          *metrics.Metrics
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	r.Handle("/static/*", web.StaticHandler())

	// HTML views
	if cfg.PageHandler != nil {
		r.Get("/", cfg.PageHandler.Root)
		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", cfg.PageHandler.Inventory)
			r.Post("/add", cfg.PageHandler.AddItem)
			r.Post("/update", cfg.PageHandler.UpdateItem)
			r.Post("/delete", cfg.PageHandler.DeleteItem)
		})
		r.Get("/sell", cfg.PageHandler.SellForm)
		r.Post("/sell", cfg.PageHandler.Sell)
		r.Get("/dashboard", cfg.PageHandler.Dashboard)
		r.Get("/sales", cfg.PageHandler.Sales)
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", handler.IdempotencyHeader},
			ExposedHeaders: []string{"X-Request-ID", "Idempotent-Replayed"},
			MaxAge:         300,
		}))

		// Health check endpoints
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		// Inventory endpoints
		if cfg.InventoryHandler != nil {
			r.Route("/inventory", func(r chi.Router) {
				r.Get("/", cfg.InventoryHandler.List)
				r.Post("/", cfg.InventoryHandler.Add)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", cfg.InventoryHandler.Get)
					r.Put("/", cfg.InventoryHandler.Update)
					r.Delete("/", cfg.InventoryHandler.Delete)
					r.Post("/sell", cfg.InventoryHandler.Sell)
				})
			})
			r.Get("/sales", cfg.InventoryHandler.SalesLog)
			r.Get("/dashboard", cfg.InventoryHandler.Dashboard)
		}

		// Admin endpoints
		if cfg.AdminHandler != nil {
			r.Get("/admin/stats", cfg.AdminHandler.GetStats)
		}
	})

	return r
}
