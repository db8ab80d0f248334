package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/api/http/handlers"
	"github.com/spec-kit/incident-service/internal/auth"
	"github.com/spec-kit/incident-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration. Idempotency may
// be nil to disable key handling.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Incidents      *handlers.IncidentsHandler
	History        *handlers.HistoryHandler
	Dashboard      *handlers.DashboardHandler
	Registry       *handlers.RegistryHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
	Idempotency    IdempotencyStore
	Logger         *zap.Logger
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Admin.Metrics)

	api := app.Group("/api", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	admin := auth.RequireAdmin()
	idem := idempotencyMiddleware(cfg.Idempotency, logger)

	incidents := api.Group("/incidents")
	incidents.Post("/", idem, cfg.Incidents.CreateIncident)
	incidents.Get("/", admin, cfg.Incidents.ListAll)
	incidents.Get("/id/getuser", cfg.Incidents.ListReported)
	incidents.Get("/assignto/getuser", cfg.Incidents.ListAssigned)
	incidents.Get("/No/:no", cfg.Incidents.GetByNumber)
	incidents.Get("/:id", cfg.Incidents.GetIncident)
	incidents.Patch("/:id/classification", admin, idem, cfg.Incidents.Reclassify)

	history := api.Group("/incident-history")
	history.Post("/", idem, cfg.History.Transition)
	history.Get("/", admin, cfg.History.ListAll)
	history.Get("/incident/:id", cfg.History.ListForIncident)
	history.Get("/incident/:id/replay", cfg.History.Replay)

	api.Get("/dashboard", admin, cfg.Dashboard.Overview)
	api.Get("/dashboard/me", cfg.Dashboard.Mine)

	registryRoutes := map[string]domain.ClassificationKind{
		"/wrklctns":      domain.KindWorkLocation,
		"/types":         domain.KindType,
		"/categories":    domain.KindCategory,
		"/subcategories": domain.KindSubcategory,
	}
	for path, kind := range registryRoutes {
		api.Get(path, cfg.Registry.List(kind))
		api.Get(path+"/:id", cfg.Registry.Get(kind))
	}
	api.Get("/auth", cfg.Registry.ListUsers)
	api.Get("/auth/me", cfg.Registry.Me)

	api.Post("/admin/reconcile", admin, cfg.Admin.Reconcile)
}
