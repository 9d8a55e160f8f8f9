// Package leads provides the lead lifecycle bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"directory_backend/internal/businesses"
	"directory_backend/internal/events"
	apphttp "directory_backend/internal/http"
	"directory_backend/internal/identity"
	"directory_backend/internal/leads/handler"
	"directory_backend/internal/leads/repository"
	"directory_backend/internal/leads/routing"
	"directory_backend/platform/config"
	"directory_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	routing *routing.Service
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(pool *pgxpool.Pool, businessRepo *businesses.Repository, notifier routing.Notifier, eventBus events.Bus, cfg config.RoutingConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	directory := identity.New(pool)

	selector := routing.NewSelector(directory, repo)
	svc := routing.New(repo, businessRepo, selector, notifier, eventBus, cfg, log)
	h := handler.New(svc)

	return &Module{
		handler: h,
		routing: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Routing exposes the orchestrator for other modules and workers.
func (m *Module) Routing() *routing.Service {
	return m.routing
}

// RegisterRoutes mounts the module's routes. Lead capture is public and
// rate limited; everything else requires authentication.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterCaptureRoute(ctx.Public)
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
}
