package businesses

import (
	"net/http"

	apphttp "directory_backend/internal/http"
	"directory_backend/platform/httpkit"
	"directory_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Module is the businesses bounded context module implementing http.Module.
type Module struct {
	svc *Service
}

func NewModule(svc *Service) *Module {
	return &Module{svc: svc}
}

func (m *Module) Name() string { return "businesses" }

// Service exposes the underlying service for cross-module wiring.
func (m *Module) Service() *Service {
	return m.svc
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/businesses/:id", m.getByID)
	ctx.Admin.PATCH("/businesses/:id/status", m.updateStatus)
}

func (m *Module) getByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	business, err := m.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, business)
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE INACTIVE PENDING SUSPENDED"`
}

func (m *Module) updateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := validator.Validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	business, err := m.svc.UpdateStatus(c.Request.Context(), id, req.Status)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, business)
}
