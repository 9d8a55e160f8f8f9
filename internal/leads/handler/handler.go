// Package handler exposes the lead lifecycle over HTTP.
package handler

import (
	"net/http"
	"strconv"

	"directory_backend/internal/leads/domain"
	"directory_backend/internal/leads/routing"
	"directory_backend/internal/leads/transport"
	"directory_backend/platform/httpkit"
	"directory_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *routing.Service
}

func New(svc *routing.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the authenticated lead routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.POST("/:id/route", h.Route)
	rg.PATCH("/:id/status", h.UpdateStatus)
}

// RegisterCaptureRoute mounts the unauthenticated capture endpoint.
func (h *Handler) RegisterCaptureRoute(rg *gin.RouterGroup) {
	rg.POST("/leads", h.Create)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := validator.Validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.svc.CreateLead(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, lead)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) Route(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.RouteLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if req.AssignmentType == "" {
		req.AssignmentType = transport.AssignmentAuto
	}
	if err := validator.Validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	var routedBy *uuid.UUID
	if identity := httpkit.GetIdentity(c); identity.IsAuthenticated() {
		userID := identity.UserID()
		routedBy = &userID
	}

	result, err := h.svc.RouteLead(c.Request.Context(), id, req, routedBy)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.UpdateLeadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := validator.Validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.svc.UpdateStatus(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) List(c *gin.Context) {
	query, err := parseListQuery(c)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	result, err := h.svc.List(c.Request.Context(), query)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func parseListQuery(c *gin.Context) (transport.ListLeadsQuery, error) {
	var query transport.ListLeadsQuery

	if raw := c.Query("businessId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return query, err
		}
		query.BusinessID = &id
	}
	if raw := c.Query("assignedTo"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return query, err
		}
		query.AssignedTo = &id
	}
	if raw := c.Query("status"); raw != "" {
		status := domain.Status(raw)
		if err := validator.Validate.Var(raw, "oneof=NEW CONTACTED QUALIFIED CONVERTED LOST"); err != nil {
			return query, err
		}
		query.Status = &status
	}
	if raw := c.Query("priority"); raw != "" {
		priority := domain.Priority(raw)
		if err := validator.Validate.Var(raw, "oneof=LOW MEDIUM HIGH URGENT"); err != nil {
			return query, err
		}
		query.Priority = &priority
	}
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return query, err
		}
		query.Page = page
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return query, err
		}
		query.Limit = limit
	}

	return query, nil
}
