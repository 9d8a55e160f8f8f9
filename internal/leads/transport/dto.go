package transport

import (
	"time"

	"directory_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// AssignmentType distinguishes selector-driven routing from an explicit
// handler choice.
type AssignmentType string

const (
	AssignmentAuto   AssignmentType = "auto"
	AssignmentManual AssignmentType = "manual"
)

// Request DTOs

type CreateLeadRequest struct {
	BusinessID uuid.UUID     `json:"businessId" validate:"required"`
	Name       string        `json:"name" validate:"required,min=1,max=200"`
	Email      string        `json:"email" validate:"required,email"`
	Phone      string        `json:"phone,omitempty" validate:"omitempty,min=5,max=20"`
	Message    string        `json:"message,omitempty" validate:"omitempty,max=2000"`
	Source     domain.Source `json:"source,omitempty" validate:"omitempty,oneof=WEBSITE PHONE EMAIL REFERRAL SOCIAL_MEDIA ENRICHMENT OTHER"`
	AutoRoute  *bool         `json:"autoRoute,omitempty" validate:"-"`
}

// WantsAutoRoute reports whether creation should be followed by a routing
// run. Defaults to true when the field is omitted.
func (r CreateLeadRequest) WantsAutoRoute() bool {
	return r.AutoRoute == nil || *r.AutoRoute
}

type RouteLeadRequest struct {
	AssignmentType AssignmentType   `json:"assignmentType" validate:"required,oneof=auto manual"`
	AssignedTo     OptionalUUID     `json:"assignedTo,omitempty" validate:"-"`
	Priority       *domain.Priority `json:"priority,omitempty" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
}

type UpdateLeadStatusRequest struct {
	Status domain.Status `json:"status" validate:"required,oneof=NEW CONTACTED QUALIFIED CONVERTED LOST"`
}

type ListLeadsQuery struct {
	BusinessID *uuid.UUID
	AssignedTo *uuid.UUID
	Status     *domain.Status
	Priority   *domain.Priority
	Page       int
	Limit      int
}

// Response DTOs

type LeadResponse struct {
	ID              uuid.UUID       `json:"id"`
	BusinessID      uuid.UUID       `json:"businessId"`
	AssignedTo      *uuid.UUID      `json:"assignedTo,omitempty"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	Phone           *string         `json:"phone,omitempty"`
	Message         *string         `json:"message,omitempty"`
	Source          domain.Source   `json:"source"`
	Status          domain.Status   `json:"status"`
	Priority        domain.Priority `json:"priority"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	AssignedAt      *time.Time      `json:"assignedAt,omitempty"`
	FirstResponseAt *time.Time      `json:"firstResponseAt,omitempty"`
}

// RoutingDecision reports how a routing run concluded.
type RoutingDecision struct {
	AssignedTo     *uuid.UUID      `json:"assignedTo,omitempty"`
	Priority       domain.Priority `json:"priority"`
	AssignmentType AssignmentType  `json:"assignmentType"`
	RoutedAt       time.Time       `json:"routedAt"`
}

type RouteLeadResponse struct {
	Lead    LeadResponse    `json:"lead"`
	Routing RoutingDecision `json:"routing"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type ListLeadsResponse struct {
	Leads      []LeadResponse `json:"leads"`
	Pagination Pagination     `json:"pagination"`
}
