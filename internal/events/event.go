// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"directory_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a new lead is captured for a business.
type LeadCreated struct {
	BaseEvent
	LeadID     uuid.UUID  `json:"leadId"`
	BusinessID uuid.UUID  `json:"businessId"`
	AssignedTo *uuid.UUID `json:"assignedTo,omitempty"`
	Source     string     `json:"source"`
	Priority   string     `json:"priority"`
}

func (e LeadCreated) EventName() string { return "leads.created" }

// LeadRouted is published after a routing run persists its decision.
type LeadRouted struct {
	BaseEvent
	LeadID         uuid.UUID  `json:"leadId"`
	BusinessID     uuid.UUID  `json:"businessId"`
	AssignedTo     *uuid.UUID `json:"assignedTo,omitempty"`
	Priority       string     `json:"priority"`
	AssignmentType string     `json:"assignmentType"`
	RoutedBy       *uuid.UUID `json:"routedBy,omitempty"`
}

func (e LeadRouted) EventName() string { return "leads.routed" }

// LeadStatusChanged is published when a lead's status transition is persisted.
type LeadStatusChanged struct {
	BaseEvent
	LeadID     uuid.UUID  `json:"leadId"`
	BusinessID uuid.UUID  `json:"businessId"`
	AssignedTo *uuid.UUID `json:"assignedTo,omitempty"`
	OldStatus  string     `json:"oldStatus"`
	NewStatus  string     `json:"newStatus"`
}

func (e LeadStatusChanged) EventName() string { return "leads.status.changed" }

// =============================================================================
// Businesses Domain Events
// =============================================================================

// BusinessStatusChanged is published when a business changes lifecycle status.
type BusinessStatusChanged struct {
	BaseEvent
	BusinessID uuid.UUID `json:"businessId"`
	OldStatus  string    `json:"oldStatus"`
	NewStatus  string    `json:"newStatus"`
}

func (e BusinessStatusChanged) EventName() string { return "businesses.status.changed" }
