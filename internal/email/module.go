package email

import (
	"context"

	"directory_backend/internal/businesses"
	"directory_backend/internal/events"
	"directory_backend/internal/identity"
	leadrepo "directory_backend/internal/leads/repository"
	"directory_backend/platform/logger"

	"github.com/google/uuid"
)

// HandlerLookup resolves a handler's contact details.
type HandlerLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (identity.User, error)
}

// BusinessLookup resolves the business a lead belongs to.
type BusinessLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (businesses.Business, error)
}

// LeadLookup resolves the lead a notification is about.
type LeadLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (leadrepo.Lead, error)
}

// Module sends handler-facing email in response to domain events. Delivery
// is best effort; a failed send is logged and never retried here.
type Module struct {
	sender     Sender
	users      HandlerLookup
	businesses BusinessLookup
	leads      LeadLookup
	log        *logger.Logger
}

func NewModule(bus events.Bus, sender Sender, users HandlerLookup, businessLookup BusinessLookup, leads LeadLookup, log *logger.Logger) *Module {
	m := &Module{
		sender:     sender,
		users:      users,
		businesses: businessLookup,
		leads:      leads,
		log:        log,
	}
	bus.Subscribe(events.LeadRouted{}.EventName(), events.HandlerFunc(m.onLeadRouted))
	return m
}

func (m *Module) onLeadRouted(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadRouted)
	if !ok || e.AssignedTo == nil {
		return nil
	}

	handler, err := m.users.GetByID(ctx, *e.AssignedTo)
	if err != nil {
		m.log.Warn("assignment email skipped, handler lookup failed", "userId", *e.AssignedTo, "error", err)
		return nil
	}

	businessName := e.BusinessID.String()
	if business, err := m.businesses.GetByID(ctx, e.BusinessID); err == nil {
		businessName = business.Name
	}

	leadName := e.LeadID.String()
	if lead, err := m.leads.GetByID(ctx, e.LeadID); err == nil {
		leadName = lead.Name
	}

	if err := m.sender.SendLeadAssigned(ctx, handler.Email, handler.Name, leadName, businessName, e.Priority); err != nil {
		m.log.Warn("assignment email failed", "leadId", e.LeadID, "handlerId", handler.ID, "error", err)
	}
	return nil
}
