// Package notification bridges persisted lead changes to live subscribers.
// The routing orchestrator calls the notifier synchronously after each
// persist; the hub fans the event out without blocking the caller.
package notification

import (
	"context"

	"directory_backend/internal/events"
	apphttp "directory_backend/internal/http"
	"directory_backend/internal/leads/transport"
	"directory_backend/internal/notification/hub"
	"directory_backend/platform/logger"
)

// Module owns the fan-out hub and its SSE endpoint.
type Module struct {
	hub *hub.Hub
	log *logger.Logger
}

func NewModule(bus events.Bus, log *logger.Logger) *Module {
	m := &Module{
		hub: hub.New(log),
		log: log,
	}
	bus.Subscribe(events.BusinessStatusChanged{}.EventName(), events.HandlerFunc(m.onBusinessStatusChanged))
	return m
}

func (m *Module) Name() string { return "notification" }

// Hub exposes the fan-out hub for wiring into the orchestrator.
func (m *Module) Hub() *hub.Hub {
	return m.hub
}

// Close shuts down the hub and disconnects all subscribers.
func (m *Module) Close() {
	m.hub.Close()
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/notifications/stream", m.hub.Handler())
}

// LeadCreated announces a freshly captured lead on its business feed.
func (m *Module) LeadCreated(lead transport.LeadResponse) {
	m.hub.Publish(hub.BusinessTopic(lead.BusinessID), hub.KindLeadCreated, lead)
}

// LeadRouted announces a routing outcome. An assignment reaches both the
// business feed and the assignee's personal feed; an unassigned outcome is
// a plain update on the business feed only.
func (m *Module) LeadRouted(lead transport.LeadResponse, decision transport.RoutingDecision) {
	payload := transport.RouteLeadResponse{Lead: lead, Routing: decision}
	if lead.AssignedTo == nil {
		m.hub.Publish(hub.BusinessTopic(lead.BusinessID), hub.KindLeadUpdated, payload)
		return
	}
	m.hub.Publish(hub.BusinessTopic(lead.BusinessID), hub.KindLeadAssigned, payload)
	m.hub.Publish(hub.UserTopic(*lead.AssignedTo), hub.KindLeadAssigned, payload)
}

// LeadStatusChanged announces a status transition on the business feed and,
// when the lead has a handler, on that handler's feed.
func (m *Module) LeadStatusChanged(lead transport.LeadResponse) {
	m.hub.Publish(hub.BusinessTopic(lead.BusinessID), hub.KindLeadUpdated, lead)
	if lead.AssignedTo != nil {
		m.hub.Publish(hub.UserTopic(*lead.AssignedTo), hub.KindLeadUpdated, lead)
	}
}

func (m *Module) onBusinessStatusChanged(ctx context.Context, event events.Event) error {
	change, ok := event.(events.BusinessStatusChanged)
	if !ok {
		return nil
	}
	m.hub.Publish(hub.BusinessTopic(change.BusinessID), hub.KindBusinessUpdated, change)
	return nil
}
