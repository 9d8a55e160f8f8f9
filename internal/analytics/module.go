package analytics

import (
	"context"

	"directory_backend/internal/events"
	"directory_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module subscribes the recorder to the domain event bus.
type Module struct {
	recorder *Recorder
}

func NewModule(pool *pgxpool.Pool, bus events.Bus, log *logger.Logger) *Module {
	m := &Module{recorder: NewRecorder(pool, log)}

	bus.Subscribe(events.LeadCreated{}.EventName(), events.HandlerFunc(m.onLeadCreated))
	bus.Subscribe(events.LeadRouted{}.EventName(), events.HandlerFunc(m.onLeadRouted))
	bus.Subscribe(events.LeadStatusChanged{}.EventName(), events.HandlerFunc(m.onLeadStatusChanged))

	return m
}

// Recorder exposes the underlying recorder for workers that emit metrics
// outside the bus.
func (m *Module) Recorder() *Recorder {
	return m.recorder
}

func (m *Module) onLeadCreated(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadCreated)
	if !ok {
		return nil
	}
	m.recorder.Record(ctx, MetricLeadGenerated, e.BusinessID, &e.LeadID, map[string]interface{}{
		"source":   e.Source,
		"priority": e.Priority,
	})
	return nil
}

func (m *Module) onLeadRouted(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadRouted)
	if !ok {
		return nil
	}
	metadata := map[string]interface{}{
		"priority":       e.Priority,
		"assignmentType": e.AssignmentType,
	}
	if e.AssignedTo != nil {
		metadata["assignedTo"] = e.AssignedTo.String()
	}
	m.recorder.Record(ctx, MetricLeadRouted, e.BusinessID, &e.LeadID, metadata)
	return nil
}

func (m *Module) onLeadStatusChanged(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadStatusChanged)
	if !ok {
		return nil
	}
	m.recorder.Record(ctx, MetricLeadStatusChanged, e.BusinessID, &e.LeadID, map[string]interface{}{
		"oldStatus": e.OldStatus,
		"newStatus": e.NewStatus,
	})
	return nil
}
