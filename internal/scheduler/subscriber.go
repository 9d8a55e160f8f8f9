package scheduler

import (
	"context"
	"time"

	"directory_backend/internal/events"
	"directory_backend/platform/config"
	"directory_backend/platform/logger"
)

// Subscriber schedules a follow-up reminder whenever a lead is assigned.
// Scheduling is best effort; a failed enqueue is logged and the routing
// flow is unaffected.
type Subscriber struct {
	scheduler FollowUpScheduler
	cfg       config.RoutingConfig
	log       *logger.Logger
}

func NewSubscriber(bus events.Bus, sched FollowUpScheduler, cfg config.RoutingConfig, log *logger.Logger) *Subscriber {
	s := &Subscriber{
		scheduler: sched,
		cfg:       cfg,
		log:       log,
	}
	bus.Subscribe(events.LeadRouted{}.EventName(), events.HandlerFunc(s.onLeadRouted))
	return s
}

func (s *Subscriber) onLeadRouted(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadRouted)
	if !ok || e.AssignedTo == nil {
		return nil
	}

	runAt := time.Now().Add(s.cfg.GetFollowUpAfter())
	err := s.scheduler.ScheduleLeadFollowUp(ctx, LeadFollowUpPayload{
		LeadID:     e.LeadID.String(),
		BusinessID: e.BusinessID.String(),
	}, runAt)
	if err != nil {
		s.log.Warn("follow-up scheduling failed", "leadId", e.LeadID, "error", err)
	}
	return nil
}
