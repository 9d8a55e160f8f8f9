package scheduler

import (
	"context"
	"errors"
	"fmt"

	"directory_backend/internal/analytics"
	"directory_backend/internal/businesses"
	"directory_backend/internal/email"
	"directory_backend/internal/identity"
	"directory_backend/internal/leads/domain"
	"directory_backend/internal/leads/repository"
	"directory_backend/platform/config"
	"directory_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	leads      *repository.Repository
	users      *identity.Repository
	businesses *businesses.Repository
	sender     email.Sender
	recorder   *analytics.Recorder
	log        *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, sender email.Sender, recorder *analytics.Recorder, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:     server,
		mux:        mux,
		leads:      repository.New(pool),
		users:      identity.New(pool),
		businesses: businesses.NewRepository(pool),
		sender:     sender,
		recorder:   recorder,
		log:        log,
	}

	mux.HandleFunc(TaskLeadFollowUp, w.handleLeadFollowUp)

	return w, nil
}

// handleLeadFollowUp nudges the assigned handler when a lead still has no
// first response by the time the reminder fires. A lead that moved on, was
// closed or lost its handler makes the task a no-op.
func (w *Worker) handleLeadFollowUp(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadFollowUpPayload(task)
	if err != nil {
		return err
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}

	lead, err := w.leads.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	if !followUpNeeded(lead) {
		return nil
	}

	handler, err := w.users.GetByID(ctx, *lead.AssignedTo)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil
		}
		return err
	}

	businessName := payload.BusinessID
	if business, err := w.businesses.GetByID(ctx, lead.BusinessID); err == nil {
		businessName = business.Name
	}

	if err := w.sender.SendFollowUpReminder(ctx, handler.Email, handler.Name, lead.Name, businessName); err != nil {
		return err
	}

	w.recorder.Record(ctx, analytics.MetricLeadFollowUpNudge, lead.BusinessID, &lead.ID, map[string]interface{}{
		"assignedTo": handler.ID.String(),
	})

	w.log.Info("follow-up reminder sent", "leadId", lead.ID, "handlerId", handler.ID)
	return nil
}

// followUpNeeded reports whether a reminder is still warranted. A lead that
// progressed past NEW, already got a first response or lost its handler does
// not get nudged. Converted and lost leads leave first_response_at untouched,
// so the status check cannot be folded into the timestamp one.
func followUpNeeded(lead repository.Lead) bool {
	return lead.Status == domain.StatusNew && lead.FirstResponseAt == nil && lead.AssignedTo != nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
