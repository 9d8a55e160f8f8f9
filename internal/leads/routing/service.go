package routing

import (
	"context"
	"errors"
	"time"

	"directory_backend/internal/businesses"
	"directory_backend/internal/events"
	"directory_backend/internal/leads/domain"
	"directory_backend/internal/leads/repository"
	"directory_backend/internal/leads/transport"
	"directory_backend/platform/apperr"
	"directory_backend/platform/config"
	"directory_backend/platform/logger"
	"directory_backend/platform/phone"

	"github.com/google/uuid"
)

// trailingWindow is the lookback used for the business lead-volume signal.
const trailingWindow = 30 * 24 * time.Hour

// LeadStore is the data access interface needed by the orchestrator.
// Consumer-driven: only what routing needs.
type LeadStore interface {
	Create(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	UpdateRouting(ctx context.Context, id uuid.UUID, params repository.UpdateRoutingParams) (repository.Lead, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, params repository.UpdateStatusParams) (repository.Lead, error)
	CountCreatedSince(ctx context.Context, businessID uuid.UUID, since time.Time) (int, error)
	List(ctx context.Context, filter repository.ListFilter) ([]repository.Lead, int, error)
}

// BusinessReader loads the business a lead targets.
type BusinessReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (businesses.Business, error)
}

// Notifier delivers lead events to live subscribers. Implementations must
// never block; the orchestrator calls them synchronously right after a
// successful persist so that per-topic ordering follows persist order.
type Notifier interface {
	LeadCreated(lead transport.LeadResponse)
	LeadRouted(lead transport.LeadResponse, decision transport.RoutingDecision)
	LeadStatusChanged(lead transport.LeadResponse)
}

// Service is the routing orchestrator.
type Service struct {
	store      LeadStore
	businesses BusinessReader
	selector   *Selector
	notifier   Notifier
	bus        events.Bus
	cfg        config.RoutingConfig
	log        *logger.Logger
}

func New(store LeadStore, businessReader BusinessReader, selector *Selector, notifier Notifier, bus events.Bus, cfg config.RoutingConfig, log *logger.Logger) *Service {
	return &Service{
		store:      store,
		businesses: businessReader,
		selector:   selector,
		notifier:   notifier,
		bus:        bus,
		cfg:        cfg,
		log:        log,
	}
}

// CreateLead captures a new inquiry. The target business must exist and be
// ACTIVE. Unless the request opts out, creation is followed by an automatic
// routing run; a routing failure after a successful create is logged and the
// created lead is returned (routing can be retried through RouteLead).
func (s *Service) CreateLead(ctx context.Context, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	business, err := s.loadBusiness(ctx, req.BusinessID)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if !business.IsActive() {
		return transport.LeadResponse{}, apperr.Unprocessable("business is not accepting leads")
	}

	source := req.Source
	if source == "" {
		source = domain.SourceWebsite
	}

	params := repository.CreateLeadParams{
		BusinessID: req.BusinessID,
		Name:       req.Name,
		Email:      req.Email,
		Source:     source,
		Priority:   domain.PriorityMedium,
	}
	if req.Phone != "" {
		normalized := phone.NormalizeE164(req.Phone)
		params.Phone = &normalized
	}
	if req.Message != "" {
		params.Message = &req.Message
	}

	persistCtx, cancel := context.WithTimeout(ctx, s.cfg.GetPersistTimeout())
	lead, err := s.store.Create(persistCtx, params)
	cancel()
	if err != nil {
		return transport.LeadResponse{}, apperr.Wrap(apperr.KindUnavailable, "lead store unavailable", err)
	}

	response := toLeadResponse(lead)
	s.notifier.LeadCreated(response)
	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		BusinessID: lead.BusinessID,
		AssignedTo: lead.AssignedTo,
		Source:     string(lead.Source),
		Priority:   string(lead.Priority),
	})

	if !req.WantsAutoRoute() {
		return response, nil
	}

	routed, err := s.RouteLead(ctx, lead.ID, transport.RouteLeadRequest{AssignmentType: transport.AssignmentAuto}, nil)
	if err != nil {
		s.log.Warn("auto-route after creation failed", "leadId", lead.ID, "error", err)
		return response, nil
	}
	return routed.Lead, nil
}

// RouteLead runs a full routing pass: score priority (unless supplied),
// select an assignee (unless supplied), persist conditionally, then publish.
// A lost optimistic update or a transient store failure is retried once with
// a short backoff before surfacing.
func (s *Service) RouteLead(ctx context.Context, id uuid.UUID, req transport.RouteLeadRequest, routedBy *uuid.UUID) (transport.RouteLeadResponse, error) {
	var lastErr error

	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return transport.RouteLeadResponse{}, apperr.Wrap(apperr.KindUnavailable, "routing cancelled", ctx.Err())
			case <-time.After(s.cfg.GetConflictRetryDelay()):
			}
		}

		response, retryable, err := s.routeOnce(ctx, id, req, routedBy)
		if err == nil {
			return response, nil
		}
		if !retryable {
			return transport.RouteLeadResponse{}, err
		}
		lastErr = err
	}

	return transport.RouteLeadResponse{}, lastErr
}

func (s *Service) routeOnce(ctx context.Context, id uuid.UUID, req transport.RouteLeadRequest, routedBy *uuid.UUID) (transport.RouteLeadResponse, bool, error) {
	lead, err := s.loadLead(ctx, id)
	if err != nil {
		return transport.RouteLeadResponse{}, false, err
	}

	business, err := s.loadBusiness(ctx, lead.BusinessID)
	if err != nil {
		return transport.RouteLeadResponse{}, false, err
	}

	priority := lead.Priority
	if req.Priority != nil {
		priority = *req.Priority
	} else {
		volume, err := s.store.CountCreatedSince(ctx, business.ID, time.Now().Add(-trailingWindow))
		if err != nil {
			return transport.RouteLeadResponse{}, true, apperr.Wrap(apperr.KindUnavailable, "lead store unavailable", err)
		}
		priority = domain.ScorePriority(lead.Source, volume, lead.Priority)
	}

	assignee := lead.AssignedTo
	switch {
	case req.AssignedTo.Set:
		// Manual choice always wins, including an explicit null to unassign.
		assignee = req.AssignedTo.Value
	case req.AssignmentType == transport.AssignmentAuto:
		assignee, err = s.selector.Select(ctx, business, nil)
		if err != nil {
			return transport.RouteLeadResponse{}, true, apperr.Wrap(apperr.KindUnavailable, "handler selection failed", err)
		}
	}

	persistCtx, cancel := context.WithTimeout(ctx, s.cfg.GetPersistTimeout())
	updated, err := s.store.UpdateRouting(persistCtx, lead.ID, repository.UpdateRoutingParams{
		AssignedTo:        assignee,
		Priority:          priority,
		ExpectedUpdatedAt: lead.UpdatedAt,
	})
	cancel()
	if err != nil {
		return transport.RouteLeadResponse{}, true, s.classifyStoreError(err)
	}

	decision := transport.RoutingDecision{
		AssignedTo:     updated.AssignedTo,
		Priority:       updated.Priority,
		AssignmentType: req.AssignmentType,
		RoutedAt:       time.Now(),
	}

	response := toLeadResponse(updated)
	s.notifier.LeadRouted(response, decision)
	s.bus.Publish(ctx, events.LeadRouted{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         updated.ID,
		BusinessID:     updated.BusinessID,
		AssignedTo:     updated.AssignedTo,
		Priority:       string(updated.Priority),
		AssignmentType: string(req.AssignmentType),
		RoutedBy:       routedBy,
	})

	assignedTo := "none"
	if updated.AssignedTo != nil {
		assignedTo = updated.AssignedTo.String()
	}
	s.log.RoutingDecision(updated.ID.String(), updated.BusinessID.String(), assignedTo,
		string(updated.Priority), string(req.AssignmentType))

	return transport.RouteLeadResponse{Lead: response, Routing: decision}, false, nil
}

// UpdateStatus applies a status transition through the state machine and
// nothing else.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, req transport.UpdateLeadStatusRequest) (transport.LeadResponse, error) {
	var lastErr error

	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return transport.LeadResponse{}, apperr.Wrap(apperr.KindUnavailable, "status update cancelled", ctx.Err())
			case <-time.After(s.cfg.GetConflictRetryDelay()):
			}
		}

		lead, err := s.loadLead(ctx, id)
		if err != nil {
			return transport.LeadResponse{}, err
		}

		next, stampFirstResponse, err := domain.Transition(lead.Status, req.Status, lead.FirstResponseAt != nil)
		if err != nil {
			return transport.LeadResponse{}, apperr.Wrap(apperr.KindUnprocessable, err.Error(), err)
		}

		persistCtx, cancel := context.WithTimeout(ctx, s.cfg.GetPersistTimeout())
		updated, err := s.store.UpdateStatus(persistCtx, lead.ID, repository.UpdateStatusParams{
			Status:             next,
			StampFirstResponse: stampFirstResponse,
			ExpectedUpdatedAt:  lead.UpdatedAt,
		})
		cancel()
		if err != nil {
			lastErr = s.classifyStoreError(err)
			if apperr.Is(lastErr, apperr.KindNotFound) {
				return transport.LeadResponse{}, lastErr
			}
			continue
		}

		response := toLeadResponse(updated)
		s.notifier.LeadStatusChanged(response)
		s.bus.Publish(ctx, events.LeadStatusChanged{
			BaseEvent:  events.NewBaseEvent(),
			LeadID:     updated.ID,
			BusinessID: updated.BusinessID,
			AssignedTo: updated.AssignedTo,
			OldStatus:  string(lead.Status),
			NewStatus:  string(updated.Status),
		})

		return response, nil
	}

	return transport.LeadResponse{}, lastErr
}

// GetByID returns a single lead.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.loadLead(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return toLeadResponse(lead), nil
}

// List returns leads matching the query, ordered by priority then recency.
func (s *Service) List(ctx context.Context, query transport.ListLeadsQuery) (transport.ListLeadsResponse, error) {
	leads, total, err := s.store.List(ctx, repository.ListFilter{
		BusinessID: query.BusinessID,
		AssignedTo: query.AssignedTo,
		Status:     query.Status,
		Priority:   query.Priority,
		Page:       query.Page,
		Limit:      query.Limit,
	})
	if err != nil {
		return transport.ListLeadsResponse{}, apperr.Wrap(apperr.KindUnavailable, "lead store unavailable", err)
	}

	limit := query.Limit
	if limit < 1 {
		limit = 10
	}
	page := query.Page
	if page < 1 {
		page = 1
	}

	responses := make([]transport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		responses = append(responses, toLeadResponse(lead))
	}

	return transport.ListLeadsResponse{
		Leads: responses,
		Pagination: transport.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: (total + limit - 1) / limit,
		},
	}, nil
}

func (s *Service) loadLead(ctx context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Lead{}, apperr.NotFound("lead not found")
		}
		return repository.Lead{}, apperr.Wrap(apperr.KindUnavailable, "lead store unavailable", err)
	}
	return lead, nil
}

func (s *Service) loadBusiness(ctx context.Context, id uuid.UUID) (businesses.Business, error) {
	business, err := s.businesses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, businesses.ErrNotFound) {
			return businesses.Business{}, apperr.NotFound("business not found")
		}
		return businesses.Business{}, apperr.Wrap(apperr.KindUnavailable, "business store unavailable", err)
	}
	return business, nil
}

func (s *Service) classifyStoreError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("lead not found")
	case errors.Is(err, repository.ErrConflict):
		return apperr.Conflict("lead was modified concurrently")
	default:
		return apperr.Wrap(apperr.KindUnavailable, "lead store unavailable", err)
	}
}

func toLeadResponse(lead repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:              lead.ID,
		BusinessID:      lead.BusinessID,
		AssignedTo:      lead.AssignedTo,
		Name:            lead.Name,
		Email:           lead.Email,
		Phone:           lead.Phone,
		Message:         lead.Message,
		Source:          lead.Source,
		Status:          lead.Status,
		Priority:        lead.Priority,
		CreatedAt:       lead.CreatedAt,
		UpdatedAt:       lead.UpdatedAt,
		AssignedAt:      lead.AssignedAt,
		FirstResponseAt: lead.FirstResponseAt,
	}
}
