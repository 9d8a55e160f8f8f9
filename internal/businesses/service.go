package businesses

import (
	"context"
	"errors"

	"directory_backend/internal/events"
	"directory_backend/platform/apperr"

	"github.com/google/uuid"
)

var validStatuses = map[string]bool{
	StatusActive:    true,
	StatusInactive:  true,
	StatusPending:   true,
	StatusSuspended: true,
}

// Service handles business read and lifecycle operations.
type Service struct {
	repo *Repository
	bus  events.Bus
}

func NewService(repo *Repository, bus events.Bus) *Service {
	return &Service{repo: repo, bus: bus}
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (Business, error) {
	business, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Business{}, apperr.NotFound("business not found")
		}
		return Business{}, apperr.Wrap(apperr.KindUnavailable, "business store unavailable", err)
	}
	return business, nil
}

// UpdateStatus changes the business lifecycle status and announces the change
// so that dashboard subscribers see it in real time.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (Business, error) {
	if !validStatuses[status] {
		return Business{}, apperr.Validation("unknown business status")
	}

	current, err := s.GetByID(ctx, id)
	if err != nil {
		return Business{}, err
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Business{}, apperr.NotFound("business not found")
		}
		return Business{}, apperr.Wrap(apperr.KindUnavailable, "business store unavailable", err)
	}

	s.bus.Publish(ctx, events.BusinessStatusChanged{
		BaseEvent:  events.NewBaseEvent(),
		BusinessID: updated.ID,
		OldStatus:  current.Status,
		NewStatus:  updated.Status,
	})

	return updated, nil
}
