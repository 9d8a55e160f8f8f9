// Package routing implements the lead routing engine: the assignment
// selector and the orchestrator that scores, assigns, transitions, persists
// and announces every lead change.
package routing

import (
	"context"

	"directory_backend/internal/businesses"
	"directory_backend/internal/identity"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// HandlerDirectory lists the users eligible to receive assignments.
type HandlerDirectory interface {
	ListAdministrators(ctx context.Context) ([]identity.User, error)
}

// OpenLeadCounter reports a handler's current open-lead load.
type OpenLeadCounter interface {
	CountOpenAssigned(ctx context.Context, userID uuid.UUID) (int, error)
}

// Selector picks the handler responsible for a lead.
type Selector struct {
	directory HandlerDirectory
	counter   OpenLeadCounter
}

func NewSelector(directory HandlerDirectory, counter OpenLeadCounter) *Selector {
	return &Selector{directory: directory, counter: counter}
}

// Select returns the chosen handler or nil when no handler is eligible.
// An explicit assignee always wins and skips eligibility entirely; the
// caller is trusted to have authorized the choice. Otherwise the least
// loaded of {business owner} + {administrators} is picked, ties broken by
// enumeration order (owner first, then administrators by creation time).
func (s *Selector) Select(ctx context.Context, business businesses.Business, explicit *uuid.UUID) (*uuid.UUID, error) {
	if explicit != nil {
		return explicit, nil
	}

	admins, err := s.directory.ListAdministrators(ctx)
	if err != nil {
		return nil, err
	}

	eligible := make([]uuid.UUID, 0, len(admins)+1)
	if business.OwnerID != uuid.Nil {
		eligible = append(eligible, business.OwnerID)
	}
	for _, admin := range admins {
		if admin.ID != business.OwnerID {
			eligible = append(eligible, admin.ID)
		}
	}

	if len(eligible) == 0 {
		return nil, nil
	}

	// Per-handler counts are fetched in parallel; writing into an
	// index-ordered slice keeps the tie-break deterministic.
	counts := make([]int, len(eligible))
	g, gctx := errgroup.WithContext(ctx)
	for i, handlerID := range eligible {
		g.Go(func() error {
			count, err := s.counter.CountOpenAssigned(gctx, handlerID)
			if err != nil {
				return err
			}
			counts[i] = count
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best := 0
	for i := 1; i < len(eligible); i++ {
		if counts[i] < counts[best] {
			best = i
		}
	}

	chosen := eligible[best]
	return &chosen, nil
}
