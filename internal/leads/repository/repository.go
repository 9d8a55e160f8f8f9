// Package repository provides data access for leads over pgx. Updates to a
// single lead are conditional on the record's last-updated timestamp so that
// two concurrent writers cannot silently merge into a half-state; the loser
// observes ErrConflict and retries or surfaces it.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"directory_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("lead not found")
	ErrConflict = errors.New("lead was modified concurrently")
)

type Lead struct {
	ID              uuid.UUID
	BusinessID      uuid.UUID
	AssignedTo      *uuid.UUID
	Name            string
	Email           string
	Phone           *string
	Message         *string
	Source          domain.Source
	Status          domain.Status
	Priority        domain.Priority
	CreatedAt       time.Time
	UpdatedAt       time.Time
	AssignedAt      *time.Time
	FirstResponseAt *time.Time
}

const leadColumns = `id, business_id, assigned_to, name, email, phone, message,
		source, status, priority, created_at, updated_at, assigned_at, first_response_at`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.BusinessID, &lead.AssignedTo, &lead.Name, &lead.Email,
		&lead.Phone, &lead.Message, &lead.Source, &lead.Status, &lead.Priority,
		&lead.CreatedAt, &lead.UpdatedAt, &lead.AssignedAt, &lead.FirstResponseAt,
	)
	return lead, err
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type CreateLeadParams struct {
	BusinessID uuid.UUID
	Name       string
	Email      string
	Phone      *string
	Message    *string
	Source     domain.Source
	Priority   domain.Priority
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		INSERT INTO leads (business_id, name, email, phone, message, source, status, priority)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+leadColumns,
		params.BusinessID, params.Name, params.Email, params.Phone, params.Message,
		params.Source, domain.StatusNew, params.Priority,
	))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, ErrNotFound
		}
		return Lead{}, err
	}
	return lead, nil
}

// UpdateRoutingParams carries the outcome of a routing run. The update only
// applies while the row still carries ExpectedUpdatedAt.
type UpdateRoutingParams struct {
	AssignedTo        *uuid.UUID
	Priority          domain.Priority
	ExpectedUpdatedAt time.Time
}

// UpdateRouting persists an assignment and priority decision. assigned_at is
// set exactly when an assignee is set, and cleared when the assignee is
// cleared, keeping the two fields in lockstep.
func (r *Repository) UpdateRouting(ctx context.Context, id uuid.UUID, params UpdateRoutingParams) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads
		SET assigned_to = $3,
			priority = $4,
			assigned_at = CASE
				WHEN $3::uuid IS NULL THEN NULL
				WHEN assigned_at IS NULL THEN now()
				ELSE assigned_at
			END,
			updated_at = clock_timestamp()
		WHERE id = $1 AND updated_at = $2
		RETURNING `+leadColumns,
		id, params.ExpectedUpdatedAt, params.AssignedTo, params.Priority,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, r.classifyMiss(ctx, id)
		}
		return Lead{}, err
	}
	return lead, nil
}

// UpdateStatusParams carries a validated status transition.
type UpdateStatusParams struct {
	Status             domain.Status
	StampFirstResponse bool
	ExpectedUpdatedAt  time.Time
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, params UpdateStatusParams) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads
		SET status = $3,
			first_response_at = CASE WHEN $4 THEN now() ELSE first_response_at END,
			updated_at = clock_timestamp()
		WHERE id = $1 AND updated_at = $2
		RETURNING `+leadColumns,
		id, params.ExpectedUpdatedAt, params.Status, params.StampFirstResponse,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, r.classifyMiss(ctx, id)
		}
		return Lead{}, err
	}
	return lead, nil
}

// classifyMiss distinguishes a stale conditional update from a missing row.
func (r *Repository) classifyMiss(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM leads WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrConflict
	}
	return ErrNotFound
}

// CountCreatedSince returns the number of leads a business generated since
// the given instant (the trailing-volume signal for priority scoring).
func (r *Repository) CountCreatedSince(ctx context.Context, businessID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM leads
		WHERE business_id = $1 AND created_at >= $2
	`, businessID, since).Scan(&count)
	return count, err
}

// CountOpenAssigned returns the handler's open-lead load: assigned leads
// still in a workable status.
func (r *Repository) CountOpenAssigned(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM leads
		WHERE assigned_to = $1 AND status IN ($2, $3, $4)
	`, userID, domain.StatusNew, domain.StatusContacted, domain.StatusQualified).Scan(&count)
	return count, err
}

type ListFilter struct {
	BusinessID *uuid.UUID
	AssignedTo *uuid.UUID
	Status     *domain.Status
	Priority   *domain.Priority
	Page       int
	Limit      int
}

// List returns leads matching the filter ordered by priority, then recency,
// plus the total match count for pagination.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Lead, int, error) {
	where := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)

	addClause := func(column string, value interface{}) {
		args = append(args, value)
		where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if filter.BusinessID != nil {
		addClause("business_id", *filter.BusinessID)
	}
	if filter.AssignedTo != nil {
		addClause("assigned_to", *filter.AssignedTo)
	}
	if filter.Status != nil {
		addClause("status", *filter.Status)
	}
	if filter.Priority != nil {
		addClause("priority", *filter.Priority)
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM leads `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit < 1 {
		limit = 10
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT `+leadColumns+`
		FROM leads
		%s
		ORDER BY CASE priority
			WHEN 'URGENT' THEN 4
			WHEN 'HIGH' THEN 3
			WHEN 'MEDIUM' THEN 2
			ELSE 1
		END DESC, created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereSQL, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, lead)
	}

	return leads, total, rows.Err()
}
