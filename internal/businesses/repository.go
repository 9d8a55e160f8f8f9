// Package businesses provides the business-listing bounded context: the
// directory entries that leads target.
package businesses

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("business not found")

// Status values for businesses. Only ACTIVE businesses accept new leads.
const (
	StatusActive    = "ACTIVE"
	StatusInactive  = "INACTIVE"
	StatusPending   = "PENDING"
	StatusSuspended = "SUSPENDED"
)

type Business struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	OwnerID   uuid.UUID `json:"ownerId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsActive reports whether the business currently accepts leads.
func (b Business) IsActive() bool {
	return b.Status == StatusActive
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Business, error) {
	var business Business
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, slug, owner_id, status, created_at, updated_at
		FROM businesses
		WHERE id = $1
	`, id).Scan(&business.ID, &business.Name, &business.Slug, &business.OwnerID,
		&business.Status, &business.CreatedAt, &business.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Business{}, ErrNotFound
		}
		return Business{}, err
	}
	return business, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (Business, error) {
	var business Business
	err := r.pool.QueryRow(ctx, `
		UPDATE businesses
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, name, slug, owner_id, status, created_at, updated_at
	`, id, status).Scan(&business.ID, &business.Name, &business.Slug, &business.OwnerID,
		&business.Status, &business.CreatedAt, &business.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Business{}, ErrNotFound
		}
		return Business{}, err
	}
	return business, nil
}
