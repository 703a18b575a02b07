package repository

import (
	"context"
	"time"

	"tripdesk/internal/domain"
)

// TripSort names a sortable trip column.
type TripSort string

const (
	SortByDate       TripSort = "date"
	SortByCreatedAt  TripSort = "created_at"
	SortByTripPrice  TripSort = "trip_price"
	SortByCollection TripSort = "collection"
)

// TripFilter narrows a GetMany query. Zero values mean "no constraint".
type TripFilter struct {
	Statuses      []domain.TripStatus
	ExcludeStatus domain.TripStatus
	DateFrom      time.Time // Inclusive.
	DateTo        time.Time // Inclusive.
	CreatedBy     string
	IsSettled     *bool
	IDs           []string

	SortBy   TripSort
	SortDesc bool
	Limit    int // 0 means no limit.
	Offset   int
}

// TripRepository defines the persistence operations for trips.
type TripRepository interface {
	// Create persists a new trip with version 1.
	Create(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip by ID.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// GetMany retrieves trips matching the filter.
	GetMany(ctx context.Context, filter TripFilter) ([]*domain.Trip, error)

	// Save writes trip if its Version still matches the stored one and
	// bumps Version on success.
	Save(ctx context.Context, trip *domain.Trip) error

	// SaveMany saves trips atomically with the same version check as Save.
	// On error nothing is written.
	SaveMany(ctx context.Context, trips []*domain.Trip) error
}
