package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"tripdesk/internal/domain"
	"tripdesk/internal/repository"
)

const tripColumns = `id, trip_date, status, is_settled,
	commercial_price, trip_price, paid_amount, collection, commission, quantity,
	customer_name, supplier_name, destination, notes,
	created_by, version, created_at, updated_at`

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	db *sql.DB
	q  Querier
}

// NewTripRepository creates a new PostgreSQL trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{db: db, q: db}
}

// Create persists a new trip.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (` + tripColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	now := time.Now().UTC()
	if trip.CreatedAt.IsZero() {
		trip.CreatedAt = now
	}
	trip.UpdatedAt = trip.CreatedAt
	trip.Version = 1

	_, err := r.q.ExecContext(ctx, query,
		trip.ID,
		trip.Date,
		trip.Status,
		trip.IsSettled,
		trip.CommercialPrice,
		trip.TripPrice,
		trip.PaidAmount,
		trip.Collection,
		trip.Commission,
		trip.Quantity,
		trip.CustomerName,
		trip.SupplierName,
		trip.Destination,
		trip.Notes,
		trip.CreatedBy,
		trip.Version,
		trip.CreatedAt,
		trip.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trip %s: %w", trip.ID, err)
	}
	return nil
}

// GetByID retrieves a trip by ID.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return trip, nil
}

// GetMany retrieves trips matching the filter.
func (r *TripRepository) GetMany(ctx context.Context, filter repository.TripFilter) ([]*domain.Trip, error) {
	query, args := buildListQuery(filter)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}

	return trips, rows.Err()
}

// Save updates an existing trip guarded by its version.
func (r *TripRepository) Save(ctx context.Context, trip *domain.Trip) error {
	updatedAt := time.Now().UTC()
	if err := saveTrip(ctx, r.q, trip, updatedAt); err != nil {
		return err
	}
	trip.Version++
	trip.UpdatedAt = updatedAt
	return nil
}

// SaveMany updates trips in one transaction. Any version conflict rolls the
// whole batch back; versions are bumped only after commit.
func (r *TripRepository) SaveMany(ctx context.Context, trips []*domain.Trip) error {
	if len(trips) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch save: %w", err)
	}
	defer tx.Rollback()

	updatedAt := time.Now().UTC()
	for _, trip := range trips {
		if err := saveTrip(ctx, tx, trip, updatedAt); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch save: %w", err)
	}

	for _, trip := range trips {
		trip.Version++
		trip.UpdatedAt = updatedAt
	}
	return nil
}

func saveTrip(ctx context.Context, q Querier, trip *domain.Trip, updatedAt time.Time) error {
	query := `
		UPDATE trips
		SET trip_date = $1, status = $2, is_settled = $3,
			commercial_price = $4, trip_price = $5, paid_amount = $6, collection = $7, commission = $8, quantity = $9,
			customer_name = $10, supplier_name = $11, destination = $12, notes = $13,
			version = version + 1, updated_at = $14
		WHERE id = $15 AND version = $16
	`

	result, err := q.ExecContext(ctx, query,
		trip.Date,
		trip.Status,
		trip.IsSettled,
		trip.CommercialPrice,
		trip.TripPrice,
		trip.PaidAmount,
		trip.Collection,
		trip.Commission,
		trip.Quantity,
		trip.CustomerName,
		trip.SupplierName,
		trip.Destination,
		trip.Notes,
		updatedAt,
		trip.ID,
		trip.Version,
	)
	if err != nil {
		return fmt.Errorf("update trip %s: %w", trip.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		var exists bool
		if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM trips WHERE id = $1)`, trip.ID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("trip %s at version %d: %w", trip.ID, trip.Version, repository.ErrVersionConflict)
		}
		return fmt.Errorf("trip %s: %w", trip.ID, repository.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row rowScanner) (*domain.Trip, error) {
	var trip domain.Trip
	err := row.Scan(
		&trip.ID,
		&trip.Date,
		&trip.Status,
		&trip.IsSettled,
		&trip.CommercialPrice,
		&trip.TripPrice,
		&trip.PaidAmount,
		&trip.Collection,
		&trip.Commission,
		&trip.Quantity,
		&trip.CustomerName,
		&trip.SupplierName,
		&trip.Destination,
		&trip.Notes,
		&trip.CreatedBy,
		&trip.Version,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

var sortColumns = map[repository.TripSort]string{
	repository.SortByDate:       "trip_date",
	repository.SortByCreatedAt:  "created_at",
	repository.SortByTripPrice:  "trip_price",
	repository.SortByCollection: "collection",
}

// buildListQuery renders a filter into SQL with positional arguments.
func buildListQuery(f repository.TripFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		where = append(where, "status = ANY("+arg(pq.Array(statuses))+")")
	}
	if f.ExcludeStatus != "" {
		where = append(where, "status <> "+arg(string(f.ExcludeStatus)))
	}
	if !f.DateFrom.IsZero() {
		where = append(where, "trip_date >= "+arg(f.DateFrom))
	}
	if !f.DateTo.IsZero() {
		where = append(where, "trip_date <= "+arg(f.DateTo))
	}
	if f.CreatedBy != "" {
		where = append(where, "created_by = "+arg(f.CreatedBy))
	}
	if f.IsSettled != nil {
		where = append(where, "is_settled = "+arg(*f.IsSettled))
	}
	if len(f.IDs) > 0 {
		where = append(where, "id = ANY("+arg(pq.Array(f.IDs))+")")
	}

	var b strings.Builder
	b.WriteString("SELECT " + tripColumns + " FROM trips")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}

	column, ok := sortColumns[f.SortBy]
	if !ok {
		column = "trip_date"
	}
	direction := "ASC"
	if f.SortDesc {
		direction = "DESC"
	}
	// id breaks ties so pagination is stable.
	fmt.Fprintf(&b, " ORDER BY %s %s, id ASC", column, direction)

	if f.Limit > 0 {
		b.WriteString(" LIMIT " + arg(f.Limit))
	}
	if f.Offset > 0 {
		b.WriteString(" OFFSET " + arg(f.Offset))
	}

	return b.String(), args
}

// Ensure TripRepository implements repository.TripRepository.
var _ repository.TripRepository = (*TripRepository)(nil)
