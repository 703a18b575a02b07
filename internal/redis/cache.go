package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"tripdesk/internal/domain"
)

// TripCacheTTL bounds staleness for readers; writers invalidate explicitly.
const TripCacheTTL = 60 * time.Second

const tripCachePrefix = "cache:trip:"

// setIfNewerScript stores ARGV[1] unless the cached entry already carries
// version ARGV[2] or later.
var setIfNewerScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current then
	local ok, cached = pcall(cjson.decode, current)
	if ok and type(cached) == "table" then
		local version = tonumber(cached["version"])
		if version ~= nil and version >= tonumber(ARGV[2]) then
			return 0
		end
	end
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
return 1
`)

// CacheStore handles trip caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// cachedTrip is the JSON form of a cached trip.
type cachedTrip struct {
	ID              string          `json:"id"`
	Date            time.Time       `json:"date"`
	Status          string          `json:"status"`
	IsSettled       bool            `json:"is_settled"`
	CommercialPrice decimal.Decimal `json:"commercial_price"`
	TripPrice       decimal.Decimal `json:"trip_price"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	Collection      decimal.Decimal `json:"collection"`
	Commission      decimal.Decimal `json:"commission"`
	Quantity        int             `json:"quantity"`
	CustomerName    string          `json:"customer_name"`
	SupplierName    string          `json:"supplier_name"`
	Destination     string          `json:"destination"`
	Notes           string          `json:"notes"`
	CreatedBy       string          `json:"created_by"`
	Version         int             `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// GetTrip retrieves a trip from cache. A miss returns nil, nil.
func (s *CacheStore) GetTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	data, err := s.client.Get(ctx, tripCachePrefix+tripID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var c cachedTrip
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}

	return &domain.Trip{
		ID:              c.ID,
		Date:            c.Date,
		Status:          domain.TripStatus(c.Status),
		IsSettled:       c.IsSettled,
		CommercialPrice: c.CommercialPrice,
		TripPrice:       c.TripPrice,
		PaidAmount:      c.PaidAmount,
		Collection:      c.Collection,
		Commission:      c.Commission,
		Quantity:        c.Quantity,
		CustomerName:    c.CustomerName,
		SupplierName:    c.SupplierName,
		Destination:     c.Destination,
		Notes:           c.Notes,
		CreatedBy:       c.CreatedBy,
		Version:         c.Version,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}, nil
}

// SetTrip stores a trip in cache. An entry with the same or a newer version
// is kept, so a slow reader cannot overwrite a writer's refresh.
func (s *CacheStore) SetTrip(ctx context.Context, trip *domain.Trip) error {
	data, err := json.Marshal(cachedTrip{
		ID:              trip.ID,
		Date:            trip.Date,
		Status:          string(trip.Status),
		IsSettled:       trip.IsSettled,
		CommercialPrice: trip.CommercialPrice,
		TripPrice:       trip.TripPrice,
		PaidAmount:      trip.PaidAmount,
		Collection:      trip.Collection,
		Commission:      trip.Commission,
		Quantity:        trip.Quantity,
		CustomerName:    trip.CustomerName,
		SupplierName:    trip.SupplierName,
		Destination:     trip.Destination,
		Notes:           trip.Notes,
		CreatedBy:       trip.CreatedBy,
		Version:         trip.Version,
		CreatedAt:       trip.CreatedAt,
		UpdatedAt:       trip.UpdatedAt,
	})
	if err != nil {
		return err
	}
	return setIfNewerScript.Run(ctx, s.client, []string{tripCachePrefix + trip.ID},
		data, trip.Version, TripCacheTTL.Milliseconds()).Err()
}

// InvalidateTrip removes a trip from cache.
func (s *CacheStore) InvalidateTrip(ctx context.Context, tripID string) error {
	return s.client.Del(ctx, tripCachePrefix+tripID).Err()
}
