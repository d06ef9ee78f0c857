package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"ridebook/internal/domain"
	"ridebook/internal/service"
)

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client redis.Cmdable
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client redis.Cmdable) *CacheStore {
	return &CacheStore{client: client}
}

// Ensure CacheStore implements the service caches.
var (
	_ service.CategoryCache = (*CacheStore)(nil)
	_ service.SummaryCache  = (*CacheStore)(nil)
)

// Cache TTL constants
const (
	CategoryCacheTTL    = 24 * time.Hour   // Categories are reference data
	RideSummaryCacheTTL = 30 * time.Second // Invalidated on complete and cancel
)

// Key prefixes
const (
	categoryCachePrefix    = "cache:category:"
	rideSummaryCachePrefix = "cache:ride:"
)

func rideSummaryKey(rideID int64) string {
	return rideSummaryCachePrefix + strconv.FormatInt(rideID, 10)
}

// GetCategoryID retrieves a category ID from cache.
func (s *CacheStore) GetCategoryID(ctx context.Context, name string) (int64, bool, error) {
	id, err := s.client.Get(ctx, categoryCachePrefix+name).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil // Cache miss
		}
		return 0, false, err
	}
	return id, true, nil
}

// SetCategoryID stores a category ID in cache.
func (s *CacheStore) SetCategoryID(ctx context.Context, name string, id int64) error {
	return s.client.Set(ctx, categoryCachePrefix+name, id, CategoryCacheTTL).Err()
}

// GetRideSummary retrieves a ride summary from cache.
func (s *CacheStore) GetRideSummary(ctx context.Context, rideID int64) (*domain.RideSummary, error) {
	data, err := s.client.Get(ctx, rideSummaryKey(rideID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var summary domain.RideSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// SetRideSummary stores a ride summary in cache.
func (s *CacheStore) SetRideSummary(ctx context.Context, summary *domain.RideSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, rideSummaryKey(summary.RideID), data, RideSummaryCacheTTL).Err()
}

// InvalidateRideSummary removes a ride summary from cache.
func (s *CacheStore) InvalidateRideSummary(ctx context.Context, rideID int64) error {
	return s.client.Del(ctx, rideSummaryKey(rideID)).Err()
}
