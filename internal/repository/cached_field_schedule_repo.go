package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldbook-id/fieldbook/internal/domain"
)

const (
	scheduleCacheTTL     = 5 * time.Minute
	availabilityCacheTTL = 2 * time.Minute
)

// CachedFieldScheduleRepository wraps MongoFieldScheduleRepository with
// Redis caching. Status writes invalidate both the record and the field's
// availability windows, since matching reads range queries.
type CachedFieldScheduleRepository struct {
	mongo *MongoFieldScheduleRepository
	cache *RedisCacheRepository
}

// NewCachedFieldScheduleRepository creates a new cached schedule repository
func NewCachedFieldScheduleRepository(mongo *MongoFieldScheduleRepository, cache *RedisCacheRepository) *CachedFieldScheduleRepository {
	return &CachedFieldScheduleRepository{mongo: mongo, cache: cache}
}

// GetByID retrieves a schedule record with caching
func (r *CachedFieldScheduleRepository) GetByID(ctx context.Context, id string) (*domain.FieldSchedule, error) {
	key := scheduleDetailKeyPrefix + id

	var rec domain.FieldSchedule
	if err := r.cache.Get(ctx, key, &rec); err == nil {
		return &rec, nil
	}

	result, err := r.mongo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Store in cache (ignore cache errors)
	_ = r.cache.Set(ctx, key, result, scheduleCacheTTL)
	return result, nil
}

// GetByFieldAndRange retrieves availability with caching keyed per window
func (r *CachedFieldScheduleRepository) GetByFieldAndRange(ctx context.Context, fieldID string, from, to time.Time) ([]*domain.FieldSchedule, error) {
	key := fmt.Sprintf("%s%s:%s:%s", fieldAvailabilityPrefix, fieldID,
		from.Format("2006-01-02"), to.Format("2006-01-02"))

	var records []*domain.FieldSchedule
	if err := r.cache.Get(ctx, key, &records); err == nil {
		return records, nil
	}

	records, err := r.mongo.GetByFieldAndRange(ctx, fieldID, from, to)
	if err != nil {
		return nil, err
	}

	_ = r.cache.Set(ctx, key, records, availabilityCacheTTL)
	return records, nil
}

// CreateMany creates records and invalidates the field's availability windows
func (r *CachedFieldScheduleRepository) CreateMany(ctx context.Context, records []*domain.FieldSchedule) error {
	if err := r.mongo.CreateMany(ctx, records); err != nil {
		return err
	}
	if len(records) > 0 {
		_ = r.cache.DeleteByPattern(ctx, fieldAvailabilityPrefix+records[0].FieldID+":*")
	}
	return nil
}

// UpdateStatus updates a record's status and invalidates caches
func (r *CachedFieldScheduleRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	// Fetch first to know the field id for window invalidation
	rec, _ := r.mongo.GetByID(ctx, id)

	if err := r.mongo.UpdateStatus(ctx, id, status); err != nil {
		return err
	}

	_ = r.cache.Delete(ctx, scheduleDetailKeyPrefix+id)
	if rec != nil {
		_ = r.cache.DeleteByPattern(ctx, fieldAvailabilityPrefix+rec.FieldID+":*")
	}
	return nil
}
