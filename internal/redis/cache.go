package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"freight/internal/domain"
)

// SnapshotCache caches trip aggregates in Redis so read traffic does not hit
// PostgreSQL between checkpoints. Mutating paths invalidate; reads repopulate.
type SnapshotCache struct {
	client *redis.Client
}

// NewSnapshotCache creates a new SnapshotCache.
func NewSnapshotCache(client *redis.Client) *SnapshotCache {
	return &SnapshotCache{client: client}
}

// TripSnapshotTTL bounds staleness if an invalidation is ever lost.
const TripSnapshotTTL = 60 * time.Second

const tripSnapshotPrefix = "cache:trip:"

// GetTrip retrieves a cached trip. Returns (nil, nil) on cache miss.
func (s *SnapshotCache) GetTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	data, err := s.client.Get(ctx, tripSnapshotPrefix+tripID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var trip domain.Trip
	if err := json.Unmarshal(data, &trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

// SetTrip stores a trip snapshot.
func (s *SnapshotCache) SetTrip(ctx context.Context, trip *domain.Trip) error {
	data, err := json.Marshal(trip)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, tripSnapshotPrefix+trip.ID, data, TripSnapshotTTL).Err()
}

// InvalidateTrip removes a trip snapshot after a mutation.
func (s *SnapshotCache) InvalidateTrip(ctx context.Context, tripID string) error {
	return s.client.Del(ctx, tripSnapshotPrefix+tripID).Err()
}
