package redis

import (
	"context"
	"time"
)

// PositionStoreInterface defines the interface for trip position operations.
type PositionStoreInterface interface {
	UpdatePosition(ctx context.Context, tripID string, lat, lon float64) error
	FindNearbyTrips(ctx context.Context, lat, lon, radiusKm float64) ([]TripPosition, error)
	RemovePosition(ctx context.Context, tripID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireTripLock(ctx context.Context, tripID string, ttl time.Duration) (bool, error)
	ReleaseTripLock(ctx context.Context, tripID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ PositionStoreInterface = (*PositionStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
)
