package repository

import (
	"context"
	"time"

	"freight/internal/domain"
)

// TripEventRepository defines the persistence operations for the append-only
// checkpoint log.
type TripEventRepository interface {
	// CreateIfAbsent persists the event unless one already exists for the
	// same (trip, type, recorded-at) key. Returns created=false and the
	// stored event when the key is already taken, so a racing duplicate
	// insert degrades into an idempotent replay.
	CreateIfAbsent(ctx context.Context, event *domain.TripEvent) (created bool, stored *domain.TripEvent, err error)

	// FindByKey looks up the event for a dedup key.
	// Returns (nil, nil) when no such event exists.
	FindByKey(ctx context.Context, tripID string, eventType domain.EventType, recordedAt time.Time) (*domain.TripEvent, error)

	// ListByTrip returns all events for a trip, oldest first.
	ListByTrip(ctx context.Context, tripID string) ([]*domain.TripEvent, error)

	// CountByType returns per-type event counts for a trip.
	CountByType(ctx context.Context, tripID string) (map[domain.EventType]int, error)
}
