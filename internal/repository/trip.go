package repository

import (
	"context"

	"freight/internal/domain"
)

// TripRepository defines the persistence operations for trips.
type TripRepository interface {
	// Create persists a new trip.
	Create(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip by ID, without its stops.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// GetWithStops retrieves a trip with its stops ordered by sequence.
	GetWithStops(ctx context.Context, id string) (*domain.Trip, error)

	// Update persists the mutable costing and status fields of a trip.
	Update(ctx context.Context, trip *domain.Trip) error
}
