package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const tripPositionKey = "trips:positions"

// TripPosition represents a trip's last reported position.
type TripPosition struct {
	TripID string
	Lat    float64
	Lon    float64
}

// PositionStore keeps the last checkpoint coordinates per trip in a Redis geo
// index, so dispatch tooling can ask which trips are near a point.
type PositionStore struct {
	client *redis.Client
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(client *redis.Client) *PositionStore {
	return &PositionStore{client: client}
}

// UpdatePosition stores a trip's position using GEOADD.
func (s *PositionStore) UpdatePosition(ctx context.Context, tripID string, lat, lon float64) error {
	return s.client.GeoAdd(ctx, tripPositionKey, &redis.GeoLocation{
		Name:      tripID,
		Longitude: lon,
		Latitude:  lat,
	}).Err()
}

// FindNearbyTrips returns trips within the given radius (in kilometers).
func (s *PositionStore) FindNearbyTrips(ctx context.Context, lat, lon, radiusKm float64) ([]TripPosition, error) {
	results, err := s.client.GeoRadius(ctx, tripPositionKey, lon, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	positions := make([]TripPosition, 0, len(results))
	for _, r := range results {
		positions = append(positions, TripPosition{
			TripID: r.Name,
			Lat:    r.Latitude,
			Lon:    r.Longitude,
		})
	}

	return positions, nil
}

// RemovePosition drops a trip from the geo index once it has finished.
func (s *PositionStore) RemovePosition(ctx context.Context, tripID string) error {
	return s.client.ZRem(ctx, tripPositionKey, tripID).Err()
}
