package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"freight/internal/domain"
	"freight/internal/repository"
)

const eventColumns = `
	id, trip_id, event_type, stop_id, stop_label, notes,
	odometer_miles, lat, lon, recorded_at
`

// TripEventRepository is a PostgreSQL implementation of
// repository.TripEventRepository.
//
// The trip_events table carries a UNIQUE constraint on
// (trip_id, event_type, recorded_at). That constraint, not the service-level
// dedup check, is what guarantees at most one stored event per key when two
// submissions race through the check-then-insert window.
type TripEventRepository struct {
	q Querier
}

// NewTripEventRepository creates a new PostgreSQL trip event repository.
func NewTripEventRepository(db *sql.DB) *TripEventRepository {
	return &TripEventRepository{q: db}
}

// NewTripEventRepositoryWithTx creates a trip event repository using a transaction.
func NewTripEventRepositoryWithTx(tx *sql.Tx) *TripEventRepository {
	return &TripEventRepository{q: tx}
}

// CreateIfAbsent persists the event unless its dedup key is already taken.
func (r *TripEventRepository) CreateIfAbsent(ctx context.Context, event *domain.TripEvent) (bool, *domain.TripEvent, error) {
	query := `
		INSERT INTO trip_events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (trip_id, event_type, recorded_at) DO NOTHING
	`

	result, err := r.q.ExecContext(ctx, query,
		event.ID,
		event.TripID,
		string(event.Type),
		nullString(event.StopID),
		nullString(event.StopLabel),
		nullString(event.Notes),
		nullFloat(event.OdometerMiles),
		nullFloat(event.Lat),
		nullFloat(event.Lon),
		event.RecordedAt,
	)
	if err != nil {
		return false, nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, nil, err
	}

	if rowsAffected == 0 {
		// Lost the race: another submission owns this key. Hand back the
		// stored event so the caller can replay it.
		stored, err := r.FindByKey(ctx, event.TripID, event.Type, event.RecordedAt)
		if err != nil {
			return false, nil, err
		}
		return false, stored, nil
	}

	return true, event, nil
}

// FindByKey looks up the event for a dedup key. Returns (nil, nil) when absent.
func (r *TripEventRepository) FindByKey(ctx context.Context, tripID string, eventType domain.EventType, recordedAt time.Time) (*domain.TripEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM trip_events
		WHERE trip_id = $1 AND event_type = $2 AND recorded_at = $3
	`

	event, err := scanEventRow(r.q.QueryRowContext(ctx, query, tripID, string(eventType), recordedAt))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return event, nil
}

// ListByTrip returns all events for a trip, oldest first.
func (r *TripEventRepository) ListByTrip(ctx context.Context, tripID string) ([]*domain.TripEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM trip_events WHERE trip_id = $1 ORDER BY recorded_at ASC
	`

	rows, err := r.q.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.TripEvent
	for rows.Next() {
		event, err := scanEventRow(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// CountByType returns per-type event counts for a trip.
func (r *TripEventRepository) CountByType(ctx context.Context, tripID string) (map[domain.EventType]int, error) {
	query := `
		SELECT event_type, COUNT(*)
		FROM trip_events WHERE trip_id = $1 GROUP BY event_type
	`

	rows, err := r.q.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.EventType]int)
	for rows.Next() {
		var eventType string
		var count int
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, err
		}
		counts[domain.EventType(eventType)] = count
	}

	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEventRow(row rowScanner) (*domain.TripEvent, error) {
	var event domain.TripEvent
	var eventType string
	var stopID, stopLabel, notes sql.NullString
	var odometerMiles, lat, lon sql.NullFloat64

	err := row.Scan(
		&event.ID,
		&event.TripID,
		&eventType,
		&stopID,
		&stopLabel,
		&notes,
		&odometerMiles,
		&lat,
		&lon,
		&event.RecordedAt,
	)
	if err != nil {
		return nil, err
	}

	event.Type = domain.EventType(eventType)
	event.StopID = stringPtr(stopID)
	event.StopLabel = stringPtr(stopLabel)
	event.Notes = stringPtr(notes)
	event.OdometerMiles = floatPtr(odometerMiles)
	event.Lat = floatPtr(lat)
	event.Lon = floatPtr(lon)

	return &event, nil
}

// Ensure TripEventRepository implements repository.TripEventRepository.
var _ repository.TripEventRepository = (*TripEventRepository)(nil)
