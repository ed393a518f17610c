package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freight/internal/domain"
	"freight/internal/observability"
	redisstore "freight/internal/redis"
	"freight/internal/repository"
	"freight/internal/repository/postgres"
	"freight/internal/stream"
	"freight/pkg/ws"
)

// tripLockTTL bounds how long a submission can hold the per-trip lock.
const tripLockTTL = 5 * time.Second

// CheckpointService runs the checkpoint ingestion pipeline: dedup gate,
// fast-path cost impact, and operational status projection, in that order,
// within one transaction.
type CheckpointService struct {
	db        *sql.DB
	tripRepo  repository.TripRepository
	eventRepo repository.TripEventRepository
	cache     *redisstore.SnapshotCache
	locks     *redisstore.LockStore
	positions *redisstore.PositionStore
	publisher *stream.Publisher
	hub       *ws.Hub
	logger    *zap.Logger
}

// NewCheckpointService creates a new CheckpointService. db enables
// transactional writes; cache, locks, positions, publisher and hub are
// optional and may be nil.
func NewCheckpointService(
	db *sql.DB,
	tripRepo repository.TripRepository,
	eventRepo repository.TripEventRepository,
	cache *redisstore.SnapshotCache,
	locks *redisstore.LockStore,
	positions *redisstore.PositionStore,
	publisher *stream.Publisher,
	hub *ws.Hub,
	logger *zap.Logger,
) *CheckpointService {
	return &CheckpointService{
		db:        db,
		tripRepo:  tripRepo,
		eventRepo: eventRepo,
		cache:     cache,
		locks:     locks,
		positions: positions,
		publisher: publisher,
		hub:       hub,
		logger:    logger,
	}
}

// LogCheckpointRequest contains the parameters for one checkpoint submission.
type LogCheckpointRequest struct {
	TripID        string
	EventType     string
	StopID        *string
	StopLabel     *string
	OdometerMiles *float64
	Lat           *float64
	Lon           *float64
	Notes         *string

	// At is the submission time; the zero value means now.
	At time.Time
}

// LogCheckpointResult contains the outcome of a checkpoint submission.
type LogCheckpointResult struct {
	Trip  *domain.Trip
	Event *domain.TripEvent

	// Duplicate is true when the submission matched an already stored event
	// and was treated as an idempotent replay.
	Duplicate bool
}

// LogCheckpoint accepts one checkpoint submission.
//
// A submission whose (trip, type, truncated second) key matches a stored
// event returns that event and the current trip snapshot without mutating
// anything. Otherwise the event is persisted, the flat cost delta applied,
// and the operational status projected, all in one transaction.
func (s *CheckpointService) LogCheckpoint(ctx context.Context, req LogCheckpointRequest) (*LogCheckpointResult, error) {
	if req.TripID == "" {
		return nil, ErrInvalidTripID
	}

	eventType, ok := domain.ParseEventType(req.EventType)
	if !ok {
		return nil, ErrInvalidEventType
	}

	trip, err := s.tripRepo.GetWithStops(ctx, req.TripID)
	if err != nil {
		return nil, err
	}

	at := req.At
	if at.IsZero() {
		at = time.Now()
	}
	at = at.Truncate(time.Second)

	event := &domain.TripEvent{
		ID:            uuid.New().String(),
		TripID:        req.TripID,
		Type:          eventType,
		StopID:        req.StopID,
		StopLabel:     req.StopLabel,
		Notes:         req.Notes,
		OdometerMiles: sanitizeOdometer(req.OdometerMiles),
		RecordedAt:    at,
	}
	event.Lat, event.Lon = sanitizeCoordinates(req.Lat, req.Lon)

	// Dedup gate: a stored event for this key means replay.
	existing, err := s.eventRepo.FindByKey(ctx, req.TripID, eventType, at)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		observability.CheckpointsDuplicate.Inc()
		return &LogCheckpointResult{Trip: trip, Event: existing, Duplicate: true}, nil
	}

	// Best-effort serialization of same-trip submissions. The uniqueness
	// constraint on the event key stays authoritative either way.
	if s.locks != nil {
		if acquired, err := s.locks.AcquireTripLock(ctx, req.TripID, tripLockTTL); err == nil && acquired {
			defer func() {
				_ = s.locks.ReleaseTripLock(ctx, req.TripID)
			}()
		}
	}

	tripRepo := s.tripRepo
	eventRepo := s.eventRepo

	var tx *sql.Tx
	if s.db != nil {
		tx, err = s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}

		defer func() {
			if err != nil {
				_ = tx.Rollback()
			}
		}()

		tripRepo = postgres.NewTripRepositoryWithTx(tx)
		eventRepo = postgres.NewTripEventRepositoryWithTx(tx)
	}

	created, stored, err := eventRepo.CreateIfAbsent(ctx, event)
	if err != nil {
		return nil, err
	}

	if !created {
		// A concurrent submission won the insert inside our race window.
		if tx != nil {
			_ = tx.Rollback()
		}
		observability.CheckpointsDuplicate.Inc()
		return &LogCheckpointResult{Trip: trip, Event: stored, Duplicate: true}, nil
	}

	applyCostImpact(trip, eventType)
	projectStatus(trip, eventType, at)

	if err = tripRepo.Update(ctx, trip); err != nil {
		return nil, err
	}

	if tx != nil {
		if err = tx.Commit(); err != nil {
			return nil, err
		}
	}

	observability.CheckpointsAccepted.WithLabelValues(string(eventType)).Inc()
	s.afterCommit(ctx, trip, event)

	return &LogCheckpointResult{Trip: trip, Event: event}, nil
}

// ProjectStatus reapplies the operational projection for a single checkpoint.
// A missing trip is a no-op: projection is advisory and must never fail a
// caller that only wants status refreshed.
func (s *CheckpointService) ProjectStatus(ctx context.Context, tripID string, eventType domain.EventType, at time.Time) error {
	trip, err := s.tripRepo.GetWithStops(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	projectStatus(trip, eventType, at.Truncate(time.Second))

	if err := s.tripRepo.Update(ctx, trip); err != nil {
		return err
	}

	s.afterCommit(ctx, trip, nil)
	return nil
}

// afterCommit runs the best-effort side effects of an accepted checkpoint:
// cache invalidation, position tracking, the Kafka firehose, and the live
// status broadcast. Failures are logged and swallowed.
func (s *CheckpointService) afterCommit(ctx context.Context, trip *domain.Trip, event *domain.TripEvent) {
	if s.cache != nil {
		if err := s.cache.InvalidateTrip(ctx, trip.ID); err != nil {
			s.logger.Warn("failed to invalidate trip snapshot", zap.String("trip_id", trip.ID), zap.Error(err))
		}
	}

	if event == nil {
		return
	}

	if s.positions != nil {
		if event.Type == domain.EventTripFinished {
			if err := s.positions.RemovePosition(ctx, trip.ID); err != nil {
				s.logger.Warn("failed to remove trip position", zap.String("trip_id", trip.ID), zap.Error(err))
			}
		} else if event.Lat != nil && event.Lon != nil {
			if err := s.positions.UpdatePosition(ctx, trip.ID, *event.Lat, *event.Lon); err != nil {
				s.logger.Warn("failed to update trip position", zap.String("trip_id", trip.ID), zap.Error(err))
			}
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishCheckpoint(event); err != nil {
			s.logger.Warn("failed to publish checkpoint", zap.String("trip_id", trip.ID), zap.Error(err))
		}
	}

	if s.hub != nil {
		s.hub.BroadcastStatusUpdate(statusUpdate{
			TripID:     trip.ID,
			Status:     string(trip.Status),
			DelayRisk:  trip.DelayRisk,
			ETA:        trip.ETA,
			EventType:  string(event.Type),
			RecordedAt: event.RecordedAt,
		})
	}
}

// statusUpdate is the payload broadcast to WebSocket subscribers.
type statusUpdate struct {
	TripID     string     `json:"trip_id"`
	Status     string     `json:"status"`
	DelayRisk  float64    `json:"delay_risk"`
	ETA        *time.Time `json:"eta,omitempty"`
	EventType  string     `json:"event_type"`
	RecordedAt time.Time  `json:"recorded_at"`
}

// sanitizeOdometer drops negative or non-finite readings. Auxiliary fields
// never fail a submission; bad values are simply treated as absent.
func sanitizeOdometer(v *float64) *float64 {
	if v == nil || *v < 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}

// sanitizeCoordinates drops the pair when either coordinate is missing or
// non-finite.
func sanitizeCoordinates(lat, lon *float64) (*float64, *float64) {
	finite := func(v *float64) bool {
		return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
	}
	if !finite(lat) || !finite(lon) {
		return nil, nil
	}
	return lat, lon
}
