package tests

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"freight/internal/domain"
	"freight/internal/repository"
	"freight/internal/service"
)

func newCheckpointService(tripRepo *MockTripRepository, eventRepo *MockTripEventRepository) *service.CheckpointService {
	return service.NewCheckpointService(nil, tripRepo, eventRepo, nil, nil, nil, nil, nil, zap.NewNop())
}

func floatPtr(v float64) *float64 { return &v }

func timePtr(t time.Time) *time.Time { return &t }

// ──────────────────────────────────────────────
// 1. DEDUP GATE
// ──────────────────────────────────────────────

func TestCheckpoint_SameSecondDuplicate_AppliedOnce(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	eventRepo := NewMockTripEventRepository()
	svc := newCheckpointService(tripRepo, eventRepo)

	tripRepo.AddTrip(&domain.Trip{
		ID:              "trip-1",
		Status:          domain.TripStatusInProgress,
		Miles:           500,
		ExpectedRevenue: floatPtr(2000),
	})

	at := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	ctx := context.Background()

	first, err := svc.LogCheckpoint(ctx, service.LogCheckpointRequest{
		TripID:    "trip-1",
		EventType: "ARRIVED_PICKUP",
		At:        at,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Duplicate {
		t.Error("first submission should not be a duplicate")
	}

	second, err := svc.LogCheckpoint(ctx, service.LogCheckpointRequest{
		TripID:    "trip-1",
		EventType: "ARRIVED_PICKUP",
		At:        at.Add(700 * time.Millisecond), // same truncated second
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.Duplicate {
		t.Error("second submission should be an idempotent replay")
	}

	if got := eventRepo.CountEvents("trip-1"); got != 1 {
		t.Errorf("expected 1 stored event, got %d", got)
	}
	if second.Event.ID != first.Event.ID {
		t.Error("replay should return the originally stored event")
	}

	// One +30 delta, not two.
	trip := tripRepo.GetTrip("trip-1")
	if trip.TotalCost == nil || *trip.TotalCost != 30 {
		t.Errorf("expected total cost 30, got %v", trip.TotalCost)
	}
	if trip.Pickups != 1 {
		t.Errorf("expected 1 pickup, got %d", trip.Pickups)
	}
	if second.Trip.TotalCost == nil || *second.Trip.TotalCost != 30 {
		t.Errorf("replay snapshot should match stored costing, got %v", second.Trip.TotalCost)
	}
}

func TestCheckpoint_TimestampTruncatedToSecond(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	eventRepo := NewMockTripEventRepository()
	svc := newCheckpointService(tripRepo, eventRepo)

	tripRepo.AddTrip(&domain.Trip{ID: "trip-1", Status: domain.TripStatusInProgress})

	at := time.Date(2025, 6, 1, 10, 30, 15, 999999999, time.UTC)
	result, err := svc.LogCheckpoint(context.Background(), service.LogCheckpointRequest{
		TripID:    "trip-1",
		EventType: "LEFT_PICKUP",
		At:        at,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2025, 6, 1, 10, 30, 15, 0, time.UTC)
	if !result.Event.RecordedAt.Equal(want) {
		t.Errorf("expected recorded-at %v, got %v", want, result.Event.RecordedAt)
	}
}

func TestCheckpoint_InvalidEventType_Rejected(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	eventRepo := NewMockTripEventRepository()
	svc := newCheckpointService(tripRepo, eventRepo)

	tripRepo.AddTrip(&domain.Trip{ID: "trip-1", Status: domain.TripStatusBooked})

	_, err := svc.LogCheckpoint(context.Background(), service.LogCheckpointRequest{
		TripID:    "trip-1",
		EventType: "TELEPORTED",
	})
	if !errors.Is(err, service.ErrInvalidEventType) {
		t.Errorf("expected ErrInvalidEventType, got %v", err)
	}

	if eventRepo.CountEvents("trip-1") != 0 {
		t.Error("rejected submission must not store an event")
	}
}

func TestCheckpoint_UnknownTrip_NotFound(t *testing.T) {
	t.Parallel()

	svc := newCheckpointService(NewMockTripRepository(), NewMockTripEventRepository())

	_, err := svc.LogCheckpoint(context.Background(), service.LogCheckpointRequest{
		TripID:    "no-such-trip",
		EventType: "TRIP_START",
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// ──────────────────────────────────────────────
// 2. AUXILIARY FIELD SANITIZING
// ──────────────────────────────────────────────

func TestCheckpoint_BadAuxiliaryFields_TreatedAbsent(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	eventRepo := NewMockTripEventRepository()
	svc := newCheckpointService(tripRepo, eventRepo)

	tripRepo.AddTrip(&domain.Trip{ID: "trip-1", Status: domain.TripStatusInProgress})

	result, err := svc.LogCheckpoint(context.Background(), service.LogCheckpointRequest{
		TripID:        "trip-1",
		EventType:     "CROSSED_BORDER",
		OdometerMiles: floatPtr(-12),
		Lat:           floatPtr(math.NaN()),
		Lon:           floatPtr(-99.5),
		At:            time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("bad auxiliary fields must not fail the submission: %v", err)
	}

	if result.Event.OdometerMiles != nil {
		t.Error("negative odometer should be dropped")
	}
	if result.Event.Lat != nil || result.Event.Lon != nil {
		t.Error("a non-finite coordinate should drop the pair")
	}

	// The event itself still lands.
	if eventRepo.CountEvents("trip-1") != 1 {
		t.Error("submission with bad auxiliary fields should still store the event")
	}
}

// ──────────────────────────────────────────────
// 3. COUNTERS
// ──────────────────────────────────────────────

func TestCheckpoint_BorderCrossings_CountedPerDistinctSecond(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	eventRepo := NewMockTripEventRepository()
	svc := newCheckpointService(tripRepo, eventRepo)

	tripRepo.AddTrip(&domain.Trip{ID: "trip-1", Status: domain.TripStatusInProgress, Miles: 400})

	base := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	const n = 5
	for i := 0; i < n; i++ {
		_, err := svc.LogCheckpoint(context.Background(), service.LogCheckpointRequest{
			TripID:    "trip-1",
			EventType: "CROSSED_BORDER",
			At:        base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	trip := tripRepo.GetTrip("trip-1")
	if trip.BorderCrossings != n {
		t.Errorf("expected %d border crossings, got %d", n, trip.BorderCrossings)
	}
	if trip.TotalCost == nil || *trip.TotalCost != float64(n*15) {
		t.Errorf("expected total cost %d, got %v", n*15, trip.TotalCost)
	}
	if eventRepo.CountEvents("trip-1") != n {
		t.Errorf("expected %d events, got %d", n, eventRepo.CountEvents("trip-1"))
	}
}

func TestCheckpoint_ProfitFallsBackToRevenue(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	eventRepo := NewMockTripEventRepository()
	svc := newCheckpointService(tripRepo, eventRepo)

	// No expected revenue; booked revenue stands in for profit.
	tripRepo.AddTrip(&domain.Trip{
		ID:      "trip-1",
		Status:  domain.TripStatusInProgress,
		Revenue: floatPtr(1000),
	})

	_, err := svc.LogCheckpoint(context.Background(), service.LogCheckpointRequest{
		TripID:    "trip-1",
		EventType: "DROP_HOOK",
		At:        time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	trip := tripRepo.GetTrip("trip-1")
	if trip.Profit == nil || *trip.Profit != 985 {
		t.Errorf("expected profit 985, got %v", trip.Profit)
	}
	// No expected revenue means margin defaults to 0.
	if trip.Margin == nil || *trip.Margin != 0 {
		t.Errorf("expected margin 0, got %v", trip.Margin)
	}
	if trip.DropHooks != 1 {
		t.Errorf("expected 1 drop-hook, got %d", trip.DropHooks)
	}
}
