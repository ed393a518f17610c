package tests

import (
	"context"
	"testing"
	"time"

	"freight/internal/domain"
	"freight/internal/service"
)

func logEvent(t *testing.T, svc *service.CheckpointService, tripID, eventType string, at time.Time) *service.LogCheckpointResult {
	t.Helper()
	result, err := svc.LogCheckpoint(context.Background(), service.LogCheckpointRequest{
		TripID:    tripID,
		EventType: eventType,
		At:        at,
	})
	if err != nil {
		t.Fatalf("unexpected error logging %s: %v", eventType, err)
	}
	return result
}

func TestProjection_TripStart_UpcomingCommitment(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	svc := newCheckpointService(tripRepo, NewMockTripEventRepository())

	at := time.Date(2025, 6, 4, 6, 0, 0, 0, time.UTC)
	firstStop := at.Add(90 * time.Minute)
	tripRepo.AddTrip(&domain.Trip{
		ID:     "trip-1",
		Status: domain.TripStatusBooked,
		Stops: []domain.Stop{
			{ID: "s1", TripID: "trip-1", Seq: 1, Name: "Shipper", ScheduledAt: timePtr(firstStop)},
			{ID: "s2", TripID: "trip-1", Seq: 2, Name: "Consignee", ScheduledAt: timePtr(at.Add(8 * time.Hour))},
		},
	})

	logEvent(t, svc, "trip-1", "TRIP_START", at)

	trip := tripRepo.GetTrip("trip-1")
	if trip.Status != domain.TripStatusInProgress {
		t.Errorf("expected status In Progress, got %q", trip.Status)
	}
	// Base risk 0.12, tightened to 0.22 because the stop is under two hours out.
	if trip.DelayRisk != 0.22 {
		t.Errorf("expected delay risk 0.22, got %v", trip.DelayRisk)
	}
	if trip.NextCommitment == nil || !trip.NextCommitment.Equal(firstStop) {
		t.Errorf("expected next commitment %v, got %v", firstStop, trip.NextCommitment)
	}
	if trip.ETA == nil || !trip.ETA.Equal(firstStop) {
		t.Errorf("expected ETA %v, got %v", firstStop, trip.ETA)
	}
	if trip.StartedAt == nil || !trip.StartedAt.Equal(at) {
		t.Errorf("expected trip start %v, got %v", at, trip.StartedAt)
	}
	if trip.LastCheckIn == nil || !trip.LastCheckIn.Equal(at) {
		t.Errorf("expected last check-in %v, got %v", at, trip.LastCheckIn)
	}
}

func TestProjection_LeftDelivery_CompletesTrip(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	svc := newCheckpointService(tripRepo, NewMockTripEventRepository())

	tripRepo.AddTrip(&domain.Trip{
		ID:             "trip-1",
		Status:         domain.TripStatusInProgress,
		DelayRisk:      0.30,
		NextCommitment: timePtr(time.Date(2025, 6, 4, 18, 0, 0, 0, time.UTC)),
	})

	at := time.Date(2025, 6, 4, 17, 45, 0, 0, time.UTC)
	logEvent(t, svc, "trip-1", "LEFT_DELIVERY", at)

	trip := tripRepo.GetTrip("trip-1")
	if trip.Status != domain.TripStatusCompleted {
		t.Errorf("expected status Completed, got %q", trip.Status)
	}
	if trip.EndedAt == nil || !trip.EndedAt.Equal(at) {
		t.Errorf("expected trip end %v, got %v", at, trip.EndedAt)
	}
	if trip.NextCommitment != nil {
		t.Errorf("expected cleared next commitment, got %v", trip.NextCommitment)
	}
	if trip.DelayRisk != 0.05 {
		t.Errorf("expected delay risk 0.05, got %v", trip.DelayRisk)
	}
}

func TestProjection_TripFinished_ZeroRiskAndEventTimeETA(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	svc := newCheckpointService(tripRepo, NewMockTripEventRepository())

	tripRepo.AddTrip(&domain.Trip{
		ID:        "trip-1",
		Status:    domain.TripStatusInProgress,
		DelayRisk: 0.4,
	})

	at := time.Date(2025, 6, 4, 20, 0, 0, 0, time.UTC)
	logEvent(t, svc, "trip-1", "TRIP_FINISHED", at)

	trip := tripRepo.GetTrip("trip-1")
	if trip.Status != domain.TripStatusCompleted {
		t.Errorf("expected status Completed, got %q", trip.Status)
	}
	if trip.DelayRisk != 0 {
		t.Errorf("expected delay risk 0, got %v", trip.DelayRisk)
	}
	if trip.ETA == nil || !trip.ETA.Equal(at) {
		t.Errorf("expected ETA pinned to event time %v, got %v", at, trip.ETA)
	}
	if trip.EndedAt == nil || !trip.EndedAt.Equal(at) {
		t.Errorf("expected trip end %v, got %v", at, trip.EndedAt)
	}
}

func TestProjection_BorderCrossing_RiskCappedAt035(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	svc := newCheckpointService(tripRepo, NewMockTripEventRepository())

	// No scheduled stops, so only the transition's own cap applies.
	tripRepo.AddTrip(&domain.Trip{
		ID:        "trip-1",
		Status:    domain.TripStatusInProgress,
		DelayRisk: 0.33,
	})

	logEvent(t, svc, "trip-1", "CROSSED_BORDER", time.Date(2025, 6, 4, 11, 0, 0, 0, time.UTC))

	trip := tripRepo.GetTrip("trip-1")
	if trip.DelayRisk != 0.35 {
		t.Errorf("expected delay risk capped at 0.35, got %v", trip.DelayRisk)
	}
}

func TestProjection_ImminentStop_FloorsRisk(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	svc := newCheckpointService(tripRepo, NewMockTripEventRepository())

	at := time.Date(2025, 6, 4, 11, 0, 0, 0, time.UTC)
	tripRepo.AddTrip(&domain.Trip{
		ID:        "trip-1",
		Status:    domain.TripStatusInProgress,
		DelayRisk: 0.05,
		Stops: []domain.Stop{
			{ID: "s1", TripID: "trip-1", Seq: 1, Name: "Consignee", ScheduledAt: timePtr(at.Add(10 * time.Minute))},
		},
	})

	logEvent(t, svc, "trip-1", "LEFT_PICKUP", at)

	trip := tripRepo.GetTrip("trip-1")
	if trip.DelayRisk != 0.35 {
		t.Errorf("expected risk floored to 0.35 with stop under an hour out, got %v", trip.DelayRisk)
	}
	if trip.NextCommitment == nil || !trip.NextCommitment.Equal(at.Add(10*time.Minute)) {
		t.Errorf("expected next commitment at the upcoming stop, got %v", trip.NextCommitment)
	}
}

func TestProjection_DistantStop_CapsRisk(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	svc := newCheckpointService(tripRepo, NewMockTripEventRepository())

	at := time.Date(2025, 6, 4, 8, 0, 0, 0, time.UTC)
	tripRepo.AddTrip(&domain.Trip{
		ID:        "trip-1",
		Status:    domain.TripStatusInProgress,
		DelayRisk: 0.50,
		Stops: []domain.Stop{
			{ID: "s1", TripID: "trip-1", Seq: 1, Name: "Consignee", ScheduledAt: timePtr(at.Add(5 * time.Hour))},
		},
	})

	logEvent(t, svc, "trip-1", "LEFT_PICKUP", at)

	trip := tripRepo.GetTrip("trip-1")
	if trip.DelayRisk != 0.15 {
		t.Errorf("expected risk capped at 0.15 with stop far out, got %v", trip.DelayRisk)
	}
}

func TestProjection_RiskStaysInUnitInterval(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	svc := newCheckpointService(tripRepo, NewMockTripEventRepository())

	tripRepo.AddTrip(&domain.Trip{ID: "trip-1", Status: domain.TripStatusBooked})

	at := time.Date(2025, 6, 4, 6, 0, 0, 0, time.UTC)
	sequence := []string{
		"TRIP_START", "ARRIVED_PICKUP", "LEFT_PICKUP", "CROSSED_BORDER",
		"CROSSED_BORDER", "DROP_HOOK", "ARRIVED_DELIVERY", "LEFT_DELIVERY",
	}
	for i, eventType := range sequence {
		logEvent(t, svc, "trip-1", eventType, at.Add(time.Duration(i)*time.Hour))

		trip := tripRepo.GetTrip("trip-1")
		if trip.DelayRisk < 0 || trip.DelayRisk > 1 {
			t.Fatalf("delay risk escaped [0,1] after %s: %v", eventType, trip.DelayRisk)
		}
	}

	trip := tripRepo.GetTrip("trip-1")
	if trip.Status != domain.TripStatusCompleted {
		t.Errorf("expected terminal status Completed, got %q", trip.Status)
	}
}

func TestProjection_StartedAtNotOverwritten(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	svc := newCheckpointService(tripRepo, NewMockTripEventRepository())

	original := time.Date(2025, 6, 4, 6, 0, 0, 0, time.UTC)
	tripRepo.AddTrip(&domain.Trip{
		ID:        "trip-1",
		Status:    domain.TripStatusInProgress,
		StartedAt: timePtr(original),
	})

	logEvent(t, svc, "trip-1", "TRIP_START", original.Add(2*time.Hour))

	trip := tripRepo.GetTrip("trip-1")
	if trip.StartedAt == nil || !trip.StartedAt.Equal(original) {
		t.Errorf("expected original trip start %v preserved, got %v", original, trip.StartedAt)
	}
}

func TestProjectStatus_MissingTrip_NoOp(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	svc := newCheckpointService(tripRepo, NewMockTripEventRepository())

	err := svc.ProjectStatus(context.Background(), "no-such-trip", domain.EventLeftPickup, time.Now())
	if err != nil {
		t.Errorf("projection for a missing trip must be a no-op, got %v", err)
	}
}
