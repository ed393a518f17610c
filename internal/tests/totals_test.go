package tests

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"freight/internal/domain"
	"freight/internal/repository"
	"freight/internal/service"
)

func newTotalsService(tripRepo *MockTripRepository, templateRepo *MockRateTemplateRepository) *service.TotalsService {
	return service.NewTotalsService(tripRepo, templateRepo, nil, zap.NewNop())
}

func strPtr(s string) *string { return &s }

func TestTotals_TemplateAdoptedWhenRatesMissing(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	templateRepo := NewMockRateTemplateRepository()
	templateRepo.AddTemplate(&domain.RateTemplate{
		ID:         "tmpl-1",
		Name:       "Standard OTR",
		FixedCPM:   0.45,
		WageCPM:    0.60,
		RollingCPM: 0.08,
		AddOnsCPM:  0.02,
	})

	tripRepo.AddTrip(&domain.Trip{
		ID:             "trip-1",
		Status:         domain.TripStatusBooked,
		Miles:          1000,
		Revenue:        floatPtr(2300),
		RateTemplateID: strPtr("tmpl-1"),
	})

	svc := newTotalsService(tripRepo, templateRepo)

	result, err := svc.Recalculate(context.Background(), "trip-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.AppliedTemplate == nil || result.AppliedTemplate.ID != "tmpl-1" {
		t.Fatal("expected the linked template to be applied")
	}

	trip := result.Trip
	assertFloat(t, "fixed CPM", trip.FixedCPM, 0.45)
	assertFloat(t, "wage CPM", trip.WageCPM, 0.60)
	assertFloat(t, "rolling CPM", trip.RollingCPM, 0.08)
	assertFloat(t, "add-ons CPM", trip.AddOnsCPM, 0.02)
	assertFloat(t, "total CPM", trip.TotalCPM, 1.15)
	assertFloat(t, "total cost", trip.TotalCost, 1150)
	assertFloat(t, "profit", trip.Profit, 1150)
	assertFloat(t, "margin pct", trip.Margin, 50)
}

func TestTotals_ExistingRatesNotOverwritten(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	templateRepo := NewMockRateTemplateRepository()
	templateRepo.AddTemplate(&domain.RateTemplate{
		ID: "tmpl-1", FixedCPM: 0.99, WageCPM: 0.99, RollingCPM: 0.99, AddOnsCPM: 0.99,
	})

	// All four components already set: the template stays untouched.
	tripRepo.AddTrip(&domain.Trip{
		ID:             "trip-1",
		Status:         domain.TripStatusInProgress,
		Miles:          500,
		FixedCPM:       floatPtr(0.40),
		WageCPM:        floatPtr(0.50),
		RollingCPM:     floatPtr(0.05),
		AddOnsCPM:      floatPtr(0.05),
		RateTemplateID: strPtr("tmpl-1"),
	})

	svc := newTotalsService(tripRepo, templateRepo)

	result, err := svc.Recalculate(context.Background(), "trip-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.AppliedTemplate != nil {
		t.Error("template must not be applied when all rates are present")
	}
	assertFloat(t, "fixed CPM", result.Trip.FixedCPM, 0.40)
	assertFloat(t, "total CPM", result.Trip.TotalCPM, 1.0)
	assertFloat(t, "total cost", result.Trip.TotalCost, 500)
}

func TestTotals_DanglingTemplateIgnored(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	templateRepo := NewMockRateTemplateRepository()

	tripRepo.AddTrip(&domain.Trip{
		ID:             "trip-1",
		Status:         domain.TripStatusBooked,
		Miles:          500,
		WageCPM:        floatPtr(0.50),
		RateTemplateID: strPtr("gone"),
	})

	svc := newTotalsService(tripRepo, templateRepo)

	result, err := svc.Recalculate(context.Background(), "trip-1")
	if err != nil {
		t.Fatalf("a dangling template link must not fail the pass: %v", err)
	}
	if result.AppliedTemplate != nil {
		t.Error("expected no applied template")
	}
	// Totals still derive from the one component present.
	assertFloat(t, "total CPM", result.Trip.TotalCPM, 0.50)
	assertFloat(t, "total cost", result.Trip.TotalCost, 250)
}

func TestTotals_AllRatesAbsent_TotalsLeftAlone(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	templateRepo := NewMockRateTemplateRepository()

	tripRepo.AddTrip(&domain.Trip{
		ID:        "trip-1",
		Status:    domain.TripStatusBooked,
		Miles:     500,
		TotalCost: floatPtr(123.45),
	})

	svc := newTotalsService(tripRepo, templateRepo)

	result, err := svc.Recalculate(context.Background(), "trip-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Trip.TotalCPM != nil {
		t.Errorf("expected nil total CPM with no components, got %v", *result.Trip.TotalCPM)
	}
	// No CPM means the stored total cost is not recomputed.
	assertFloat(t, "total cost", result.Trip.TotalCost, 123.45)
}

func TestTotals_BeforeAfterSnapshots(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	templateRepo := NewMockRateTemplateRepository()
	templateRepo.AddTemplate(&domain.RateTemplate{
		ID: "tmpl-1", FixedCPM: 0.45, WageCPM: 0.60, RollingCPM: 0.08, AddOnsCPM: 0.02,
	})

	tripRepo.AddTrip(&domain.Trip{
		ID:             "trip-1",
		Status:         domain.TripStatusBooked,
		Miles:          1000,
		Revenue:        floatPtr(2300),
		TotalCost:      floatPtr(999),
		RateTemplateID: strPtr("tmpl-1"),
	})

	svc := newTotalsService(tripRepo, templateRepo)

	result, err := svc.Recalculate(context.Background(), "trip-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Before.FixedCPM != nil {
		t.Error("before snapshot must reflect the pre-pass state")
	}
	assertFloat(t, "before total cost", result.Before.TotalCost, 999)
	assertFloat(t, "after fixed CPM", result.After.FixedCPM, 0.45)
	assertFloat(t, "after total cost", result.After.TotalCost, 1150)

	// Snapshots are copies, not views of the live trip.
	*result.Trip.TotalCost = 0
	assertFloat(t, "after total cost unchanged", result.After.TotalCost, 1150)
}

func TestTotals_ZeroRevenue_MarginUntouched(t *testing.T) {
	t.Parallel()

	tripRepo := NewMockTripRepository()
	templateRepo := NewMockRateTemplateRepository()

	tripRepo.AddTrip(&domain.Trip{
		ID:      "trip-1",
		Status:  domain.TripStatusBooked,
		Miles:   500,
		WageCPM: floatPtr(0.50),
		Revenue: floatPtr(0),
	})

	svc := newTotalsService(tripRepo, templateRepo)

	result, err := svc.Recalculate(context.Background(), "trip-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Trip.Margin != nil {
		t.Errorf("zero revenue must not produce a margin, got %v", *result.Trip.Margin)
	}
	assertFloat(t, "profit", result.Trip.Profit, -250)
}

func TestTotals_UnknownTrip(t *testing.T) {
	t.Parallel()

	svc := newTotalsService(NewMockTripRepository(), NewMockRateTemplateRepository())

	_, err := svc.Recalculate(context.Background(), "no-such-trip")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
