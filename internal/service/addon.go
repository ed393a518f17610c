package service

import (
	"context"

	"go.uber.org/zap"

	"freight/internal/domain"
	"freight/internal/observability"
	redisstore "freight/internal/redis"
	"freight/internal/repository"
)

// rateCategoryGlobal scopes the surcharge settings read by the aggregator.
const rateCategoryGlobal = "GLOBAL"

// surchargeKey names the rate setting for one event category. The legacy key
// is consulted when the primary is not configured; older deployments seeded
// the table under the legacy names.
type surchargeKey struct {
	primary string
	legacy  string
}

var surchargeKeys = map[domain.EventType]surchargeKey{
	domain.EventCrossedBorder:   {primary: "BORDER_CROSSING_RATE", legacy: "CROSS_BORDER_RATE"},
	domain.EventArrivedPickup:   {primary: "PICKUP_RATE", legacy: "EXTRA_PICKUP_RATE"},
	domain.EventArrivedDelivery: {primary: "DELIVERY_RATE", legacy: "EXTRA_DELIVERY_RATE"},
	domain.EventDropHook:        {primary: "DROP_HOOK_RATE", legacy: "DROPHOOK_RATE"},
}

// AddOnService recomputes the variable per-mile cost components from the
// full event history and the global surcharge rates.
type AddOnService struct {
	tripRepo  repository.TripRepository
	eventRepo repository.TripEventRepository
	rateRepo  repository.RateSettingRepository
	cache     *redisstore.SnapshotCache
	logger    *zap.Logger
}

// NewAddOnService creates a new AddOnService. cache may be nil.
func NewAddOnService(
	tripRepo repository.TripRepository,
	eventRepo repository.TripEventRepository,
	rateRepo repository.RateSettingRepository,
	cache *redisstore.SnapshotCache,
	logger *zap.Logger,
) *AddOnService {
	return &AddOnService{
		tripRepo:  tripRepo,
		eventRepo: eventRepo,
		rateRepo:  rateRepo,
		cache:     cache,
		logger:    logger,
	}
}

// Recalculate runs the authoritative costing pass for one trip. It is a full,
// idempotent recompute: event counters are recounted from the log rather than
// trusted from the trip row, so repeated calls converge on the same state and
// heal any drift left by the incremental fast path.
func (s *AddOnService) Recalculate(ctx context.Context, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	counts, err := s.eventRepo.CountByType(ctx, tripID)
	if err != nil {
		return nil, err
	}

	addOnDollars := 0.0
	for eventType, key := range surchargeKeys {
		count := counts[eventType]
		if count == 0 {
			continue
		}

		rate, err := s.lookupRate(ctx, key)
		if err != nil {
			return nil, err
		}
		addOnDollars += float64(count) * rate
	}

	addOnCPM := 0.0
	if trip.Miles > 0 {
		addOnCPM = safeDiv(addOnDollars, trip.Miles)
	}

	totalVariableCPM := valueOr(trip.WageCPM, 0) + valueOr(trip.RollingCPM, 0) + addOnCPM
	variableCost := totalVariableCPM * trip.Miles

	// The fixed-side contribution is derived from the fixed rate when one is
	// set; the stored fixed cost only stands in when no rate exists.
	fixedCost := valueOr(trip.FixedCost, 0)
	if trip.FixedCPM != nil {
		fixedCost = *trip.FixedCPM * trip.Miles
	}

	totalCost := variableCost + fixedCost

	expectedRevenue := valueOr(trip.ExpectedRevenue, 0)
	profit := expectedRevenue - totalCost

	margin := 0.0
	if expectedRevenue > 0 {
		margin = safeDiv(profit, expectedRevenue)
	}

	totalCPM := valueOr(trip.FixedCPM, 0) + totalVariableCPM

	trip.AddOnsCPM = ptr(round6(addOnCPM))
	trip.TotalVariableCPM = ptr(round6(totalVariableCPM))
	trip.TotalCPM = ptr(round6(totalCPM))
	trip.VariableCost = ptr(round2(variableCost))
	trip.FixedCost = ptr(round2(fixedCost))
	trip.TotalCost = ptr(round2(totalCost))
	trip.Profit = ptr(round2(profit))
	trip.Margin = ptr(round6(margin))

	trip.BorderCrossings = counts[domain.EventCrossedBorder]
	trip.Pickups = counts[domain.EventArrivedPickup]
	trip.Deliveries = counts[domain.EventArrivedDelivery]
	trip.DropHooks = counts[domain.EventDropHook]

	if err := s.tripRepo.Update(ctx, trip); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateTrip(ctx, tripID); err != nil {
			s.logger.Warn("failed to invalidate trip snapshot", zap.String("trip_id", tripID), zap.Error(err))
		}
	}

	observability.CostRecomputes.WithLabelValues("addons").Inc()

	return trip, nil
}

// lookupRate reads a surcharge rate, primary key first, legacy key as
// fallback, 0 when neither is configured.
func (s *AddOnService) lookupRate(ctx context.Context, key surchargeKey) (float64, error) {
	value, found, err := s.rateRepo.Lookup(ctx, key.primary, rateCategoryGlobal)
	if err != nil {
		return 0, err
	}
	if found {
		return value, nil
	}

	value, found, err = s.rateRepo.Lookup(ctx, key.legacy, rateCategoryGlobal)
	if err != nil {
		return 0, err
	}
	if found {
		return value, nil
	}

	return 0, nil
}
