package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"freight/internal/domain"
	"freight/internal/observability"
	redisstore "freight/internal/redis"
	"freight/internal/repository"
)

// CostSnapshot captures a trip's costing fields at one point in time, for the
// before/after audit trail of a totals reconciliation.
type CostSnapshot struct {
	FixedCPM         *float64
	WageCPM          *float64
	RollingCPM       *float64
	AddOnsCPM        *float64
	TotalVariableCPM *float64
	TotalCPM         *float64
	VariableCost     *float64
	FixedCost        *float64
	TotalCost        *float64
	Profit           *float64
	Margin           *float64
}

// RecalculateTotalsResult contains the audit output of a totals pass.
type RecalculateTotalsResult struct {
	Trip            *domain.Trip
	Before          CostSnapshot
	After           CostSnapshot
	AppliedTemplate *domain.RateTemplate
}

// TotalsService reconciles a trip's per-mile rates and headline totals. It is
// the on-demand pass used when a trip's rate assignment changes or its
// initial rates were never set.
type TotalsService struct {
	tripRepo     repository.TripRepository
	templateRepo repository.RateTemplateRepository
	cache        *redisstore.SnapshotCache
	logger       *zap.Logger
}

// NewTotalsService creates a new TotalsService. cache may be nil.
func NewTotalsService(
	tripRepo repository.TripRepository,
	templateRepo repository.RateTemplateRepository,
	cache *redisstore.SnapshotCache,
	logger *zap.Logger,
) *TotalsService {
	return &TotalsService{
		tripRepo:     tripRepo,
		templateRepo: templateRepo,
		cache:        cache,
		logger:       logger,
	}
}

// Recalculate reconciles one trip's rates and totals.
//
// When any of the four per-mile components is unset and the trip links a rate
// template, all four are adopted from the template. Totals are then derived
// from whatever components are present; fields whose inputs are missing stay
// as they were.
func (s *TotalsService) Recalculate(ctx context.Context, tripID string) (*RecalculateTotalsResult, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	before := snapshotCosting(trip)

	var applied *domain.RateTemplate
	missingRate := trip.FixedCPM == nil || trip.WageCPM == nil || trip.AddOnsCPM == nil || trip.RollingCPM == nil

	if missingRate && trip.RateTemplateID != nil {
		tmpl, err := s.templateRepo.GetByID(ctx, *trip.RateTemplateID)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
			// A dangling template link downgrades to "no template".
			s.logger.Warn("linked rate template not found",
				zap.String("trip_id", tripID), zap.String("template_id", *trip.RateTemplateID))
		} else {
			trip.FixedCPM = ptr(round6(tmpl.FixedCPM))
			trip.WageCPM = ptr(round6(tmpl.WageCPM))
			trip.AddOnsCPM = ptr(round6(tmpl.AddOnsCPM))
			trip.RollingCPM = ptr(round6(tmpl.RollingCPM))
			applied = tmpl
		}
	}

	if trip.FixedCPM != nil || trip.WageCPM != nil || trip.AddOnsCPM != nil || trip.RollingCPM != nil {
		totalCPM := valueOr(trip.FixedCPM, 0) + valueOr(trip.WageCPM, 0) +
			valueOr(trip.AddOnsCPM, 0) + valueOr(trip.RollingCPM, 0)
		trip.TotalCPM = ptr(round6(totalCPM))
	} else {
		trip.TotalCPM = nil
	}

	if trip.TotalCPM != nil {
		trip.TotalCost = ptr(round2(trip.Miles * *trip.TotalCPM))
	}

	if trip.Revenue != nil && trip.TotalCost != nil {
		trip.Profit = ptr(round2(*trip.Revenue - *trip.TotalCost))
	}

	if trip.Revenue != nil && *trip.Revenue != 0 && trip.Profit != nil {
		trip.Margin = ptr(round6(100 * safeDiv(*trip.Profit, *trip.Revenue)))
	}

	if err := s.tripRepo.Update(ctx, trip); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateTrip(ctx, tripID); err != nil {
			s.logger.Warn("failed to invalidate trip snapshot", zap.String("trip_id", tripID), zap.Error(err))
		}
	}

	observability.CostRecomputes.WithLabelValues("totals").Inc()

	return &RecalculateTotalsResult{
		Trip:            trip,
		Before:          before,
		After:           snapshotCosting(trip),
		AppliedTemplate: applied,
	}, nil
}

func snapshotCosting(trip *domain.Trip) CostSnapshot {
	return CostSnapshot{
		FixedCPM:         copyFloat(trip.FixedCPM),
		WageCPM:          copyFloat(trip.WageCPM),
		RollingCPM:       copyFloat(trip.RollingCPM),
		AddOnsCPM:        copyFloat(trip.AddOnsCPM),
		TotalVariableCPM: copyFloat(trip.TotalVariableCPM),
		TotalCPM:         copyFloat(trip.TotalCPM),
		VariableCost:     copyFloat(trip.VariableCost),
		FixedCost:        copyFloat(trip.FixedCost),
		TotalCost:        copyFloat(trip.TotalCost),
		Profit:           copyFloat(trip.Profit),
		Margin:           copyFloat(trip.Margin),
	}
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
