package service

import "freight/internal/domain"

// eventCostDelta maps a checkpoint type to the flat cost applied the first
// time that checkpoint is accepted. Types not listed carry no immediate cost.
var eventCostDelta = map[domain.EventType]float64{
	domain.EventArrivedPickup:   30,
	domain.EventArrivedDelivery: 30,
	domain.EventCrossedBorder:   15,
	domain.EventDropHook:        15,
}

// applyCostImpact applies the fast-path costing for one newly accepted event:
// the flat delta is added to the running total, profit and margin are
// recomputed, and the matching counter is incremented exactly once.
//
// Per-mile rates are deliberately not reconsidered here; the add-on
// aggregator's full recompute is the authoritative costing pass and
// supersedes these provisional values whenever it runs.
func applyCostImpact(trip *domain.Trip, eventType domain.EventType) {
	delta := eventCostDelta[eventType]
	if delta == 0 {
		return
	}

	total := valueOr(trip.TotalCost, 0) + delta

	revenueBase := 0.0
	switch {
	case trip.ExpectedRevenue != nil:
		revenueBase = *trip.ExpectedRevenue
	case trip.Revenue != nil:
		revenueBase = *trip.Revenue
	}
	profit := revenueBase - total

	margin := 0.0
	if trip.ExpectedRevenue != nil && *trip.ExpectedRevenue > 0 {
		margin = safeDiv(profit, *trip.ExpectedRevenue)
	}

	trip.TotalCost = ptr(round2(total))
	trip.Profit = ptr(round2(profit))
	trip.Margin = ptr(round6(margin))

	switch eventType {
	case domain.EventCrossedBorder:
		trip.BorderCrossings++
	case domain.EventArrivedPickup:
		trip.Pickups++
	case domain.EventArrivedDelivery:
		trip.Deliveries++
	case domain.EventDropHook:
		trip.DropHooks++
	}
}
