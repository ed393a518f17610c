package service

import (
	"math"
	"time"

	"freight/internal/domain"
	"freight/internal/state"
)

// The status projector is a table over checkpoint types: each row names the
// ETA target, how the delay risk is derived from the previous value, and the
// status transition to attempt. A separate clamp then tightens risk against
// the time remaining to the upcoming stop.

type etaTarget int

const (
	etaUpcomingElseLast etaTarget = iota
	etaLastStop
	etaEventTime
	etaUpcomingElseEvent
)

type transition struct {
	eta         etaTarget
	risk        func(prev float64) float64
	statusEvent string
}

var transitions = map[domain.EventType]transition{
	domain.EventTripStart: {
		eta:         etaUpcomingElseLast,
		risk:        func(float64) float64 { return 0.12 },
		statusEvent: state.EventStart,
	},
	domain.EventCrossedBorder: {
		eta:  etaUpcomingElseLast,
		risk: func(prev float64) float64 { return math.Min(0.35, prev+0.05) },
	},
	domain.EventArrivedDelivery: {
		eta:  etaLastStop,
		risk: func(float64) float64 { return 0.08 },
	},
	domain.EventLeftDelivery: {
		eta:         etaLastStop,
		risk:        func(float64) float64 { return 0.05 },
		statusEvent: state.EventComplete,
	},
	domain.EventTripFinished: {
		eta:         etaEventTime,
		risk:        func(float64) float64 { return 0 },
		statusEvent: state.EventComplete,
	},
}

// defaultTransition covers checkpoint types with no dedicated row: risk decays
// slowly toward its 0.05 floor.
var defaultTransition = transition{
	eta:  etaUpcomingElseEvent,
	risk: func(prev float64) float64 { return math.Max(0.05, prev-0.03) },
}

// projectStatus applies one checkpoint to the trip's operational fields:
// status, delay risk, ETA, last check-in, next commitment, and the trip
// start/end markers. The trip's stops must be ordered by sequence.
func projectStatus(trip *domain.Trip, eventType domain.EventType, at time.Time) {
	upcoming := upcomingStopTime(trip.Stops, at)
	last := lastStopTime(trip.Stops)

	tr, ok := transitions[eventType]
	if !ok {
		tr = defaultTransition
	}

	var eta *time.Time
	switch tr.eta {
	case etaUpcomingElseLast:
		eta = upcoming
		if eta == nil {
			eta = last
		}
	case etaLastStop:
		eta = last
	case etaEventTime:
		eta = timeAt(at)
	case etaUpcomingElseEvent:
		eta = upcoming
		if eta == nil {
			eta = timeAt(at)
		}
	}

	risk := tr.risk(trip.DelayRisk)
	trip.DelayRisk = round6(clampRisk(risk, upcoming, at))
	trip.LastCheckIn = timeAt(at)
	trip.ETA = eta

	if tr.statusEvent != "" {
		machine := state.NewMachine(trip.Status)
		if machine.Can(tr.statusEvent) {
			if err := machine.Trigger(tr.statusEvent); err == nil {
				trip.Status = machine.Current()
			}
		}
	}

	switch eventType {
	case domain.EventTripStart:
		if trip.StartedAt == nil {
			trip.StartedAt = timeAt(at)
		}
		if first := firstStopTime(trip.Stops); first != nil {
			trip.NextCommitment = first
		}
	case domain.EventLeftDelivery, domain.EventTripFinished:
		trip.EndedAt = timeAt(at)
		trip.NextCommitment = nil
	default:
		if upcoming != nil {
			trip.NextCommitment = upcoming
		}
	}
}

// clampRisk tightens the base risk against the minutes remaining until the
// upcoming stop: an already-missed or imminent commitment floors the risk,
// while a comfortably distant one caps it. The result is confined to [0,1].
func clampRisk(risk float64, upcoming *time.Time, at time.Time) float64 {
	if upcoming != nil {
		minutes := upcoming.Sub(at).Minutes()
		switch {
		case minutes <= 0:
			risk = math.Max(risk, 0.6)
		case minutes < 60:
			risk = math.Max(risk, 0.35)
		case minutes < 120:
			risk = math.Max(risk, 0.22)
		default:
			risk = math.Min(risk, 0.15)
		}
	}
	return clamp01(risk)
}

// upcomingStopTime returns the scheduled time of the first stop strictly
// after the event time. Stops without a schedule are skipped.
func upcomingStopTime(stops []domain.Stop, at time.Time) *time.Time {
	for _, stop := range stops {
		if stop.ScheduledAt != nil && stop.ScheduledAt.After(at) {
			return timeAt(*stop.ScheduledAt)
		}
	}
	return nil
}

// firstStopTime returns the first stop's scheduled time, if any.
func firstStopTime(stops []domain.Stop) *time.Time {
	for _, stop := range stops {
		if stop.ScheduledAt != nil {
			return timeAt(*stop.ScheduledAt)
		}
	}
	return nil
}

// lastStopTime returns the last scheduled stop time, if any.
func lastStopTime(stops []domain.Stop) *time.Time {
	for i := len(stops) - 1; i >= 0; i-- {
		if stops[i].ScheduledAt != nil {
			return timeAt(*stops[i].ScheduledAt)
		}
	}
	return nil
}

func timeAt(t time.Time) *time.Time {
	return &t
}
