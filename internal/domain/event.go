package domain

import "time"

// EventType is one of the closed set of checkpoint types a trip can log.
type EventType string

const (
	EventTripStart       EventType = "TRIP_START"
	EventArrivedPickup   EventType = "ARRIVED_PICKUP"
	EventLeftPickup      EventType = "LEFT_PICKUP"
	EventArrivedDelivery EventType = "ARRIVED_DELIVERY"
	EventLeftDelivery    EventType = "LEFT_DELIVERY"
	EventCrossedBorder   EventType = "CROSSED_BORDER"
	EventDropHook        EventType = "DROP_HOOK"
	EventTripFinished    EventType = "TRIP_FINISHED"
)

// eventTypes is the closed set of valid checkpoint types.
var eventTypes = map[EventType]bool{
	EventTripStart:       true,
	EventArrivedPickup:   true,
	EventLeftPickup:      true,
	EventArrivedDelivery: true,
	EventLeftDelivery:    true,
	EventCrossedBorder:   true,
	EventDropHook:        true,
	EventTripFinished:    true,
}

// ParseEventType validates a raw checkpoint type string.
// Returns false for anything outside the closed set.
func ParseEventType(raw string) (EventType, bool) {
	t := EventType(raw)
	return t, eventTypes[t]
}

// TripEvent is one logged checkpoint in a trip's lifecycle. Events are
// append-only: created once by ingestion, never mutated or deleted.
//
// At most one event exists per (trip, type, RecordedAt) tuple; RecordedAt is
// truncated to the whole second before the event is stored, so resubmissions
// within the same second collapse onto the stored row.
type TripEvent struct {
	ID            string
	TripID        string
	Type          EventType
	StopID        *string
	StopLabel     *string
	Notes         *string
	OdometerMiles *float64
	Lat           *float64
	Lon           *float64
	RecordedAt    time.Time
}
