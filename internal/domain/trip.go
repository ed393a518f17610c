package domain

import "time"

// TripStatus represents the operational status of a trip.
type TripStatus string

const (
	TripStatusBooked     TripStatus = "Booked"
	TripStatusInProgress TripStatus = "In Progress"
	TripStatusCompleted  TripStatus = "Completed"
)

// Trip represents one shipment movement and its running costing state.
//
// Costing fields are pointers because a trip is booked with no costing at all;
// they stay nil until the first costing pass writes them. Monetary amounts are
// rounded to 2 decimal places and per-mile rates to 6 before persistence.
type Trip struct {
	ID     string
	Driver string
	Unit   string

	// Optional foreign keys to externally managed records.
	DriverID *string
	UnitID   *string
	OrderID  *string

	Miles           float64
	Revenue         *float64
	ExpectedRevenue *float64

	// Fixed per-mile rate components.
	FixedCPM   *float64
	WageCPM    *float64
	RollingCPM *float64
	AddOnsCPM  *float64

	// Derived totals.
	TotalVariableCPM *float64
	TotalCPM         *float64
	VariableCost     *float64
	FixedCost        *float64
	TotalCost        *float64
	Profit           *float64
	Margin           *float64

	// Event counters, maintained incrementally on ingestion and
	// authoritatively recounted by the add-on aggregator.
	BorderCrossings int
	Pickups         int
	Deliveries      int
	DropHooks       int

	Status         TripStatus
	LastCheckIn    *time.Time
	ETA            *time.Time
	NextCommitment *time.Time
	StartedAt      *time.Time
	EndedAt        *time.Time
	DelayRisk      float64

	RateTemplateID *string

	// Stops ordered by sequence number. Populated by GetWithStops.
	Stops []Stop
}

// Stop is an ordered waypoint of a trip.
type Stop struct {
	ID          string
	TripID      string
	Seq         int
	Name        string
	ScheduledAt *time.Time
}
