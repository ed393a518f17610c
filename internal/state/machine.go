package state

import (
	"context"

	"github.com/looplab/fsm"

	"freight/internal/domain"
)

// Trip status transitions.
const (
	EventStart    = "start"
	EventComplete = "complete"
)

// Machine wraps an FSM over a single trip's status. Checkpoints that carry a
// status transition trigger an event; anything the machine cannot apply from
// the current status leaves the status untouched.
type Machine struct {
	fsm *fsm.FSM
}

// NewMachine creates a status machine positioned at the given status.
// An empty status is treated as a freshly booked trip.
func NewMachine(current domain.TripStatus) *Machine {
	if current == "" {
		current = domain.TripStatusBooked
	}

	return &Machine{
		fsm: fsm.NewFSM(
			string(current),
			fsm.Events{
				{Name: EventStart, Src: []string{string(domain.TripStatusBooked)}, Dst: string(domain.TripStatusInProgress)},
				{Name: EventComplete, Src: []string{string(domain.TripStatusBooked), string(domain.TripStatusInProgress)}, Dst: string(domain.TripStatusCompleted)},
			},
			fsm.Callbacks{},
		),
	}
}

// Can reports whether the event is applicable from the current status.
func (m *Machine) Can(event string) bool {
	return m.fsm.Can(event)
}

// Trigger applies an event.
func (m *Machine) Trigger(event string) error {
	return m.fsm.Event(context.Background(), event)
}

// Current returns the current status.
func (m *Machine) Current() domain.TripStatus {
	return domain.TripStatus(m.fsm.Current())
}
