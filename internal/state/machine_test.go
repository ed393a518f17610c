package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freight/internal/domain"
)

func TestMachine_StartFromBooked(t *testing.T) {
	t.Parallel()

	m := NewMachine(domain.TripStatusBooked)
	require.True(t, m.Can(EventStart))
	require.NoError(t, m.Trigger(EventStart))
	assert.Equal(t, domain.TripStatusInProgress, m.Current())
}

func TestMachine_CompleteFromInProgress(t *testing.T) {
	t.Parallel()

	m := NewMachine(domain.TripStatusInProgress)
	require.True(t, m.Can(EventComplete))
	require.NoError(t, m.Trigger(EventComplete))
	assert.Equal(t, domain.TripStatusCompleted, m.Current())
}

func TestMachine_CompleteDirectlyFromBooked(t *testing.T) {
	t.Parallel()

	// A trip can finish without ever reporting a start.
	m := NewMachine(domain.TripStatusBooked)
	require.NoError(t, m.Trigger(EventComplete))
	assert.Equal(t, domain.TripStatusCompleted, m.Current())
}

func TestMachine_CompletedIsTerminal(t *testing.T) {
	t.Parallel()

	m := NewMachine(domain.TripStatusCompleted)
	assert.False(t, m.Can(EventStart))
	assert.False(t, m.Can(EventComplete))
	assert.Error(t, m.Trigger(EventStart))
	assert.Equal(t, domain.TripStatusCompleted, m.Current())
}

func TestMachine_StartNotReplayableInProgress(t *testing.T) {
	t.Parallel()

	m := NewMachine(domain.TripStatusInProgress)
	assert.False(t, m.Can(EventStart))
	assert.Equal(t, domain.TripStatusInProgress, m.Current())
}

func TestMachine_EmptyStatusDefaultsToBooked(t *testing.T) {
	t.Parallel()

	m := NewMachine("")
	assert.Equal(t, domain.TripStatusBooked, m.Current())
}
