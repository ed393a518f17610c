package service

import "errors"

var (
	// ErrInvalidTripID is returned when trip ID is empty.
	ErrInvalidTripID = errors.New("invalid trip id")

	// ErrInvalidEventType is returned when a checkpoint type is outside the
	// closed set of known event types.
	ErrInvalidEventType = errors.New("invalid event type")
)
