package game

import "errors"

var (
	// ErrCapacityExceeded is returned when the registry holds the maximum
	// number of concurrent rooms, or a room holds its maximum player count.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrRoomNotFound is returned for commands against an unknown room code.
	ErrRoomNotFound = errors.New("room not found")

	// ErrInvalidTransition is returned for commands that are illegal in the
	// room's current phase, or issued by a caller without the authority.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrInvalidAnswer is returned for out-of-range, wrong-index or
	// duplicate answer submissions.
	ErrInvalidAnswer = errors.New("invalid answer")
)
