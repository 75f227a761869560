package model

import "errors"

// Error kinds shared by storage, services and transports. Wrap them with
// fmt.Errorf("%w") to add detail; match them with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrPermissionDenied = errors.New("permission denied")
	// ErrSlotTaken means another booking won the (doctor, instant) pair.
	// Callers regenerate the slot list rather than retry.
	ErrSlotTaken = errors.New("slot already taken")
	// ErrSlotUnavailable means the instant is not offered by the doctor's schedule.
	ErrSlotUnavailable = errors.New("slot not available")
	// ErrRejected carries a business rule raised by the database.
	ErrRejected = errors.New("rejected")
)

// RejectedError keeps the database message for display.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string { return "rejected: " + e.Message }

func (e *RejectedError) Unwrap() error { return ErrRejected }
