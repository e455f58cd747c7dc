package booking

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSeats is returned when a commit request selects no seat.
	ErrNoSeats = errors.New("no seats selected")
	// ErrDuplicateSeat is returned when a seat appears twice in a request.
	ErrDuplicateSeat = errors.New("seat selected more than once")
	// ErrPaymentRefRequired is returned when no payment reference is given.
	ErrPaymentRefRequired = errors.New("payment reference required")
	// ErrHolderRequired is returned when the request carries no holder.
	ErrHolderRequired = errors.New("holder required")
	// ErrPersistence matches every *PersistenceError.
	ErrPersistence = errors.New("persistence failure")
)

// SeatNotHeldError reports a seat the holder did not hold when the
// request was validated.  Nothing was written.
type SeatNotHeldError struct {
	SeatID uint64
}

func (e *SeatNotHeldError) Error() string {
	return fmt.Sprintf("seat %d is not held by the caller", e.SeatID)
}

// SeatNoLongerHeldError reports a seat whose hold lapsed or was taken
// between validation and commit.  The whole booking was rolled back.
type SeatNoLongerHeldError struct {
	SeatID uint64
}

func (e *SeatNoLongerHeldError) Error() string {
	return fmt.Sprintf("seat %d is no longer held by the caller", e.SeatID)
}

// PersistenceError wraps a storage failure during commit.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
