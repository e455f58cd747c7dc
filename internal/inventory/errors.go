package inventory

import "errors"

// Transition outcomes.  These are ordinary results that callers are
// expected to branch on, not faults.
var (
	// ErrConflict is returned by TryHold when the seat is already HELD
	// or BOOKED.
	ErrConflict = errors.New("seat not available")

	// ErrNotHeldByCaller is returned by Release and Commit when the seat
	// is not currently held by the given holder (or the hold has lapsed).
	ErrNotHeldByCaller = errors.New("seat not held by caller")

	// ErrSeatNotFound is returned when the (show, seat) pair was never
	// seeded.
	ErrSeatNotFound = errors.New("seat not found for show")
)
