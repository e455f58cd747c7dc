package model

import "time"

// Hold is a holder's live claim on a set of seats for one show.  It is
// not stored on its own; it is assembled from the HELD show_seat rows
// that carry the holder's token.
type Hold struct {
	Holder    string
	ShowID    uint64
	SeatIDs   []uint64
	CreatedAt time.Time
	ExpiresAt time.Time
}
