package model

// Seat describes a physical seat in an auditorium.  Seats are
// identified by their hall, row label and seat number and never change
// once created; the catalog service owns them and this engine only
// references them by ID.
//
// Fields:
//  ID         – primary key identifier.
//  HallID     – hall to which this seat belongs.
//  RowLabel   – letter or string designating the row.
//  SeatNumber – number of the seat within the row.
type Seat struct {
	ID         uint64 `json:"id"`          // seats.id
	HallID     uint64 `json:"hall_id"`     // seats.hall_id
	RowLabel   string `json:"row_label"`   // seats.row_label
	SeatNumber uint32 `json:"seat_number"` // seats.seat_number
}

// SeatIDs returns the IDs of seats, in order.
func SeatIDs(seats []Seat) []uint64 {
	ids := make([]uint64, len(seats))
	for i, s := range seats {
		ids[i] = s.ID
	}
	return ids
}
