package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-engine/internal/booking"
	"github.com/iliyamo/cinema-booking-engine/internal/hold"
)

// CustomerHandler serves the hold and booking endpoints for an
// authenticated customer.  Seats are held and booked under the caller's
// holder token.
type CustomerHandler struct {
	Holds     *hold.Manager
	Committer *booking.Committer
	Bookings  booking.Reader
}

// NewCustomerHandler panics if a dependency is nil.
func NewCustomerHandler(holds *hold.Manager, committer *booking.Committer, bookings booking.Reader) *CustomerHandler {
	if holds == nil || committer == nil || bookings == nil {
		panic("nil dependency passed to NewCustomerHandler")
	}
	return &CustomerHandler{Holds: holds, Committer: committer, Bookings: bookings}
}

type holdRequest struct {
	SeatIDs    []uint64 `json:"seat_ids"`
	TTLSeconds int64    `json:"ttl_seconds"`
}

// HoldSeats handles POST /v1/shows/:id/hold.  Each seat is held on its
// own: the response partitions the request into held, conflicting and
// unknown seats.  201 when at least one seat was held, 200 otherwise.
func (h *CustomerHandler) HoldSeats(c echo.Context) error {
	who, ok := currentCaller(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := showID(c)
	if !ok {
		return badRequest(c, "invalid show id")
	}
	var body holdRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	seatIDs := positive(body.SeatIDs)
	if len(seatIDs) == 0 {
		return badRequest(c, "seat_ids is required")
	}
	if body.TTLSeconds < 0 {
		return badRequest(c, "ttl_seconds must not be negative")
	}

	res, err := h.Holds.HoldSeats(c.Request().Context(), id, seatIDs, who.Holder, time.Duration(body.TTLSeconds)*time.Second)
	switch {
	case errors.Is(err, hold.ErrInvalidTTL):
		return badRequest(c, err.Error())
	case err != nil:
		return internalError(c, err, "failed to hold seats")
	}
	status := http.StatusOK
	if len(res.Held) > 0 {
		status = http.StatusCreated
	}
	return c.JSON(status, res)
}

type releaseRequest struct {
	SeatIDs []uint64 `json:"seat_ids"`
}

// ReleaseHolds handles DELETE /v1/shows/:id/hold.  An empty seat list
// releases every seat the caller holds on the show.  Seats the caller
// does not hold are ignored.
func (h *CustomerHandler) ReleaseHolds(c echo.Context) error {
	who, ok := currentCaller(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := showID(c)
	if !ok {
		return badRequest(c, "invalid show id")
	}
	var body releaseRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	ctx := c.Request().Context()
	var (
		n   int
		err error
	)
	if seatIDs := positive(body.SeatIDs); len(seatIDs) > 0 {
		n, err = h.Holds.ReleaseSeats(ctx, id, seatIDs, who.Holder)
	} else {
		n, err = h.Holds.ReleaseHold(ctx, id, who.Holder)
	}
	if err != nil {
		return internalError(c, err, "failed to release seats")
	}
	return c.JSON(http.StatusOK, echo.Map{"released": n})
}

// GetHold handles GET /v1/shows/:id/hold and returns the caller's live
// hold on the show.
func (h *CustomerHandler) GetHold(c echo.Context) error {
	who, ok := currentCaller(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := showID(c)
	if !ok {
		return badRequest(c, "invalid show id")
	}
	cur, err := h.Holds.Current(c.Request().Context(), id, who.Holder)
	switch {
	case errors.Is(err, hold.ErrNoActiveHold):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no active hold"})
	case err != nil:
		return internalError(c, err, "failed to load hold")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"show_id":    cur.ShowID,
		"seat_ids":   cur.SeatIDs,
		"created_at": cur.CreatedAt,
		"expires_at": cur.ExpiresAt,
	})
}
