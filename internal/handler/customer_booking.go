package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-engine/internal/booking"
	"github.com/iliyamo/cinema-booking-engine/internal/inventory"
	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/pricing"
)

type confirmSeat struct {
	SeatID   uint64 `json:"seat_id"`
	Category string `json:"category"`
}

type confirmRequest struct {
	Seats      []confirmSeat `json:"seats"`
	PaymentRef string        `json:"payment_ref"`
	PromoCode  string        `json:"promo_code"`
}

// ConfirmSeats handles POST /v1/shows/:id/confirm.  It books the listed
// seats, which the caller must hold, and answers 201 with the booking.
func (h *CustomerHandler) ConfirmSeats(c echo.Context) error {
	who, ok := currentCaller(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := showID(c)
	if !ok {
		return badRequest(c, "invalid show id")
	}
	var body confirmRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	req := booking.Request{
		ShowID:     id,
		UserID:     who.UserID,
		Holder:     who.Holder,
		PaymentRef: body.PaymentRef,
		PromoCode:  body.PromoCode,
		Seats:      make([]booking.Selection, 0, len(body.Seats)),
	}
	for _, s := range body.Seats {
		if s.SeatID == 0 {
			return badRequest(c, "seat_id is required")
		}
		req.Seats = append(req.Seats, booking.Selection{SeatID: s.SeatID, Category: model.TicketCategory(s.Category)})
	}

	b, err := h.Committer.Commit(c.Request().Context(), req)
	if err != nil {
		return commitError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// commitError maps a Committer failure to a response.
func commitError(c echo.Context, err error) error {
	var (
		notHeld *booking.SeatNotHeldError
		lost    *booking.SeatNoLongerHeldError
	)
	switch {
	case errors.As(err, &notHeld):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "seat_id": notHeld.SeatID})
	case errors.As(err, &lost):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "seat_id": lost.SeatID})
	case errors.Is(err, pricing.ErrPromotionNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "promotion not found"})
	case errors.Is(err, pricing.ErrPromotionExpired):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "promotion expired"})
	case errors.Is(err, booking.ErrNoSeats),
		errors.Is(err, booking.ErrDuplicateSeat),
		errors.Is(err, booking.ErrPaymentRefRequired),
		errors.Is(err, booking.ErrHolderRequired),
		errors.Is(err, pricing.ErrUnknownCategory):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err, "failed to confirm booking")
	}
}

// GetBooking handles GET /v1/bookings/:id.  A booking that belongs to
// someone else is reported as not found.
func (h *CustomerHandler) GetBooking(c echo.Context) error {
	who, ok := currentCaller(c)
	if !ok {
		return unauthorized(c)
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return badRequest(c, "invalid booking id")
	}
	b, err := h.Bookings.GetBooking(c.Request().Context(), id)
	switch {
	case errors.Is(err, inventory.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case err != nil:
		return internalError(c, err, "failed to load booking")
	}
	if b.UserID != who.UserID {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	}
	return c.JSON(http.StatusOK, b)
}
