package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-engine/internal/hold"
	"github.com/iliyamo/cinema-booking-engine/internal/inventory"
	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// OwnerHandler serves the administrative seat endpoints.
type OwnerHandler struct {
	Inventory inventory.SeatInventory
	Holds     *hold.Manager
}

// NewOwnerHandler panics if a dependency is nil.
func NewOwnerHandler(inv inventory.SeatInventory, holds *hold.Manager) *OwnerHandler {
	if inv == nil || holds == nil {
		panic("nil dependency passed to NewOwnerHandler")
	}
	return &OwnerHandler{Inventory: inv, Holds: holds}
}

// seedRequest lists the hall's seats either as catalog records or as
// bare IDs.  Both may be given.
type seedRequest struct {
	Seats   []model.Seat `json:"seats"`
	SeatIDs []uint64     `json:"seat_ids"`
}

// SeedShowSeats handles POST /v1/owner/shows/:id/seats.  It creates an
// AVAILABLE show seat for each seat of the hall layout; seats the show
// already has are left untouched.
func (h *OwnerHandler) SeedShowSeats(c echo.Context) error {
	id, ok := showID(c)
	if !ok {
		return badRequest(c, "invalid show id")
	}
	var body seedRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	seatIDs := positive(append(model.SeatIDs(body.Seats), body.SeatIDs...))
	if len(seatIDs) == 0 {
		return badRequest(c, "seats or seat_ids is required")
	}
	if err := h.Inventory.Seed(c.Request().Context(), id, seatIDs); err != nil {
		return internalError(c, err, "failed to seed seats")
	}
	return c.JSON(http.StatusCreated, echo.Map{"show_id": id, "seats": len(seatIDs)})
}

// ReleaseShowHolds handles DELETE /v1/owner/shows/:id/holds.  Every HELD
// seat of the show goes back to AVAILABLE, whoever holds it.
func (h *OwnerHandler) ReleaseShowHolds(c echo.Context) error {
	id, ok := showID(c)
	if !ok {
		return badRequest(c, "invalid show id")
	}
	n, err := h.Holds.ReleaseAllForShow(c.Request().Context(), id)
	if err != nil {
		return internalError(c, err, "failed to release holds")
	}
	return c.JSON(http.StatusOK, echo.Map{"released": n})
}
