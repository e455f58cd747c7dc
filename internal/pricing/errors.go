package pricing

import "errors"

var (
	// ErrUnknownCategory is returned when a ticket category has no price.
	ErrUnknownCategory = errors.New("unknown ticket category")

	// ErrPromotionNotFound is returned when no promotion carries the code.
	ErrPromotionNotFound = errors.New("promotion not found")

	// ErrPromotionExpired is returned when the promotion exists but the
	// current time is outside its validity window.
	ErrPromotionExpired = errors.New("promotion expired")
)
