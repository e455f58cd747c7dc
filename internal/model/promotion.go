package model

import (
	"errors"
	"fmt"
	"time"
)

// DiscountKind records the unit of a promotion's value.
type DiscountKind string

const (
	// DiscountPercent values are whole percent, 0..100.
	DiscountPercent DiscountKind = "PERCENT"
	// DiscountFlat values are cents subtracted from the subtotal.
	DiscountFlat DiscountKind = "FLAT"
)

// Promotion is a discount code with a validity window [StartsAt, EndsAt].
type Promotion struct {
	ID       uint64       `json:"id" db:"id"`
	Code     string       `json:"code" db:"code"`
	Kind     DiscountKind `json:"kind" db:"kind"`
	Value    int64        `json:"value" db:"value"`
	StartsAt time.Time    `json:"starts_at" db:"starts_at"`
	EndsAt   time.Time    `json:"ends_at" db:"ends_at"`
}

// NoPromotion is the zero-discount record used when no code is supplied.
var NoPromotion = Promotion{Kind: DiscountPercent, Value: 0}

// IsNone reports whether p is the no-promotion record.
func (p Promotion) IsNone() bool { return p.ID == 0 && p.Code == "" }

// ActiveAt reports whether t lies inside the validity window, both ends
// inclusive.
func (p Promotion) ActiveAt(t time.Time) bool {
	return !t.Before(p.StartsAt) && !t.After(p.EndsAt)
}

var errInvalidPromotion = errors.New("invalid promotion")

// Validate checks that the value matches its recorded unit.
func (p Promotion) Validate() error {
	switch p.Kind {
	case DiscountPercent:
		if p.Value < 0 || p.Value > 100 {
			return fmt.Errorf("%w %q: percent value %d out of range 0..100", errInvalidPromotion, p.Code, p.Value)
		}
	case DiscountFlat:
		if p.Value < 0 {
			return fmt.Errorf("%w %q: negative flat value %d", errInvalidPromotion, p.Code, p.Value)
		}
	default:
		return fmt.Errorf("%w %q: unknown discount kind %q", errInvalidPromotion, p.Code, p.Kind)
	}
	if p.EndsAt.Before(p.StartsAt) {
		return fmt.Errorf("%w %q: window ends before it starts", errInvalidPromotion, p.Code)
	}
	return nil
}
