package model

import "strings"

// TicketCategory is a priced ticket class such as ADULT or CHILD.
type TicketCategory string

const (
	CategoryAdult  TicketCategory = "ADULT"
	CategoryChild  TicketCategory = "CHILD"
	CategorySenior TicketCategory = "SENIOR"
)

// ParseCategory normalises user input ("adult", " Child ") to a category.
func ParseCategory(s string) TicketCategory {
	return TicketCategory(strings.ToUpper(strings.TrimSpace(s)))
}

// CategoryPrice is a row of the ticket_categories reference table.
type CategoryPrice struct {
	Category   TicketCategory `json:"category" db:"code"`
	PriceCents int64          `json:"price_cents" db:"price_cents"`
}
