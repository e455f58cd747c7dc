// Package pricing turns a seat selection into money.  All amounts are in
// integer cents; there is no floating point anywhere in the computation.
package pricing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// PriceTable maps a ticket category to its price in cents.  It is read
// only once built.
type PriceTable map[model.TicketCategory]int64

// DefaultPrices is the table used by the in-memory store.
var DefaultPrices = PriceTable{
	model.CategoryAdult:  1500,
	model.CategoryChild:  1000,
	model.CategorySenior: 1200,
}

// NewPriceTable builds a table from ticket_categories rows.
func NewPriceTable(rows []model.CategoryPrice) (PriceTable, error) {
	t := make(PriceTable, len(rows))
	for _, r := range rows {
		cat := model.ParseCategory(string(r.Category))
		if cat == "" {
			return nil, fmt.Errorf("price table: empty category code")
		}
		if r.PriceCents < 0 {
			return nil, fmt.Errorf("price table: negative price for %s", cat)
		}
		t[cat] = r.PriceCents
	}
	return t, nil
}

// Rows returns the table sorted by category code.
func (t PriceTable) Rows() []model.CategoryPrice {
	out := make([]model.CategoryPrice, 0, len(t))
	for c, p := range t {
		out = append(out, model.CategoryPrice{Category: c, PriceCents: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// PromotionStore looks promotions up by code.  Implementations return
// ErrPromotionNotFound when the code is unknown.
type PromotionStore interface {
	FindByCode(ctx context.Context, code string) (model.Promotion, error)
}

// Quote is the priced result of a selection.
type Quote struct {
	SubtotalCents int64
	DiscountCents int64
	TotalCents    int64
}

// Engine prices tickets and applies promotions.
type Engine struct {
	prices PriceTable
	promos PromotionStore
}

// NewEngine returns an Engine over the given table and promotion store.
func NewEngine(prices PriceTable, promos PromotionStore) *Engine {
	return &Engine{prices: prices, promos: promos}
}

// Prices exposes the engine's price table.
func (e *Engine) Prices() PriceTable { return e.prices }

// Price returns the price of one ticket of the category.
func (e *Engine) Price(cat model.TicketCategory) (int64, error) {
	p, ok := e.prices[cat]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
	}
	return p, nil
}

// PriceTickets sums the price of one ticket per entry.
func (e *Engine) PriceTickets(cats []model.TicketCategory) (int64, error) {
	var sum int64
	for _, c := range cats {
		p, err := e.Price(c)
		if err != nil {
			return 0, err
		}
		sum += p
	}
	return sum, nil
}

// NormalizeCode is the canonical form promotion codes are stored and
// matched in.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ResolvePromotion finds the promotion for code and checks that it is
// active at now.  An empty code resolves to model.NoPromotion.
func (e *Engine) ResolvePromotion(ctx context.Context, code string, now time.Time) (model.Promotion, error) {
	code = NormalizeCode(code)
	if code == "" {
		return model.NoPromotion, nil
	}
	if e.promos == nil {
		return model.Promotion{}, fmt.Errorf("%w: %s", ErrPromotionNotFound, code)
	}
	p, err := e.promos.FindByCode(ctx, code)
	if err != nil {
		return model.Promotion{}, err
	}
	if err := p.Validate(); err != nil {
		return model.Promotion{}, err
	}
	if !p.ActiveAt(now) {
		return model.Promotion{}, fmt.Errorf("%w: %s", ErrPromotionExpired, code)
	}
	return p, nil
}

// ApplyDiscount computes the discount for subtotal.  Percentages are
// rounded half-up to the cent, and the discount never exceeds the
// subtotal.
func (e *Engine) ApplyDiscount(subtotal int64, p model.Promotion) Quote {
	var discount int64
	switch p.Kind {
	case model.DiscountPercent:
		discount = (subtotal*p.Value + 50) / 100
	case model.DiscountFlat:
		discount = p.Value
	}
	if discount < 0 {
		discount = 0
	}
	if discount > subtotal {
		discount = subtotal
	}
	return Quote{SubtotalCents: subtotal, DiscountCents: discount, TotalCents: subtotal - discount}
}
