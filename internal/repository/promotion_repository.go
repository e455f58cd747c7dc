package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/pricing"
)

// PromotionRepo is the MySQL PromotionStore.
type PromotionRepo struct {
	db *sqlx.DB
}

// NewPromotionRepo returns a PromotionRepo bound to db.
func NewPromotionRepo(db *sqlx.DB) *PromotionRepo { return &PromotionRepo{db: db} }

// FindByCode loads the promotion with the given code.  Codes are stored
// upper case.
func (r *PromotionRepo) FindByCode(ctx context.Context, code string) (model.Promotion, error) {
	var p model.Promotion
	err := r.db.GetContext(ctx, &p,
		`SELECT id, code, kind, value, starts_at, ends_at FROM promotions WHERE code = ?`,
		pricing.NormalizeCode(code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Promotion{}, fmt.Errorf("%w: %s", pricing.ErrPromotionNotFound, code)
		}
		return model.Promotion{}, fmt.Errorf("find promotion: %w", err)
	}
	p.StartsAt = p.StartsAt.UTC()
	p.EndsAt = p.EndsAt.UTC()
	return p, nil
}
