package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// CategoryRepo reads the ticket_categories price table.
type CategoryRepo struct {
	db *sqlx.DB
}

// NewCategoryRepo returns a CategoryRepo bound to db.
func NewCategoryRepo(db *sqlx.DB) *CategoryRepo { return &CategoryRepo{db: db} }

// List returns every category with its price.
func (r *CategoryRepo) List(ctx context.Context) ([]model.CategoryPrice, error) {
	var rows []model.CategoryPrice
	if err := r.db.SelectContext(ctx, &rows, `SELECT code, price_cents FROM ticket_categories ORDER BY code`); err != nil {
		return nil, fmt.Errorf("list ticket categories: %w", err)
	}
	return rows, nil
}
