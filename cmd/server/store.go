package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/cinema-booking-engine/internal/booking"
	"github.com/iliyamo/cinema-booking-engine/internal/clock"
	"github.com/iliyamo/cinema-booking-engine/internal/config"
	"github.com/iliyamo/cinema-booking-engine/internal/database"
	"github.com/iliyamo/cinema-booking-engine/internal/inventory"
	"github.com/iliyamo/cinema-booking-engine/internal/pricing"
	"github.com/iliyamo/cinema-booking-engine/internal/repository"
)

// store is the persistence the engine runs on.
type store struct {
	Inventory  inventory.SeatInventory
	UnitOfWork inventory.UnitOfWork
	Bookings   booking.Reader
	Promotions pricing.PromotionStore
	Prices     pricing.PriceTable
	db         *sqlx.DB
}

func (s *store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func openStore(ctx context.Context, cfg *config.Config, clk clock.Clock) (*store, error) {
	if cfg.Store == config.StoreMemory {
		mem := inventory.NewMemory(clk)
		promos, err := pricing.NewMemoryPromotions()
		if err != nil {
			return nil, err
		}
		return &store{
			Inventory:  mem,
			UnitOfWork: mem,
			Bookings:   mem,
			Promotions: promos,
			Prices:     pricing.DefaultPrices,
		}, nil
	}

	db, err := database.Open(ctx, cfg.DB.User, cfg.DB.Pass, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	rows, err := repository.NewCategoryRepo(db).List(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load ticket categories: %w", err)
	}
	prices, err := pricing.NewPriceTable(rows)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &store{
		Inventory:  repository.NewShowSeatRepo(db, clk),
		UnitOfWork: repository.NewUnitOfWork(db, clk),
		Bookings:   repository.NewBookingRepo(db),
		Promotions: repository.NewPromotionRepo(db),
		Prices:     prices,
		db:         db,
	}, nil
}
