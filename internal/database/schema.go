package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is applied one statement at a time; the DSN does not enable
// multiStatements.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS show_seats (
		show_id         BIGINT UNSIGNED NOT NULL,
		seat_id         BIGINT UNSIGNED NOT NULL,
		status          ENUM('AVAILABLE','HELD','BOOKED') NOT NULL DEFAULT 'AVAILABLE',
		holder          VARCHAR(128) NULL,
		held_at         DATETIME(6) NULL,
		hold_expires_at DATETIME(6) NULL,
		version         INT UNSIGNED NOT NULL DEFAULT 0,
		PRIMARY KEY (show_id, seat_id),
		KEY idx_show_seats_status (status, hold_expires_at)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS ticket_categories (
		code        VARCHAR(32) NOT NULL PRIMARY KEY,
		price_cents BIGINT NOT NULL
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS promotions (
		id        BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		code      VARCHAR(64) NOT NULL,
		kind      ENUM('PERCENT','FLAT') NOT NULL,
		value     BIGINT NOT NULL,
		starts_at DATETIME(6) NOT NULL,
		ends_at   DATETIME(6) NOT NULL,
		UNIQUE KEY uq_promotions_code (code)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id             CHAR(36) NOT NULL PRIMARY KEY,
		user_id        BIGINT UNSIGNED NOT NULL,
		show_id        BIGINT UNSIGNED NOT NULL,
		holder         VARCHAR(128) NOT NULL,
		payment_ref    VARCHAR(128) NOT NULL,
		promotion_id   BIGINT UNSIGNED NULL,
		promo_code     VARCHAR(64) NOT NULL DEFAULT '',
		subtotal_cents BIGINT NOT NULL,
		discount_cents BIGINT NOT NULL,
		total_cents    BIGINT NOT NULL,
		created_at     DATETIME(6) NOT NULL,
		KEY idx_bookings_show (show_id)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id          CHAR(36) NOT NULL PRIMARY KEY,
		booking_id  CHAR(36) NOT NULL,
		show_id     BIGINT UNSIGNED NOT NULL,
		seat_id     BIGINT UNSIGNED NOT NULL,
		category    VARCHAR(32) NOT NULL,
		price_cents BIGINT NOT NULL,
		UNIQUE KEY uq_tickets_show_seat (show_id, seat_id),
		CONSTRAINT fk_tickets_booking FOREIGN KEY (booking_id) REFERENCES bookings (id)
	) ENGINE=InnoDB`,
	`INSERT IGNORE INTO ticket_categories (code, price_cents) VALUES
		('ADULT', 1500), ('CHILD', 1000), ('SENIOR', 1200)`,
}

// Migrate creates the tables the booking engine needs if they are missing
// and seeds the default ticket categories.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	return nil
}
