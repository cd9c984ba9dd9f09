package database

import (
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open opens a GORM DB from a Postgres DSN. PreferSimpleProtocol disables
// prepared statement caching to avoid 42P05 ("prepared statement already
// exists") behind connection poolers (PgBouncer, Supabase, Render).
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
}

// AutoMigrate runs migrations for all domain models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Portfolio{},
		&domain.Trade{},
		&domain.TradeEvent{},
		&domain.ShareLot{},
		&domain.ShareLotSale{},
	)
}
