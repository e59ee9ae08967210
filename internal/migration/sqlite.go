package migration

import (
	"fmt"

	"gorm.io/gorm"
)

// sqliteSchema mirrors the postgres migrations for local and in-memory databases.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS identity_sessions (
		id TEXT PRIMARY KEY,
		principal_id TEXT,
		email TEXT,
		roles TEXT NOT NULL DEFAULT '',
		expires_at DATETIME NOT NULL,
		signed_out_at DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS billing_customers (
		principal_id TEXT PRIMARY KEY,
		provider_customer_id TEXT NOT NULL UNIQUE,
		email TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS billing_products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		active BOOLEAN NOT NULL DEFAULT 1,
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS billing_prices (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT 1,
		currency TEXT NOT NULL DEFAULT 'usd',
		unit_amount INTEGER,
		nickname TEXT,
		interval TEXT,
		interval_count INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS billing_subscriptions (
		id TEXT PRIMARY KEY,
		principal_id TEXT NOT NULL,
		provider_customer_id TEXT,
		status TEXT NOT NULL,
		price_id TEXT,
		product_id TEXT,
		plan_name TEXT,
		current_period_end DATETIME,
		cancel_at_period_end BOOLEAN NOT NULL DEFAULT 0,
		created DATETIME NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS billing_events (
		id INTEGER PRIMARY KEY,
		provider TEXT NOT NULL,
		provider_event_id TEXT NOT NULL,
		type TEXT NOT NULL,
		outcome TEXT NOT NULL DEFAULT 'received',
		payload TEXT NOT NULL,
		received_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (provider, provider_event_id)
	)`,
	`CREATE TABLE IF NOT EXISTS checkout_sessions (
		id INTEGER PRIMARY KEY,
		principal_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		price_id TEXT,
		status TEXT NOT NULL,
		url TEXT,
		error TEXT,
		provider_session_id TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS watchlist_items (
		principal_id TEXT NOT NULL,
		title_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		poster_path TEXT,
		backdrop_path TEXT,
		media_kind TEXT NOT NULL DEFAULT 'movie',
		overview TEXT,
		added_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (principal_id, title_id)
	)`,
}

// EnsureSQLiteSchema creates every table on a SQLite connection.
func EnsureSQLiteSchema(conn *gorm.DB) error {
	for _, stmt := range sqliteSchema {
		if err := conn.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create sqlite schema: %w", err)
		}
	}
	return nil
}
