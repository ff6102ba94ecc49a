package database

import (
	"context"
	"fmt"

	"booking-system/internal/logger"
)

// Migration одна версия схемы.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations схема в порядке применения. Новые версии только добавляются в конец.
var Migrations = []Migration{
	{
		Version:     1,
		Description: "create resources",
		SQL: `
			CREATE TABLE IF NOT EXISTS resources (
				id UUID PRIMARY KEY,
				name TEXT NOT NULL,
				category_id TEXT NOT NULL DEFAULT '',
				location_id TEXT NOT NULL DEFAULT '',
				pricing JSONB NOT NULL,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			)`,
	},
	{
		Version:     2,
		Description: "create promo_codes",
		SQL: `
			CREATE TABLE IF NOT EXISTS promo_codes (
				id UUID PRIMARY KEY,
				code VARCHAR(20) NOT NULL UNIQUE,
				title TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				type VARCHAR(32) NOT NULL,
				scope VARCHAR(32) NOT NULL,
				value DOUBLE PRECISION NOT NULL CHECK (value >= 0),
				status VARCHAR(16) NOT NULL,
				valid_from TIMESTAMPTZ NOT NULL,
				valid_until TIMESTAMPTZ NOT NULL,
				usage_limit INTEGER,
				current_usage INTEGER NOT NULL DEFAULT 0,
				restrictions JSONB NOT NULL DEFAULT '{}',
				stacking_rules JSONB NOT NULL DEFAULT '{}',
				analytics JSONB NOT NULL DEFAULT '{}',
				last_used_at TIMESTAMPTZ,
				paused_at TIMESTAMPTZ,
				pause_reason TEXT NOT NULL DEFAULT '',
				deleted_at TIMESTAMPTZ,
				version BIGINT NOT NULL DEFAULT 1,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL,
				CHECK (valid_from < valid_until),
				CHECK (usage_limit IS NULL OR current_usage <= usage_limit)
			)`,
	},
	{
		Version:     3,
		Description: "create promo_usages",
		SQL: `
			CREATE TABLE IF NOT EXISTS promo_usages (
				id UUID PRIMARY KEY,
				promo_id UUID NOT NULL REFERENCES promo_codes(id),
				user_id TEXT NOT NULL,
				booking_id TEXT NOT NULL DEFAULT '',
				discount_amount BIGINT NOT NULL,
				original_amount BIGINT NOT NULL,
				final_amount BIGINT NOT NULL,
				used_at TIMESTAMPTZ NOT NULL,
				ip_address TEXT NOT NULL DEFAULT '',
				user_agent TEXT NOT NULL DEFAULT '',
				metadata JSONB
			);
			CREATE INDEX IF NOT EXISTS idx_promo_usages_promo_user ON promo_usages (promo_id, user_id);
			CREATE INDEX IF NOT EXISTS idx_promo_usages_promo_used_at ON promo_usages (promo_id, used_at)`,
	},
}

// Migrate применяет недостающие версии схемы, каждую в своей транзакции.
func Migrate(ctx context.Context, db *DB, log *logger.Logger) (int, error) {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}

	applied := 0
	for _, m := range Migrations {
		if m.Version <= current {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return applied, err
		}
		applied++
		log.WithFields(map[string]interface{}{
			"version":     m.Version,
			"description": m.Description,
		}).Info("Migration applied")
	}
	return applied, nil
}

func applyMigration(ctx context.Context, db *DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("failed to apply migration %d: %w", m.Version, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", m.Version); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
	}
	return tx.Commit()
}
