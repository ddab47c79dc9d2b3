package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Table definitions for the claim engine. The booking table holds one
// row per (round, seat); owner and counter stay NULL until the first
// accepted claim. The config table is a small key/value store whose
// 'round' key is the pointer to the current round.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS booking (
		id      BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		round   VARCHAR(64)  NOT NULL,
		seat    VARCHAR(16)  NOT NULL,
		owner   VARCHAR(128) NULL,
		counter BIGINT       NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_round_seat (round, seat)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS config (
		k VARCHAR(64)  NOT NULL,
		v VARCHAR(255) NOT NULL,
		PRIMARY KEY (k)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates the booking and config tables when they do not
// exist yet. It runs at startup so a fresh database is usable without a
// separate migration step.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
