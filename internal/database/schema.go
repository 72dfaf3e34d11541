package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is kept to column types both MySQL and SQLite accept so the same
// statements bootstrap production and the repository tests.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            CHAR(36)     NOT NULL PRIMARY KEY,
		username      VARCHAR(64)  NOT NULL UNIQUE,
		email         VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		is_admin      BOOLEAN      NOT NULL DEFAULT FALSE,
		created_at    DATETIME     NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id              CHAR(36)       NOT NULL PRIMARY KEY,
		name            VARCHAR(255)   NOT NULL,
		price           DECIMAL(12,2)  NOT NULL,
		category        VARCHAR(128)   NOT NULL,
		subcategory     VARCHAR(128)   NOT NULL DEFAULT '',
		image_url       VARCHAR(1024)  NOT NULL,
		image_public_id VARCHAR(512)   NULL,
		image_handle    VARCHAR(1024)  NULL,
		created_at      DATETIME       NOT NULL,
		updated_at      DATETIME       NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS revoked_tokens (
		token_hash CHAR(64) NOT NULL PRIMARY KEY,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL
	)`,
}

// EnsureSchema creates the users, products and revoked_tokens tables when
// they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
