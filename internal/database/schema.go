package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is written in the subset of DDL understood by both MySQL 8 and
// SQLite so the same statements serve production and tests.  Indexed text
// columns use VARCHAR because MySQL cannot index unbounded TEXT.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id             VARCHAR(36)  NOT NULL PRIMARY KEY,
		name           VARCHAR(255) NOT NULL,
		email          VARCHAR(255) NOT NULL,
		password_hash  VARCHAR(255) NOT NULL,
		phone_number   VARCHAR(64)  NOT NULL DEFAULT '',
		address        VARCHAR(512) NOT NULL DEFAULT '',
		gender         VARCHAR(16)  NOT NULL DEFAULT '',
		role           VARCHAR(16)  NOT NULL DEFAULT 'user',
		otp_hash       VARCHAR(64)  NULL,
		otp_expires_at BIGINT       NULL,
		created_at     DATETIME     NOT NULL,
		updated_at     DATETIME     NOT NULL,
		UNIQUE (email)
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id          VARCHAR(36) NOT NULL PRIMARY KEY,
		user_id     VARCHAR(36) NOT NULL,
		token_hash  VARCHAR(64) NOT NULL,
		expires_at  BIGINT      NOT NULL,
		revoked_at  BIGINT      NULL,
		created_at  DATETIME    NOT NULL,
		UNIQUE (token_hash),
		FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS movies (
		id           VARCHAR(36)  NOT NULL PRIMARY KEY,
		title        VARCHAR(255) NOT NULL,
		title_key    VARCHAR(255) NOT NULL,
		slug         VARCHAR(255) NOT NULL,
		description  TEXT         NOT NULL,
		duration     INT          NOT NULL,
		language     VARCHAR(64)  NOT NULL,
		genre        VARCHAR(64)  NOT NULL,
		release_date VARCHAR(10)  NOT NULL,
		poster       VARCHAR(1024) NOT NULL,
		age_rating   VARCHAR(4)   NOT NULL DEFAULT 'PG',
		owner_id     VARCHAR(36)  NOT NULL,
		created_at   DATETIME     NOT NULL,
		updated_at   DATETIME     NOT NULL,
		UNIQUE (title_key)
	)`,
	`CREATE TABLE IF NOT EXISTS theatres (
		id         VARCHAR(36)  NOT NULL PRIMARY KEY,
		name       VARCHAR(255) NOT NULL,
		address    VARCHAR(512) NOT NULL,
		phone      VARCHAR(64)  NOT NULL,
		email      VARCHAR(255) NOT NULL,
		is_active  BOOLEAN      NOT NULL DEFAULT FALSE,
		owner_id   VARCHAR(36)  NOT NULL,
		created_at DATETIME     NOT NULL,
		updated_at DATETIME     NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS shows (
		id                 VARCHAR(36)  NOT NULL PRIMARY KEY,
		name               VARCHAR(255) NOT NULL,
		movie_id           VARCHAR(36)  NOT NULL,
		theatre_id         VARCHAR(36)  NOT NULL,
		show_date          VARCHAR(10)  NOT NULL,
		show_time          VARCHAR(5)   NOT NULL,
		ticket_price_cents BIGINT       NOT NULL,
		total_seats        INT          NOT NULL,
		booked_seats       TEXT         NOT NULL,
		version            BIGINT       NOT NULL DEFAULT 1,
		created_at         DATETIME     NOT NULL,
		updated_at         DATETIME     NOT NULL,
		FOREIGN KEY (movie_id) REFERENCES movies (id) ON DELETE CASCADE,
		FOREIGN KEY (theatre_id) REFERENCES theatres (id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id             VARCHAR(36)  NOT NULL PRIMARY KEY,
		show_id        VARCHAR(36)  NOT NULL,
		user_id        VARCHAR(36)  NOT NULL,
		seats          TEXT         NOT NULL,
		transaction_id VARCHAR(255) NOT NULL,
		amount_cents   BIGINT       NOT NULL,
		created_at     DATETIME     NOT NULL,
		FOREIGN KEY (show_id) REFERENCES shows (id),
		FOREIGN KEY (user_id) REFERENCES users (id)
	)`,
}

// Migrate creates any missing tables.  It is idempotent and runs at startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
