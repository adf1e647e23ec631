package db

import (
	"context"
	"database/sql"
	"fmt"

	"school-admin-core/internal/config"

	_ "github.com/go-sql-driver/mysql"
)

func NewConnection(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DatabaseDSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxConnections)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.Database.ConnectionLifetime)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS progression_events (
		id         CHAR(36)    NOT NULL PRIMARY KEY,
		kind       VARCHAR(32) NOT NULL,
		session_id BIGINT      NOT NULL,
		from_label VARCHAR(9)  NOT NULL,
		from_term  VARCHAR(8)  NOT NULL,
		to_label   VARCHAR(9)  NOT NULL,
		to_term    VARCHAR(8)  NOT NULL,
		created_at DATETIME    NOT NULL,
		INDEX idx_progression_created (created_at)
	)`,
	`CREATE TABLE IF NOT EXISTS batch_runs (
		id           CHAR(36)     NOT NULL PRIMARY KEY,
		subject_code VARCHAR(64)  NOT NULL,
		term         VARCHAR(8)   NOT NULL,
		session      VARCHAR(9)   NOT NULL,
		source       VARCHAR(16)  NOT NULL,
		status       VARCHAR(16)  NOT NULL,
		attempted    INT          NOT NULL DEFAULT 0,
		succeeded    INT          NOT NULL DEFAULT 0,
		failed       INT          NOT NULL DEFAULT 0,
		skipped      INT          NOT NULL DEFAULT 0,
		message      VARCHAR(512) NOT NULL DEFAULT '',
		created_at   DATETIME     NOT NULL,
		updated_at   DATETIME     NOT NULL
	)`,
}

// EnsureSchema creates the journal tables if they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
