package postgres

import (
	"context"
	"fmt"
)

// schema holds the ledger tables. Statements are idempotent so Migrate can
// run on every deploy.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS case_usage (
		group_id BIGINT NOT NULL,
		case_id  TEXT   NOT NULL,
		used_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (group_id, case_id)
	)`,
	`CREATE TABLE IF NOT EXISTS scores (
		group_id       BIGINT NOT NULL,
		user_id        BIGINT NOT NULL,
		display_name   TEXT   NOT NULL DEFAULT '',
		correct        INT    NOT NULL DEFAULT 0,
		total          INT    NOT NULL DEFAULT 0,
		lifetime_cases INT    NOT NULL DEFAULT 0,
		PRIMARY KEY (group_id, user_id),
		CHECK (correct <= total)
	)`,
	`CREATE TABLE IF NOT EXISTS daily_counts (
		group_id BIGINT NOT NULL,
		day      DATE   NOT NULL,
		count    INT    NOT NULL DEFAULT 0,
		PRIMARY KEY (group_id, day)
	)`,
}

// Migrate applies the ledger schema.
func Migrate(ctx context.Context, db DBTX) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
