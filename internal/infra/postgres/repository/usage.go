package repository

import (
	"context"
	"fmt"

	"github.com/optprep/casebot/internal/infra/postgres"
)

// UsageRepository is the Postgres-backed usage ledger.
type UsageRepository struct {
	db postgres.DBTX
}

// NewUsageRepository creates a UsageRepository over the given pool.
func NewUsageRepository(db postgres.DBTX) *UsageRepository {
	return &UsageRepository{db: db}
}

// Used returns the set of case identifiers already served to the group.
func (r *UsageRepository) Used(ctx context.Context, groupID int64) (map[string]struct{}, error) {
	rows, err := r.db.Query(ctx,
		`SELECT case_id FROM case_usage WHERE group_id = $1`, groupID)
	if err != nil {
		return nil, fmt.Errorf("query used cases: %w", err)
	}
	defer rows.Close()

	used := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan used case: %w", err)
		}
		used[id] = struct{}{}
	}
	return used, rows.Err()
}

// MarkUsed records that a case has been served to the group.
func (r *UsageRepository) MarkUsed(ctx context.Context, groupID int64, caseID string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO case_usage (group_id, case_id)
		VALUES ($1, $2)
		ON CONFLICT (group_id, case_id) DO NOTHING
	`, groupID, caseID)
	if err != nil {
		return fmt.Errorf("mark case used: %w", err)
	}
	return nil
}

// Reset clears the group's used set.
func (r *UsageRepository) Reset(ctx context.Context, groupID int64) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM case_usage WHERE group_id = $1`, groupID)
	if err != nil {
		return fmt.Errorf("reset used cases: %w", err)
	}
	return nil
}
