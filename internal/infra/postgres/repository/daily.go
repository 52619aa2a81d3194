package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/optprep/casebot/internal/domain/entities"
	"github.com/optprep/casebot/internal/infra/postgres"
	"github.com/optprep/casebot/internal/ledger"
)

// DailyRepository is the Postgres-backed daily counter. The lifetime total
// is the sum over all day buckets.
type DailyRepository struct {
	db  postgres.DBTX
	now func() time.Time
}

// NewDailyRepository creates a DailyRepository over the given pool.
func NewDailyRepository(db postgres.DBTX) *DailyRepository {
	return &DailyRepository{db: db, now: time.Now}
}

// IncrementToday adds one completed case to the group's bucket for the
// current UTC day, returning the updated stats.
func (r *DailyRepository) IncrementToday(ctx context.Context, groupID int64) (entities.DailyStats, error) {
	day := ledger.DayKey(r.now())

	var today int
	err := r.db.QueryRow(ctx, `
		INSERT INTO daily_counts (group_id, day, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (group_id, day) DO UPDATE SET count = daily_counts.count + 1
		RETURNING count
	`, groupID, day).Scan(&today)
	if err != nil {
		return entities.DailyStats{}, fmt.Errorf("increment daily count: %w", err)
	}

	lifetime, err := r.lifetime(ctx, groupID)
	if err != nil {
		return entities.DailyStats{}, err
	}
	return entities.DailyStats{Day: day, Today: today, Lifetime: lifetime}, nil
}

// Stats returns the group's completion count for the given UTC day key and
// its lifetime total.
func (r *DailyRepository) Stats(ctx context.Context, groupID int64, day string) (entities.DailyStats, error) {
	var today int
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(count), 0) FROM daily_counts
		WHERE group_id = $1 AND day = $2
	`, groupID, day).Scan(&today)
	if err != nil {
		return entities.DailyStats{}, fmt.Errorf("get daily count: %w", err)
	}

	lifetime, err := r.lifetime(ctx, groupID)
	if err != nil {
		return entities.DailyStats{}, err
	}
	return entities.DailyStats{Day: day, Today: today, Lifetime: lifetime}, nil
}

func (r *DailyRepository) lifetime(ctx context.Context, groupID int64) (int, error) {
	var lifetime int
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(count), 0) FROM daily_counts WHERE group_id = $1
	`, groupID).Scan(&lifetime)
	if err != nil {
		return 0, fmt.Errorf("get lifetime count: %w", err)
	}
	return lifetime, nil
}
