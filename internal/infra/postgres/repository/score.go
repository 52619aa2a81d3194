package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/optprep/casebot/internal/domain/entities"
	"github.com/optprep/casebot/internal/infra/postgres"
)

// ScoreRepository is the Postgres-backed score ledger.
type ScoreRepository struct {
	db postgres.DBTX
}

// NewScoreRepository creates a ScoreRepository over the given pool.
func NewScoreRepository(db postgres.DBTX) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// Get returns the user's score entry, a zero entry if none exists yet.
func (r *ScoreRepository) Get(ctx context.Context, groupID, userID int64) (entities.Score, error) {
	var score entities.Score
	err := r.db.QueryRow(ctx, `
		SELECT display_name, correct, total, lifetime_cases
		FROM scores
		WHERE group_id = $1 AND user_id = $2
	`, groupID, userID).Scan(&score.DisplayName, &score.Correct, &score.Total, &score.LifetimeCases)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entities.Score{}, nil
		}
		return entities.Score{}, fmt.Errorf("get score: %w", err)
	}
	return score, nil
}

// RecordAnswer increments the user's total, and correct when the answer was
// right. The updated entry is returned.
func (r *ScoreRepository) RecordAnswer(ctx context.Context, groupID, userID int64, displayName string, correct bool) (entities.Score, error) {
	points := 0
	if correct {
		points = 1
	}

	var score entities.Score
	err := r.db.QueryRow(ctx, `
		INSERT INTO scores (group_id, user_id, display_name, correct, total)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (group_id, user_id) DO UPDATE SET
			correct = scores.correct + EXCLUDED.correct,
			total = scores.total + 1,
			display_name = CASE WHEN EXCLUDED.display_name = '' THEN scores.display_name ELSE EXCLUDED.display_name END
		RETURNING display_name, correct, total, lifetime_cases
	`, groupID, userID, displayName, points).Scan(&score.DisplayName, &score.Correct, &score.Total, &score.LifetimeCases)

	if err != nil {
		return entities.Score{}, fmt.Errorf("record answer: %w", err)
	}
	return score, nil
}

// RecordCaseCompletion credits one finished case to the user.
func (r *ScoreRepository) RecordCaseCompletion(ctx context.Context, groupID, userID int64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO scores (group_id, user_id, lifetime_cases)
		VALUES ($1, $2, 1)
		ON CONFLICT (group_id, user_id) DO UPDATE SET
			lifetime_cases = scores.lifetime_cases + 1
	`, groupID, userID)
	if err != nil {
		return fmt.Errorf("record case completion: %w", err)
	}
	return nil
}
