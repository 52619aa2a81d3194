package service

import (
	"context"

	"github.com/optprep/casebot/internal/domain/entities"
)

// CaseSource is the read-only case catalog. Directory-backed sources
// re-scan on every listing.
type CaseSource interface {
	ListIDs(ctx context.Context) ([]string, error)
	Get(ctx context.Context, id string) (*entities.Case, error)
}

// UsageLedger records which cases a group has already been served.
type UsageLedger interface {
	Used(ctx context.Context, groupID int64) (map[string]struct{}, error)
	MarkUsed(ctx context.Context, groupID int64, caseID string) error
	Reset(ctx context.Context, groupID int64) error
}

// ScoreLedger persists per-group, per-user answer statistics.
type ScoreLedger interface {
	Get(ctx context.Context, groupID, userID int64) (entities.Score, error)
	RecordAnswer(ctx context.Context, groupID, userID int64, displayName string, correct bool) (entities.Score, error)
	RecordCaseCompletion(ctx context.Context, groupID, userID int64) error
}

// DailyLedger persists per-group completion counts by UTC day.
type DailyLedger interface {
	IncrementToday(ctx context.Context, groupID int64) (entities.DailyStats, error)
	Stats(ctx context.Context, groupID int64, day string) (entities.DailyStats, error)
}

// DocumentRenderer turns a case into a local PDF. Render failures must never
// stop a quiz; callers degrade to plain announcements.
type DocumentRenderer interface {
	RenderCase(c *entities.Case) (string, error)
	RenderAnswers(c *entities.Case) (string, error)
}

// Uploader publishes a local file under a key and returns a durable URL.
type Uploader interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
}

// Messenger carries outbound quiz traffic back to the chat.
type Messenger interface {
	AnnounceCase(groupID int64, c *entities.Case, docURL string) error
	SendQuestion(groupID int64, number, total int, q *entities.Question) error
	SendEvaluation(groupID int64, displayName string, q *entities.Question, ev Evaluation) error
	AnnounceCompletion(groupID int64, stats entities.DailyStats, answersURL string) error
	AnnounceExhaustion(groupID int64) error
	SendDailyDigest(groupID int64, stats entities.DailyStats) error
}
