package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/optprep/casebot/internal/ledger"
)

// DigestService posts yesterday's completion counts to every configured
// group shortly after the UTC day rolls over.
type DigestService struct {
	daily     DailyLedger
	messenger Messenger
	groups    []int64
	logger    *zap.Logger
	now       func() time.Time
}

// NewDigestService creates the daily digest scheduler.
func NewDigestService(daily DailyLedger, messenger Messenger, groups []int64, logger *zap.Logger) *DigestService {
	return &DigestService{
		daily:     daily,
		messenger: messenger,
		groups:    groups,
		logger:    logger,
		now:       time.Now,
	}
}

// Start runs the digest cron until ctx is done.
func (s *DigestService) Start(ctx context.Context) {
	s.logger.Info("digest service started")

	c := cron.New(cron.WithLocation(time.UTC))

	_, err := c.AddFunc("5 0 * * *", func() {
		s.logger.Info("cron triggered: sending daily digest")
		s.SendDigest(ctx)
	})
	if err != nil {
		s.logger.Error("failed to add cron job", zap.Error(err))
		return
	}

	c.Start()

	<-ctx.Done()

	c.Stop()
	s.logger.Info("digest service stopped")
}

// SendDigest posts the previous UTC day's stats to each group. Groups with
// no completed cases that day are skipped.
func (s *DigestService) SendDigest(ctx context.Context) {
	yesterday := ledger.DayKey(s.now().Add(-24 * time.Hour))

	for _, groupID := range s.groups {
		stats, err := s.daily.Stats(ctx, groupID, yesterday)
		if err != nil {
			s.logger.Error("failed to read daily stats",
				zap.Int64("group_id", groupID),
				zap.Error(err),
			)
			continue
		}
		if stats.Today == 0 {
			continue
		}
		if err := s.messenger.SendDailyDigest(groupID, stats); err != nil {
			s.logger.Error("failed to send daily digest",
				zap.Int64("group_id", groupID),
				zap.Error(err),
			)
		}
	}
}
