package telegram

import (
	"github.com/optprep/casebot/internal/domain/entities"
	"github.com/optprep/casebot/internal/service"
)

// The handler doubles as the quiz service's outbound messenger.

func (h *Handler) AnnounceCase(groupID int64, c *entities.Case, docURL string) error {
	return h.send(groupID, formatAnnouncement(c, docURL))
}

func (h *Handler) SendQuestion(groupID int64, number, total int, q *entities.Question) error {
	return h.send(groupID, formatQuestion(number, total, q))
}

func (h *Handler) SendEvaluation(groupID int64, displayName string, q *entities.Question, ev service.Evaluation) error {
	return h.send(groupID, formatEvaluation(displayName, q, ev))
}

func (h *Handler) AnnounceCompletion(groupID int64, stats entities.DailyStats, answersURL string) error {
	return h.send(groupID, formatCompletion(stats, answersURL))
}

func (h *Handler) AnnounceExhaustion(groupID int64) error {
	return h.send(groupID, msgExhausted)
}

func (h *Handler) SendDailyDigest(groupID int64, stats entities.DailyStats) error {
	return h.send(groupID, formatDigest(stats))
}
