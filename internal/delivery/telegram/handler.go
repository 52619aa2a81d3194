package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/optprep/casebot/internal/domain/entities"
)

// QuizService is the orchestrator surface the handler drives.
type QuizService interface {
	StartCase(ctx context.Context, groupID int64) error
	HandleMessage(ctx context.Context, groupID, userID int64, displayName, text string)
	ResetCases(ctx context.Context, groupID int64) error
	SkipCase(ctx context.Context, groupID int64) error
	ScoreReport(ctx context.Context, groupID, userID int64) (entities.ScoreReport, error)
}

// Handler wires Telegram updates into the quiz service and carries the
// service's outbound traffic back to the chat (it implements
// service.Messenger).
type Handler struct {
	bot    *tgbotapi.BotAPI
	logger *zap.Logger
	quiz   QuizService
	groups map[int64]bool
}

// NewHandler creates the Telegram handler for the allowed groups. The quiz
// service is attached afterwards with SetQuizService, since the service
// needs the handler as its messenger.
func NewHandler(bot *tgbotapi.BotAPI, logger *zap.Logger, groups []int64) *Handler {
	allowed := make(map[int64]bool, len(groups))
	for _, id := range groups {
		allowed[id] = true
	}
	return &Handler{
		bot:    bot,
		logger: logger,
		groups: allowed,
	}
}

// SetQuizService attaches the orchestrator (called after the service is
// constructed with this handler as messenger).
func (h *Handler) SetQuizService(quiz QuizService) {
	h.quiz = quiz
}

// Run starts a case in every configured group and then processes updates
// until the context is done. Updates are handled one at a time, so the quiz
// never evaluates two messages for the same group concurrently.
func (h *Handler) Run(ctx context.Context) error {
	h.logger.Info("telegram handler started")
	defer h.logger.Info("telegram handler stopped")

	for groupID := range h.groups {
		if err := h.quiz.StartCase(ctx, groupID); err != nil {
			h.logger.Error("failed to start initial case",
				zap.Int64("group_id", groupID),
				zap.Error(err),
			)
		}
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := h.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-updates:
			h.handleUpdate(ctx, update)
		}
	}
}

func (h *Handler) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	msg := update.Message
	groupID := msg.Chat.ID
	if !h.groups[groupID] {
		h.logger.Debug("ignoring message from unconfigured chat",
			zap.Int64("chat_id", groupID),
		)
		return
	}
	if msg.From == nil {
		return
	}

	h.logger.Debug("message received",
		zap.Int64("group_id", groupID),
		zap.Int64("user_id", msg.From.ID),
		zap.String("text", msg.Text),
	)

	if cmd, ok := ParseCommand(msg.Text); ok {
		h.handleCommand(ctx, cmd, groupID, msg.From)
		return
	}

	h.quiz.HandleMessage(ctx, groupID, msg.From.ID, displayName(msg.From), msg.Text)
}

func (h *Handler) handleCommand(ctx context.Context, cmd Command, groupID int64, from *tgbotapi.User) {
	h.logger.Info("admin command",
		zap.Int64("group_id", groupID),
		zap.Int64("user_id", from.ID),
		zap.String("command", string(cmd)),
	)

	switch cmd {
	case CmdResetCases:
		if err := h.quiz.ResetCases(ctx, groupID); err != nil {
			h.logger.Error("failed to reset cases", zap.Error(err))
			h.send(groupID, msgCommandFailed)
		}

	case CmdNextCase:
		if err := h.quiz.SkipCase(ctx, groupID); err != nil {
			h.logger.Error("failed to skip case", zap.Error(err))
			h.send(groupID, msgCommandFailed)
		}

	case CmdScore:
		report, err := h.quiz.ScoreReport(ctx, groupID, from.ID)
		if err != nil {
			h.logger.Error("failed to build score report", zap.Error(err))
			h.send(groupID, msgScoreUnavailable)
			return
		}
		h.send(groupID, formatScoreReport(displayName(from), report))
	}
}

// send delivers a plain-text message, logging failures instead of
// propagating them; chat delivery is best-effort.
func (h *Handler) send(groupID int64, text string) error {
	msg := tgbotapi.NewMessage(groupID, text)
	if _, err := h.bot.Send(msg); err != nil {
		h.logger.Error("failed to send telegram message",
			zap.Int64("group_id", groupID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// displayName prefers the first/last name, falling back to the username.
func displayName(u *tgbotapi.User) string {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	if name == "" {
		name = u.UserName
	}
	return name
}
