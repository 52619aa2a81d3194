package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/optprep/casebot/internal/domain/entities"
	"github.com/optprep/casebot/internal/ledger"
)

// sessionState is the per-group quiz state machine.
type sessionState int

const (
	stateIdle sessionState = iota
	stateAwaitingAnswer
	stateCaseComplete
	stateExhausted
)

// groupSession holds the in-flight quiz state for one chat group. It is
// never persisted: a restart loses it and the next case starts fresh. The
// generation counter tags deferred continuations; anything that bumps it
// (reset, skip, a new case) turns stale continuations into no-ops.
type groupSession struct {
	mu          sync.Mutex
	state       sessionState
	current     *entities.Case
	questionIdx int
	accepting   bool
	generation  uint64

	lastResponder     int64
	lastResponderName string
}

// Options configures session pacing and responder restrictions.
type Options struct {
	// QuestionDelay paces the gap between an evaluation reply and the next
	// question. It exists for chat readability, not synchronization.
	QuestionDelay time.Duration
	// NextCaseDelay paces the gap between case completion and the next case.
	NextCaseDelay time.Duration
	// Responders maps a group to the participants allowed to answer. A
	// missing or empty list means everyone may answer; a single authorized
	// responder is a one-element list.
	Responders map[int64][]int64
}

// QuizService orchestrates case selection, question sequencing, answer
// validation and ledger updates for every configured group. Each group has
// its own session and lock, so groups run independently.
type QuizService struct {
	selector  *CaseSelector
	usage     UsageLedger
	scores    ScoreLedger
	daily     DailyLedger
	renderer  DocumentRenderer // nil disables documents
	uploader  Uploader         // nil disables publishing
	messenger Messenger
	logger    *zap.Logger
	opts      Options

	mu       sync.Mutex
	sessions map[int64]*groupSession

	// schedule defers a continuation; tests swap it for a synchronous call.
	schedule func(d time.Duration, fn func())
}

// NewQuizService wires the orchestrator. Renderer and uploader may be nil;
// the quiz then runs without document links.
func NewQuizService(
	selector *CaseSelector,
	usage UsageLedger,
	scores ScoreLedger,
	daily DailyLedger,
	renderer DocumentRenderer,
	uploader Uploader,
	messenger Messenger,
	logger *zap.Logger,
	opts Options,
) *QuizService {
	return &QuizService{
		selector:  selector,
		usage:     usage,
		scores:    scores,
		daily:     daily,
		renderer:  renderer,
		uploader:  uploader,
		messenger: messenger,
		logger:    logger,
		opts:      opts,
		sessions:  make(map[int64]*groupSession),
		schedule: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
	}
}

// session returns the group's session, creating it lazily.
func (s *QuizService) session(groupID int64) *groupSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.sessions[groupID]
	if !ok {
		gs = &groupSession{}
		s.sessions[groupID] = gs
	}
	return gs
}

// StartCase abandons any in-flight question for the group and starts the
// next unused case. On exhaustion it announces that all cases are used.
func (s *QuizService) StartCase(ctx context.Context, groupID int64) error {
	gs := s.session(groupID)
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return s.startCaseLocked(ctx, gs, groupID)
}

func (s *QuizService) startCaseLocked(ctx context.Context, gs *groupSession, groupID int64) error {
	gs.generation++
	gs.current = nil
	gs.questionIdx = 0
	gs.accepting = false
	gs.state = stateIdle

	c, err := s.selector.Pick(ctx, groupID)
	if errors.Is(err, ErrNoCasesAvailable) {
		gs.state = stateExhausted
		s.logger.Info("case pool exhausted", zap.Int64("group_id", groupID))
		if err := s.messenger.AnnounceExhaustion(groupID); err != nil {
			s.logger.Error("failed to announce exhaustion", zap.Error(err))
		}
		return nil
	}
	if err != nil {
		return err
	}

	docURL := s.publishCase(ctx, c)
	if err := s.messenger.AnnounceCase(groupID, c, docURL); err != nil {
		s.logger.Error("failed to announce case",
			zap.Int64("group_id", groupID),
			zap.String("case_id", c.ID),
			zap.Error(err),
		)
	}

	// Persist usage right after the announcement so a crash cannot replay
	// the case.
	if err := s.usage.MarkUsed(ctx, groupID, c.ID); err != nil {
		s.logger.Error("failed to mark case used",
			zap.Int64("group_id", groupID),
			zap.String("case_id", c.ID),
			zap.Error(err),
		)
	}

	gs.current = c
	gs.questionIdx = 0
	gs.state = stateAwaitingAnswer
	gs.accepting = true

	s.logger.Info("case started",
		zap.Int64("group_id", groupID),
		zap.String("case_id", c.ID),
		zap.Int("questions", len(c.Questions)),
	)

	if err := s.messenger.SendQuestion(groupID, 1, len(c.Questions), &c.Questions[0]); err != nil {
		s.logger.Error("failed to send question", zap.Error(err))
	}
	return nil
}

// HandleMessage evaluates a plain-text group message as an answer to the
// open question. Messages outside an open question, or from senders not on
// the group's responder list, are silently ignored.
func (s *QuizService) HandleMessage(ctx context.Context, groupID, userID int64, displayName, text string) {
	gs := s.session(groupID)
	gs.mu.Lock()

	if gs.state != stateAwaitingAnswer || !gs.accepting || gs.current == nil {
		gs.mu.Unlock()
		return
	}
	if !s.authorized(groupID, userID) {
		gs.mu.Unlock()
		return
	}

	// Close the question before anything else so a racing second message
	// can never be scored against the same question.
	gs.accepting = false

	q := &gs.current.Questions[gs.questionIdx]
	ev := Evaluate(q, text)
	gs.lastResponder = userID
	gs.lastResponderName = displayName

	if _, err := s.scores.RecordAnswer(ctx, groupID, userID, displayName, ev.Correct); err != nil {
		s.logger.Error("failed to record answer",
			zap.Int64("group_id", groupID),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}

	if err := s.messenger.SendEvaluation(groupID, displayName, q, ev); err != nil {
		s.logger.Error("failed to send evaluation", zap.Error(err))
	}

	if gs.questionIdx < len(gs.current.Questions)-1 {
		gs.questionIdx++
		idx := gs.questionIdx
		total := len(gs.current.Questions)
		next := &gs.current.Questions[idx]
		gen := gs.generation
		gs.mu.Unlock()

		s.schedule(s.opts.QuestionDelay, func() {
			s.openQuestion(groupID, gen, idx, total, next)
		})
		return
	}

	s.completeCaseLocked(ctx, gs, groupID)
	gen := gs.generation
	gs.mu.Unlock()

	s.schedule(s.opts.NextCaseDelay, func() {
		s.resumeCase(groupID, gen)
	})
}

// completeCaseLocked runs the CaseComplete transition: counters, the answer
// key document and the completion announcement.
func (s *QuizService) completeCaseLocked(ctx context.Context, gs *groupSession, groupID int64) {
	gs.state = stateCaseComplete
	completed := gs.current

	stats, err := s.daily.IncrementToday(ctx, groupID)
	if err != nil {
		s.logger.Error("failed to update daily counter",
			zap.Int64("group_id", groupID),
			zap.Error(err),
		)
	}

	// Case completion is credited to the participant who answered last.
	if gs.lastResponder != 0 {
		if err := s.scores.RecordCaseCompletion(ctx, groupID, gs.lastResponder); err != nil {
			s.logger.Error("failed to record case completion",
				zap.Int64("group_id", groupID),
				zap.Int64("user_id", gs.lastResponder),
				zap.Error(err),
			)
		}
	}

	answersURL := s.publishAnswers(ctx, completed)

	s.logger.Info("case completed",
		zap.Int64("group_id", groupID),
		zap.String("case_id", completed.ID),
		zap.Int("today", stats.Today),
		zap.Int("lifetime", stats.Lifetime),
	)

	if err := s.messenger.AnnounceCompletion(groupID, stats, answersURL); err != nil {
		s.logger.Error("failed to announce completion", zap.Error(err))
	}
}

// openQuestion fires the deferred transition into the next question. A
// stale generation means the case was abandoned in the meantime.
func (s *QuizService) openQuestion(groupID int64, gen uint64, idx, total int, q *entities.Question) {
	gs := s.session(groupID)
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.generation != gen || gs.current == nil || gs.questionIdx != idx {
		return
	}
	gs.accepting = true

	if err := s.messenger.SendQuestion(groupID, idx+1, total, q); err != nil {
		s.logger.Error("failed to send question", zap.Error(err))
	}
}

// resumeCase fires the deferred restart after a completed case.
func (s *QuizService) resumeCase(groupID int64, gen uint64) {
	gs := s.session(groupID)
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.generation != gen {
		return
	}
	if err := s.startCaseLocked(context.Background(), gs, groupID); err != nil {
		s.logger.Error("failed to start next case",
			zap.Int64("group_id", groupID),
			zap.Error(err),
		)
	}
}

// ResetCases clears the group's usage ledger and starts over. Scores and
// daily counters are untouched.
func (s *QuizService) ResetCases(ctx context.Context, groupID int64) error {
	if err := s.usage.Reset(ctx, groupID); err != nil {
		return err
	}
	s.logger.Info("usage ledger reset", zap.Int64("group_id", groupID))
	return s.StartCase(ctx, groupID)
}

// SkipCase abandons the in-progress case without penalty and starts the
// next one.
func (s *QuizService) SkipCase(ctx context.Context, groupID int64) error {
	return s.StartCase(ctx, groupID)
}

// ScoreReport returns the sender's score alongside the group's stats for the
// current UTC day.
func (s *QuizService) ScoreReport(ctx context.Context, groupID, userID int64) (entities.ScoreReport, error) {
	user, err := s.scores.Get(ctx, groupID, userID)
	if err != nil {
		return entities.ScoreReport{}, err
	}
	group, err := s.daily.Stats(ctx, groupID, ledger.DayKey(time.Now()))
	if err != nil {
		return entities.ScoreReport{}, err
	}
	return entities.ScoreReport{User: user, Group: group}, nil
}

// authorized reports whether the sender may answer in the group.
func (s *QuizService) authorized(groupID, userID int64) bool {
	allowed := s.opts.Responders[groupID]
	if len(allowed) == 0 {
		return true
	}
	for _, id := range allowed {
		if id == userID {
			return true
		}
	}
	return false
}

// publishCase renders and uploads the case sheet, returning its URL or ""
// when any step fails or is disabled. The quiz proceeds either way.
func (s *QuizService) publishCase(ctx context.Context, c *entities.Case) string {
	if s.renderer == nil {
		return ""
	}
	path, err := s.renderer.RenderCase(c)
	if err != nil {
		s.logger.Error("failed to render case document",
			zap.String("case_id", c.ID),
			zap.Error(err),
		)
		return ""
	}
	return s.upload(ctx, c.ID, path)
}

// publishAnswers renders and uploads the answer key, returning its URL or "".
func (s *QuizService) publishAnswers(ctx context.Context, c *entities.Case) string {
	if s.renderer == nil {
		return ""
	}
	path, err := s.renderer.RenderAnswers(c)
	if err != nil {
		s.logger.Error("failed to render answer key",
			zap.String("case_id", c.ID),
			zap.Error(err),
		)
		return ""
	}
	return s.upload(ctx, c.ID, path)
}

func (s *QuizService) upload(ctx context.Context, caseID, path string) string {
	if s.uploader == nil {
		s.logger.Info("uploader disabled, document kept locally",
			zap.String("path", path),
		)
		return ""
	}
	url, err := s.uploader.Upload(ctx, path, filepath.Base(path))
	if err != nil {
		s.logger.Error("failed to upload document",
			zap.String("case_id", caseID),
			zap.String("path", path),
			zap.Error(err),
		)
		return ""
	}
	return url
}
