package service

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/optprep/casebot/internal/ledger"
)

type testEnv struct {
	svc     *QuizService
	msgr    *fakeMessenger
	usage   *ledger.UsageStore
	scores  *ledger.ScoreStore
	daily   *ledger.DailyStore
	pending []func()
}

// newTestEnv wires a service over file ledgers in a temp dir, capturing
// deferred continuations instead of running them on timers.
func newTestEnv(t *testing.T, opts Options, source *fakeSource) *testEnv {
	t.Helper()
	dir := t.TempDir()

	env := &testEnv{
		msgr:   &fakeMessenger{},
		usage:  ledger.NewUsageStore(filepath.Join(dir, "usage.json")),
		scores: ledger.NewScoreStore(filepath.Join(dir, "scores.json")),
		daily:  ledger.NewDailyStore(filepath.Join(dir, "daily.json")),
	}

	logger := zap.NewNop()
	env.svc = NewQuizService(
		NewCaseSelector(source, env.usage, logger),
		env.usage, env.scores, env.daily,
		nil, nil,
		env.msgr, logger, opts,
	)
	env.svc.schedule = func(_ time.Duration, fn func()) {
		env.pending = append(env.pending, fn)
	}
	return env
}

// fire runs every captured continuation once.
func (e *testEnv) fire() {
	pending := e.pending
	e.pending = nil
	for _, fn := range pending {
		fn()
	}
}

func countPrefix(events []string, prefix string) int {
	n := 0
	for _, ev := range events {
		if strings.HasPrefix(ev, prefix) {
			n++
		}
	}
	return n
}

func TestFullCaseFlow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Options{}, newFakeSource(twoQuestionCase("C1")))

	if err := env.svc.StartCase(ctx, 1); err != nil {
		t.Fatalf("start case: %v", err)
	}

	events := env.msgr.Events()
	if len(events) != 2 || events[0] != "announce:C1:url=" || events[1] != "question:1/2" {
		t.Fatalf("unexpected start events: %v", events)
	}

	used, _ := env.usage.Used(ctx, 1)
	if _, ok := used["C1"]; !ok {
		t.Fatal("case not marked used after announcement")
	}

	// Q1: correct label is b, answered uppercase.
	env.svc.HandleMessage(ctx, 1, 100, "Alice", "B")
	env.fire() // opens question 2

	events = env.msgr.Events()
	if events[2] != "eval:Alice:true" || events[3] != "question:2/2" {
		t.Fatalf("unexpected events after first answer: %v", events)
	}

	// Q2: correct label is a.
	env.svc.HandleMessage(ctx, 1, 100, "Alice", "a")

	events = env.msgr.Events()
	if events[4] != "eval:Alice:true" || events[5] != "complete:today=1:lifetime=1" {
		t.Fatalf("unexpected completion events: %v", events)
	}

	score, _ := env.scores.Get(ctx, 1, 100)
	if score.Correct != 2 || score.Total != 2 || score.LifetimeCases != 1 {
		t.Fatalf("unexpected score: %+v", score)
	}

	// The pool held a single case, so the auto-started next case announces
	// exhaustion.
	env.fire()
	events = env.msgr.Events()
	if events[len(events)-1] != "exhausted" {
		t.Fatalf("expected exhaustion, got %v", events)
	}

	// Plain messages are ignored while exhausted.
	env.svc.HandleMessage(ctx, 1, 100, "Alice", "b")
	if got := env.msgr.Events(); len(got) != len(events) {
		t.Fatalf("message scored while exhausted: %v", got)
	}
}

func TestSecondMessageBeforeNextQuestionIgnored(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Options{}, newFakeSource(twoQuestionCase("C1")))

	if err := env.svc.StartCase(ctx, 1); err != nil {
		t.Fatal(err)
	}

	env.svc.HandleMessage(ctx, 1, 100, "Alice", "b")
	// Bob races in before the next question opens.
	env.svc.HandleMessage(ctx, 1, 200, "Bob", "b")

	if n := countPrefix(env.msgr.Events(), "eval:"); n != 1 {
		t.Fatalf("expected exactly one evaluation, got %d", n)
	}
	if bob, _ := env.scores.Get(ctx, 1, 200); bob.Total != 0 {
		t.Fatalf("racing message was scored: %+v", bob)
	}

	// Once the next question opens, Bob's answer counts.
	env.fire()
	env.svc.HandleMessage(ctx, 1, 200, "Bob", "a")
	if bob, _ := env.scores.Get(ctx, 1, 200); bob.Total != 1 || bob.Correct != 1 {
		t.Fatalf("unexpected score for Bob: %+v", bob)
	}
}

func TestIncorrectAnswerStillCountsTotal(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Options{}, newFakeSource(twoQuestionCase("C1")))

	if err := env.svc.StartCase(ctx, 1); err != nil {
		t.Fatal(err)
	}
	env.svc.HandleMessage(ctx, 1, 100, "Alice", "d")

	score, _ := env.scores.Get(ctx, 1, 100)
	if score.Correct != 0 || score.Total != 1 {
		t.Fatalf("unexpected score: %+v", score)
	}
	if score.Correct > score.Total {
		t.Fatalf("invariant violated: %+v", score)
	}
}

func TestRestrictedResponders(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t,
		Options{Responders: map[int64][]int64{1: {100}}},
		newFakeSource(twoQuestionCase("C1")),
	)

	if err := env.svc.StartCase(ctx, 1); err != nil {
		t.Fatal(err)
	}

	// Not on the allow-list: silently ignored, question stays open.
	env.svc.HandleMessage(ctx, 1, 200, "Bob", "b")
	if n := countPrefix(env.msgr.Events(), "eval:"); n != 0 {
		t.Fatal("unauthorized sender was evaluated")
	}

	env.svc.HandleMessage(ctx, 1, 100, "Alice", "b")
	if n := countPrefix(env.msgr.Events(), "eval:"); n != 1 {
		t.Fatal("authorized sender was not evaluated")
	}
}

func TestMessagesIgnoredWhenIdle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Options{}, newFakeSource(twoQuestionCase("C1")))

	env.svc.HandleMessage(ctx, 1, 100, "Alice", "b")
	if len(env.msgr.Events()) != 0 {
		t.Fatalf("idle session produced events: %v", env.msgr.Events())
	}
	if score, _ := env.scores.Get(ctx, 1, 100); score.Total != 0 {
		t.Fatalf("idle message was scored: %+v", score)
	}
}

func TestResetCasesRestarts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Options{}, newFakeSource(twoQuestionCase("C1")))

	if err := env.svc.StartCase(ctx, 1); err != nil {
		t.Fatal(err)
	}
	env.svc.HandleMessage(ctx, 1, 100, "Alice", "b")
	env.fire()
	env.svc.HandleMessage(ctx, 1, 100, "Alice", "a")
	env.fire() // exhausted

	if err := env.svc.ResetCases(ctx, 1); err != nil {
		t.Fatalf("reset: %v", err)
	}

	used, _ := env.usage.Used(ctx, 1)
	if _, ok := used["C1"]; !ok {
		t.Fatal("C1 should be re-marked used after reset restarted it")
	}
	if n := countPrefix(env.msgr.Events(), "announce:C1"); n != 2 {
		t.Fatalf("expected C1 announced twice, got %d", n)
	}

	// Scores and daily counters survive a reset.
	score, _ := env.scores.Get(ctx, 1, 100)
	if score.Total != 2 {
		t.Fatalf("scores were clobbered by reset: %+v", score)
	}
	stats, _ := env.daily.Stats(ctx, 1, ledger.DayKey(time.Now()))
	if stats.Lifetime != 1 {
		t.Fatalf("daily counter was clobbered by reset: %+v", stats)
	}
}

func TestSkipDiscardsStaleContinuation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Options{},
		newFakeSource(twoQuestionCase("C1"), twoQuestionCase("C2")))

	if err := env.svc.StartCase(ctx, 1); err != nil {
		t.Fatal(err)
	}
	env.svc.HandleMessage(ctx, 1, 100, "Alice", "b") // schedules question 2

	// Skip before the continuation fires: it must become a no-op.
	if err := env.svc.SkipCase(ctx, 1); err != nil {
		t.Fatalf("skip: %v", err)
	}
	env.fire()

	events := env.msgr.Events()
	if n := countPrefix(events, "announce:"); n != 2 {
		t.Fatalf("expected 2 announcements, got %d: %v", n, events)
	}
	// Question events: 1/2 from each case. The stale "question 2" from the
	// abandoned case must not appear.
	if n := countPrefix(events, "question:1/2"); n != 2 {
		t.Fatalf("expected two first questions, got %v", events)
	}
	if n := countPrefix(events, "question:2/2"); n != 0 {
		t.Fatalf("stale continuation fired: %v", events)
	}
}

func TestDocumentPublishing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Options{}, newFakeSource(twoQuestionCase("C1")))
	env.svc.renderer = stubRenderer{}
	env.svc.uploader = &fakeUploader{}

	if err := env.svc.StartCase(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if env.msgr.Events()[0] != "announce:C1:url=https://cdn.example.com/C1.pdf" {
		t.Fatalf("unexpected announcement: %v", env.msgr.Events())
	}
}

func TestRendererFailureDegrades(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Options{}, newFakeSource(twoQuestionCase("C1")))
	env.svc.renderer = failingRenderer{}
	env.svc.uploader = &fakeUploader{}

	if err := env.svc.StartCase(ctx, 1); err != nil {
		t.Fatal(err)
	}
	events := env.msgr.Events()
	if events[0] != "announce:C1:url=" {
		t.Fatalf("expected empty doc URL, got %v", events)
	}
	// The question still goes out.
	if events[1] != "question:1/2" {
		t.Fatalf("question not delivered after render failure: %v", events)
	}
}

func TestUploadFailureDegrades(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Options{}, newFakeSource(twoQuestionCase("C1")))
	env.svc.renderer = stubRenderer{}
	env.svc.uploader = &fakeUploader{fail: true}

	if err := env.svc.StartCase(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if env.msgr.Events()[0] != "announce:C1:url=" {
		t.Fatalf("expected empty doc URL, got %v", env.msgr.Events())
	}
}

func TestScoreReport(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Options{}, newFakeSource(twoQuestionCase("C1")))

	if err := env.svc.StartCase(ctx, 1); err != nil {
		t.Fatal(err)
	}
	env.svc.HandleMessage(ctx, 1, 100, "Alice", "b")
	env.fire()
	env.svc.HandleMessage(ctx, 1, 100, "Alice", "d")

	report, err := env.svc.ScoreReport(ctx, 1, 100)
	if err != nil {
		t.Fatalf("score report: %v", err)
	}
	if report.User.Correct != 1 || report.User.Total != 2 {
		t.Fatalf("unexpected user score: %+v", report.User)
	}
	if report.Group.Today != 1 || report.Group.Lifetime != 1 {
		t.Fatalf("unexpected group stats: %+v", report.Group)
	}
}
