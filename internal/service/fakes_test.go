package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/optprep/casebot/internal/domain/entities"
)

// fakeSource is an in-memory CaseSource.
type fakeSource struct {
	mu     sync.Mutex
	cases  map[string]*entities.Case
	ids    []string
	broken map[string]bool // ids whose Get fails
}

func newFakeSource(cases ...*entities.Case) *fakeSource {
	s := &fakeSource{cases: make(map[string]*entities.Case), broken: make(map[string]bool)}
	for _, c := range cases {
		s.cases[c.ID] = c
		s.ids = append(s.ids, c.ID)
	}
	return s
}

func (s *fakeSource) ListIDs(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out, nil
}

func (s *fakeSource) Get(_ context.Context, id string) (*entities.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken[id] {
		return nil, errors.New("unreadable case")
	}
	c, ok := s.cases[id]
	if !ok {
		return nil, errors.New("case not found")
	}
	return c, nil
}

// fakeMessenger records outbound traffic as compact event strings.
type fakeMessenger struct {
	mu     sync.Mutex
	events []string
}

func (m *fakeMessenger) record(format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, fmt.Sprintf(format, args...))
}

func (m *fakeMessenger) Events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	copy(out, m.events)
	return out
}

func (m *fakeMessenger) AnnounceCase(groupID int64, c *entities.Case, docURL string) error {
	m.record("announce:%s:url=%s", c.ID, docURL)
	return nil
}

func (m *fakeMessenger) SendQuestion(groupID int64, number, total int, q *entities.Question) error {
	m.record("question:%d/%d", number, total)
	return nil
}

func (m *fakeMessenger) SendEvaluation(groupID int64, displayName string, q *entities.Question, ev Evaluation) error {
	m.record("eval:%s:%v", displayName, ev.Correct)
	return nil
}

func (m *fakeMessenger) AnnounceCompletion(groupID int64, stats entities.DailyStats, answersURL string) error {
	m.record("complete:today=%d:lifetime=%d", stats.Today, stats.Lifetime)
	return nil
}

func (m *fakeMessenger) AnnounceExhaustion(groupID int64) error {
	m.record("exhausted")
	return nil
}

func (m *fakeMessenger) SendDailyDigest(groupID int64, stats entities.DailyStats) error {
	m.record("digest:%s:%d:%d", stats.Day, stats.Today, stats.Lifetime)
	return nil
}

// failingRenderer always errors; the quiz must proceed without documents.
type failingRenderer struct{}

func (failingRenderer) RenderCase(*entities.Case) (string, error) {
	return "", errors.New("renderer unavailable")
}

func (failingRenderer) RenderAnswers(*entities.Case) (string, error) {
	return "", errors.New("renderer unavailable")
}

// stubRenderer returns fixed paths without touching the filesystem.
type stubRenderer struct{}

func (stubRenderer) RenderCase(c *entities.Case) (string, error) {
	return "/tmp/" + c.ID + ".pdf", nil
}

func (stubRenderer) RenderAnswers(c *entities.Case) (string, error) {
	return "/tmp/" + c.ID + "-answers.pdf", nil
}

// fakeUploader publishes under a fixed base URL, or fails when told to.
type fakeUploader struct {
	fail bool
}

func (u *fakeUploader) Upload(_ context.Context, _, key string) (string, error) {
	if u.fail {
		return "", errors.New("upload failed")
	}
	return "https://cdn.example.com/" + key, nil
}
