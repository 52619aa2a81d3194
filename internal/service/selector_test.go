package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/optprep/casebot/internal/domain/entities"
	"github.com/optprep/casebot/internal/ledger"
)

func twoQuestionCase(id string) *entities.Case {
	q := func(answer string) entities.Question {
		return entities.Question{
			Stem: "Pick the right option.",
			Options: []entities.Option{
				{Label: "a", Text: "Alpha"},
				{Label: "b", Text: "Beta"},
				{Label: "c", Text: "Gamma"},
				{Label: "d", Text: "Delta"},
			},
			Answer:      answer,
			Explanation: "Because.",
		}
	}
	return &entities.Case{ID: id, Questions: []entities.Question{q("b"), q("a")}}
}

func newTestUsage(t *testing.T) *ledger.UsageStore {
	t.Helper()
	return ledger.NewUsageStore(filepath.Join(t.TempDir(), "usage.json"))
}

func TestSelectorNeverRepeatsUntilReset(t *testing.T) {
	ctx := context.Background()
	usage := newTestUsage(t)
	source := newFakeSource(twoQuestionCase("C1"), twoQuestionCase("C2"), twoQuestionCase("C3"))
	sel := NewCaseSelector(source, usage, zap.NewNop())

	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		c, err := sel.Pick(ctx, 1)
		if err != nil {
			t.Fatalf("pick %d: %v", i, err)
		}
		if seen[c.ID] {
			t.Fatalf("case %s repeated before reset", c.ID)
		}
		seen[c.ID] = true
		if err := usage.MarkUsed(ctx, 1, c.ID); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := sel.Pick(ctx, 1); !errors.Is(err, ErrNoCasesAvailable) {
		t.Fatalf("expected exhaustion, got %v", err)
	}

	// Reset widens eligibility back to the full pool.
	if err := usage.Reset(ctx, 1); err != nil {
		t.Fatal(err)
	}
	c, err := sel.Pick(ctx, 1)
	if err != nil {
		t.Fatalf("pick after reset: %v", err)
	}
	if !seen[c.ID] {
		t.Fatalf("pick after reset returned unknown case %s", c.ID)
	}
}

func TestSelectorIndependentGroups(t *testing.T) {
	ctx := context.Background()
	usage := newTestUsage(t)
	source := newFakeSource(twoQuestionCase("C1"))
	sel := NewCaseSelector(source, usage, zap.NewNop())

	if err := usage.MarkUsed(ctx, 1, "C1"); err != nil {
		t.Fatal(err)
	}

	// Group 2 still sees C1.
	c, err := sel.Pick(ctx, 2)
	if err != nil || c.ID != "C1" {
		t.Fatalf("pick for group 2 = %v, %v", c, err)
	}
}

func TestSelectorSkipsUnloadableCase(t *testing.T) {
	ctx := context.Background()
	usage := newTestUsage(t)
	source := newFakeSource(twoQuestionCase("C1"), twoQuestionCase("C2"))
	source.broken["C1"] = true
	sel := NewCaseSelector(source, usage, zap.NewNop())

	for i := 0; i < 5; i++ {
		c, err := sel.Pick(ctx, 1)
		if err != nil {
			t.Fatalf("pick: %v", err)
		}
		if c.ID != "C2" {
			t.Fatalf("expected broken case to be skipped, got %s", c.ID)
		}
	}
}

func TestSelectorExhaustedWhenAllBroken(t *testing.T) {
	ctx := context.Background()
	usage := newTestUsage(t)
	source := newFakeSource(twoQuestionCase("C1"))
	source.broken["C1"] = true
	sel := NewCaseSelector(source, usage, zap.NewNop())

	if _, err := sel.Pick(ctx, 1); !errors.Is(err, ErrNoCasesAvailable) {
		t.Fatalf("expected ErrNoCasesAvailable, got %v", err)
	}
}
