package entities

import (
	"errors"
	"fmt"
	"strings"
)

// minOptions is the smallest option list a question may carry. Shorter lists
// are rejected at load time instead of being mis-scored mid-quiz.
const minOptions = 4

var (
	ErrEmptyCaseID     = errors.New("case has no id")
	ErrNoQuestions     = errors.New("case has no questions")
	ErrEmptyStem       = errors.New("question has no stem")
	ErrTooFewOptions   = errors.New("question has too few options")
	ErrInvalidLabel    = errors.New("option label must be one or two letters")
	ErrDuplicateLabel  = errors.New("duplicate option label")
	ErrAnswerNotOption = errors.New("answer label does not match any option")
)

// ClinicalData holds the measured findings of a case.
type ClinicalData struct {
	PresentingVA         string `json:"presenting_va,omitempty"`
	SubjectiveRefraction string `json:"subjective_refraction,omitempty"`
	CoverTest            string `json:"cover_test,omitempty"`
	AnteriorSegment      string `json:"anterior_segment,omitempty"`
	Fundus               string `json:"fundus,omitempty"`
}

// CaseData is the narrative part of a case file.
type CaseData struct {
	Demographics   string       `json:"demographics,omitempty"`
	ChiefComplaint string       `json:"chief_complaint,omitempty"`
	OcularHistory  string       `json:"ocular_history,omitempty"`
	MedicalHistory string       `json:"medical_history,omitempty"`
	Clinical       ClinicalData `json:"clinical_data,omitempty"`
	Description    string       `json:"description,omitempty"`
}

// Option is a single answer choice with a short letter label.
type Option struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Question is one multiple-choice question of a case. Answer names the label
// of the correct option; Explanation is shown after the question is scored.
type Question struct {
	Stem        string   `json:"question"`
	Options     []Option `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation,omitempty"`
}

// Case is a themed set of questions presented together. Cases are immutable
// once loaded and identified by a unique string within a store.
type Case struct {
	ID        string     `json:"case_id"`
	Topic     string     `json:"topic,omitempty"`
	Data      CaseData   `json:"case_data"`
	Questions []Question `json:"questions"`
}

// Validate checks the structural invariants of a case. Stores call it at
// load time so malformed records never reach an active session.
func (c *Case) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrEmptyCaseID
	}
	if len(c.Questions) == 0 {
		return fmt.Errorf("case %s: %w", c.ID, ErrNoQuestions)
	}
	for i := range c.Questions {
		if err := c.Questions[i].Validate(); err != nil {
			return fmt.Errorf("case %s, question %d: %w", c.ID, i+1, err)
		}
	}
	return nil
}

// Validate checks a single question: a non-empty stem, at least minOptions
// options with unique short alphabetic labels, and an answer label matching
// exactly one option.
func (q *Question) Validate() error {
	if strings.TrimSpace(q.Stem) == "" {
		return ErrEmptyStem
	}
	if len(q.Options) < minOptions {
		return fmt.Errorf("%w: got %d, want at least %d", ErrTooFewOptions, len(q.Options), minOptions)
	}

	seen := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		label := NormalizeLabel(opt.Label)
		if !validLabel(label) {
			return fmt.Errorf("%w: %q", ErrInvalidLabel, opt.Label)
		}
		if _, ok := seen[label]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateLabel, opt.Label)
		}
		seen[label] = struct{}{}
	}

	if _, ok := seen[NormalizeLabel(q.Answer)]; !ok {
		return fmt.Errorf("%w: %q", ErrAnswerNotOption, q.Answer)
	}
	return nil
}

// OptionByLabel returns the option with the given normalized label.
func (q *Question) OptionByLabel(label string) (Option, bool) {
	label = NormalizeLabel(label)
	for _, opt := range q.Options {
		if NormalizeLabel(opt.Label) == label {
			return opt, true
		}
	}
	return Option{}, false
}

// CorrectOption returns the option named by the answer label. The second
// return is false only for questions that failed validation.
func (q *Question) CorrectOption() (Option, bool) {
	return q.OptionByLabel(q.Answer)
}

// NormalizeLabel lowercases and trims an option label for comparison.
func NormalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// validLabel reports whether label is one or two ASCII letters.
func validLabel(label string) bool {
	if len(label) < 1 || len(label) > 2 {
		return false
	}
	for _, r := range label {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
