package service

import (
	"strings"

	"github.com/optprep/casebot/internal/domain/entities"
)

// Evaluation is the outcome of scoring one reply against a question.
type Evaluation struct {
	Correct bool
	ByLabel bool   // the reply was an option label rather than free text
	Given   string // resolved answer text the participant gave
	Answer  entities.Option
}

// Evaluate scores a raw reply against the question. The reply is trimmed and
// lowercased; a one-or-two-letter token matching an option label is treated
// as a label answer, anything else as free-form text compared against the
// correct option's display text. Unrecognized input is simply incorrect,
// never an error.
func Evaluate(q *entities.Question, raw string) Evaluation {
	text := normalizeText(raw)
	correct, hasCorrect := q.CorrectOption()

	ev := Evaluation{Answer: correct}

	if opt, ok := q.OptionByLabel(text); ok {
		ev.ByLabel = true
		ev.Given = opt.Text
		if hasCorrect {
			ev.Correct = entities.NormalizeLabel(opt.Label) == entities.NormalizeLabel(q.Answer)
		}
		return ev
	}

	ev.Given = text
	if hasCorrect {
		ev.Correct = text == normalizeText(correct.Text)
	} else {
		// No correct-label metadata: fall back to the stored answer string.
		ev.Correct = text == normalizeText(q.Answer)
	}
	return ev
}

// normalizeText trims and lowercases a reply for comparison.
func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
