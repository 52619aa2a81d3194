// messages.go contains message templates and formatting for the chat.

package telegram

import (
	"fmt"
	"strings"

	"github.com/optprep/casebot/internal/domain/entities"
	"github.com/optprep/casebot/internal/service"
)

const (
	msgCommandFailed    = "Something went wrong, please try again later."
	msgScoreUnavailable = "Could not load the score right now, please try again later."
	msgExhausted        = "🎉 All case files have been used in this group!\nSend !resetcases to start over from the full pool."
	msgDocUnavailable   = "(case sheet unavailable, proceeding without it)"
)

// formatAnnouncement introduces a new case, with the document link when the
// sheet was published.
func formatAnnouncement(c *entities.Case, docURL string) string {
	var sb strings.Builder
	sb.WriteString("📋 New case file: ")
	sb.WriteString(c.ID)
	if c.Topic != "" {
		sb.WriteString(" — ")
		sb.WriteString(c.Topic)
	}
	sb.WriteString("\n")
	if docURL != "" {
		sb.WriteString("Case sheet: ")
		sb.WriteString(docURL)
	} else {
		sb.WriteString(msgDocUnavailable)
	}
	sb.WriteString("\nAnswer with the option letter (a, b, c, …).")
	return sb.String()
}

// formatQuestion renders a numbered stem followed by lettered options.
func formatQuestion(number, total int, q *entities.Question) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question %d/%d:\n%s\n", number, total, q.Stem)
	for _, opt := range q.Options {
		fmt.Fprintf(&sb, "\n%s) %s", strings.ToUpper(opt.Label), opt.Text)
	}
	return sb.String()
}

// formatEvaluation renders the verdict with the correct answer and
// explanation.
func formatEvaluation(displayName string, q *entities.Question, ev service.Evaluation) string {
	var sb strings.Builder
	if ev.Correct {
		fmt.Fprintf(&sb, "✅ Correct, %s!", displayName)
	} else {
		fmt.Fprintf(&sb, "❌ Not quite, %s.", displayName)
	}
	fmt.Fprintf(&sb, "\nThe answer is %s) %s",
		strings.ToUpper(ev.Answer.Label), ev.Answer.Text)
	if q.Explanation != "" {
		sb.WriteString("\n\n")
		sb.WriteString(q.Explanation)
	}
	return sb.String()
}

// formatCompletion announces the day and lifetime counters after a case.
func formatCompletion(stats entities.DailyStats, answersURL string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🏁 Case complete! Cases finished today: %d, lifetime: %d.",
		stats.Today, stats.Lifetime)
	if answersURL != "" {
		sb.WriteString("\nAnswer key: ")
		sb.WriteString(answersURL)
	}
	sb.WriteString("\nNext case is on its way…")
	return sb.String()
}

// formatScoreReport renders the !score reply.
func formatScoreReport(displayName string, report entities.ScoreReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 %s: %d/%d correct (%.1f%%), %d cases completed.",
		displayName,
		report.User.Correct, report.User.Total,
		report.User.Percentage(),
		report.User.LifetimeCases,
	)
	fmt.Fprintf(&sb, "\nGroup today: %d cases, lifetime: %d.",
		report.Group.Today, report.Group.Lifetime)
	return sb.String()
}

// formatDigest renders the daily summary post.
func formatDigest(stats entities.DailyStats) string {
	return fmt.Sprintf("📊 Daily summary for %s: %d case(s) completed, %d lifetime.",
		stats.Day, stats.Today, stats.Lifetime)
}
