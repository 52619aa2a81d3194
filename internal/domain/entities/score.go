package entities

// Score is the per-group, per-user record of answered questions.
// Correct never exceeds Total.
type Score struct {
	DisplayName   string `json:"display_name,omitempty"`
	Correct       int    `json:"correct"`
	Total         int    `json:"total"`
	LifetimeCases int    `json:"lifetime_cases"`
}

// Percentage returns the correct/total ratio as a percentage, or zero for an
// empty record.
func (s Score) Percentage() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Total) * 100
}

// DailyStats is the per-group completion count for one UTC day plus the
// lifetime total.
type DailyStats struct {
	Day      string // UTC date, YYYY-MM-DD
	Today    int
	Lifetime int
}

// ScoreReport bundles a user's score with the group's daily stats for the
// !score command reply.
type ScoreReport struct {
	User  Score
	Group DailyStats
}
