package ledger

import (
	"context"
	"time"

	"github.com/optprep/casebot/internal/domain/entities"
)

// DailyStore persists per-group case-completion counts bucketed by UTC
// calendar day, plus a lifetime total.
type DailyStore struct {
	file jsonFile
	now  func() time.Time
}

type dailyEntry struct {
	Days     map[string]int `json:"days"`
	Lifetime int            `json:"lifetime"`
}

// NewDailyStore creates a daily counter ledger backed by the JSON file at
// path.
func NewDailyStore(path string) *DailyStore {
	return &DailyStore{file: jsonFile{path: path}, now: time.Now}
}

// IncrementToday adds one completed case to the group's bucket for the
// current UTC day and to its lifetime total, returning the updated stats.
func (s *DailyStore) IncrementToday(_ context.Context, groupID int64) (entities.DailyStats, error) {
	s.file.mu.Lock()
	defer s.file.mu.Unlock()

	day := DayKey(s.now())
	data := s.loadLocked()
	entry := data[groupKey(groupID)]
	if entry.Days == nil {
		entry.Days = make(map[string]int)
	}
	entry.Days[day]++
	entry.Lifetime++
	data[groupKey(groupID)] = entry

	stats := entities.DailyStats{Day: day, Today: entry.Days[day], Lifetime: entry.Lifetime}
	return stats, s.file.save(data)
}

// Stats returns the group's completion count for the given UTC day key and
// its lifetime total.
func (s *DailyStore) Stats(_ context.Context, groupID int64, day string) (entities.DailyStats, error) {
	s.file.mu.Lock()
	defer s.file.mu.Unlock()

	data := s.loadLocked()
	entry := data[groupKey(groupID)]
	return entities.DailyStats{Day: day, Today: entry.Days[day], Lifetime: entry.Lifetime}, nil
}

func (s *DailyStore) loadLocked() map[string]dailyEntry {
	data := make(map[string]dailyEntry)
	s.file.load(&data)
	return data
}
