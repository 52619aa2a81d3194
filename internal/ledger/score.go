package ledger

import (
	"context"
	"strconv"

	"github.com/optprep/casebot/internal/domain/entities"
)

// ScoreStore persists per-group, per-user answer statistics and lifetime
// case completions.
type ScoreStore struct {
	file jsonFile
}

// NewScoreStore creates a score ledger backed by the JSON file at path.
func NewScoreStore(path string) *ScoreStore {
	return &ScoreStore{file: jsonFile{path: path}}
}

// Get returns the user's score entry, a zero entry if none exists yet.
func (s *ScoreStore) Get(_ context.Context, groupID, userID int64) (entities.Score, error) {
	s.file.mu.Lock()
	defer s.file.mu.Unlock()

	data := s.loadLocked()
	return data[groupKey(groupID)][userKey(userID)], nil
}

// RecordAnswer increments the user's total, and correct when the answer was
// right, then persists the ledger. The updated entry is returned.
func (s *ScoreStore) RecordAnswer(_ context.Context, groupID, userID int64, displayName string, correct bool) (entities.Score, error) {
	s.file.mu.Lock()
	defer s.file.mu.Unlock()

	data := s.loadLocked()
	entry := s.entryLocked(data, groupID, userID)
	entry.Total++
	if correct {
		entry.Correct++
	}
	if displayName != "" {
		entry.DisplayName = displayName
	}
	data[groupKey(groupID)][userKey(userID)] = entry
	return entry, s.file.save(data)
}

// RecordCaseCompletion credits one finished case to the user.
func (s *ScoreStore) RecordCaseCompletion(_ context.Context, groupID, userID int64) error {
	s.file.mu.Lock()
	defer s.file.mu.Unlock()

	data := s.loadLocked()
	entry := s.entryLocked(data, groupID, userID)
	entry.LifetimeCases++
	data[groupKey(groupID)][userKey(userID)] = entry
	return s.file.save(data)
}

func (s *ScoreStore) entryLocked(data map[string]map[string]entities.Score, groupID, userID int64) entities.Score {
	group, ok := data[groupKey(groupID)]
	if !ok {
		group = make(map[string]entities.Score)
		data[groupKey(groupID)] = group
	}
	return group[userKey(userID)]
}

func (s *ScoreStore) loadLocked() map[string]map[string]entities.Score {
	data := make(map[string]map[string]entities.Score)
	s.file.load(&data)
	return data
}

func userKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
