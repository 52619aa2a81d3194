package ledger

import "context"

// UsageStore persists, per group, the set of case identifiers already
// served. The set grows until Reset clears it.
type UsageStore struct {
	file jsonFile
}

// NewUsageStore creates a usage ledger backed by the JSON file at path.
func NewUsageStore(path string) *UsageStore {
	return &UsageStore{file: jsonFile{path: path}}
}

// Used returns the set of case identifiers already served to the group.
func (s *UsageStore) Used(_ context.Context, groupID int64) (map[string]struct{}, error) {
	s.file.mu.Lock()
	defer s.file.mu.Unlock()

	data := s.loadLocked()
	used := make(map[string]struct{})
	for _, id := range data[groupKey(groupID)] {
		used[id] = struct{}{}
	}
	return used, nil
}

// MarkUsed records that a case has been served to the group and persists the
// ledger immediately.
func (s *UsageStore) MarkUsed(_ context.Context, groupID int64, caseID string) error {
	s.file.mu.Lock()
	defer s.file.mu.Unlock()

	data := s.loadLocked()
	key := groupKey(groupID)
	for _, id := range data[key] {
		if id == caseID {
			return nil
		}
	}
	data[key] = append(data[key], caseID)
	return s.file.save(data)
}

// Reset clears the group's used set unconditionally, making every case
// eligible again. Score and daily ledgers are untouched.
func (s *UsageStore) Reset(_ context.Context, groupID int64) error {
	s.file.mu.Lock()
	defer s.file.mu.Unlock()

	data := s.loadLocked()
	delete(data, groupKey(groupID))
	return s.file.save(data)
}

func (s *UsageStore) loadLocked() map[string][]string {
	data := make(map[string][]string)
	s.file.load(&data)
	return data
}
