// Package ledger provides the file-backed persistence stores: usage, score
// and daily counters, each kept in one JSON file that is loaded fully and
// rewritten fully on every mutation. A per-store mutex serializes the
// read-modify-write cycle and writes go through a temp file rename, so
// concurrent groups sharing a store cannot lose updates or observe torn
// files.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// DayKey formats a point in time as the UTC calendar-day bucket key.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// groupKey renders a chat-group identifier as a JSON object key.
func groupKey(groupID int64) string {
	return strconv.FormatInt(groupID, 10)
}

// jsonFile is the shared load/save primitive behind every ledger.
type jsonFile struct {
	mu   sync.Mutex
	path string
}

// load reads the file into v. A missing or corrupt file is treated as an
// empty ledger and never fails; the next save simply recreates it.
func (f *jsonFile) load(v any) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return
	}
	_ = json.Unmarshal(data, v)
}

// save atomically rewrites the file with v.
func (f *jsonFile) save(v any) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}
