package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/optprep/casebot/internal/domain/entities"
)

// DirCaseStore serves cases from a directory of per-case JSON files. The
// directory is re-scanned on every listing, so files dropped in after startup
// become eligible without a restart. Files that fail to parse or validate are
// skipped with a warning.
type DirCaseStore struct {
	dir    string
	logger *zap.Logger

	mu    sync.Mutex
	paths map[string]string // case id -> file path, refreshed by scan
}

// NewDirCaseStore creates a store over dir. The directory must exist; it may
// be empty, in which case every pick reports exhaustion until files appear.
func NewDirCaseStore(dir string, logger *zap.Logger) (*DirCaseStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat case directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("case path %s is not a directory", dir)
	}
	return &DirCaseStore{
		dir:    dir,
		logger: logger,
		paths:  make(map[string]string),
	}, nil
}

// ListIDs re-scans the directory and returns the identifiers of all valid
// cases found, in stable order.
func (s *DirCaseStore) ListIDs(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("scan case directory: %w", err)
	}

	paths := make(map[string]string, len(entries))
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		c, err := s.loadFile(path)
		if err != nil {
			s.logger.Warn("skipping malformed case file",
				zap.String("path", path),
				zap.Error(err),
			)
			continue
		}
		if prev, ok := paths[c.ID]; ok {
			s.logger.Warn("duplicate case id, keeping earlier file",
				zap.String("case_id", c.ID),
				zap.String("kept", prev),
				zap.String("ignored", path),
			)
			continue
		}
		paths[c.ID] = path
		ids = append(ids, c.ID)
	}
	sort.Strings(ids)

	s.mu.Lock()
	s.paths = paths
	s.mu.Unlock()

	return ids, nil
}

// Get retrieves a case by identifier using the mapping from the last scan,
// falling back to a fresh scan for ids not seen yet.
func (s *DirCaseStore) Get(ctx context.Context, id string) (*entities.Case, error) {
	s.mu.Lock()
	path, ok := s.paths[id]
	s.mu.Unlock()

	if !ok {
		if _, err := s.ListIDs(ctx); err != nil {
			return nil, err
		}
		s.mu.Lock()
		path, ok = s.paths[id]
		s.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrCaseNotFound, id)
		}
	}
	return s.loadFile(path)
}

func (s *DirCaseStore) loadFile(path string) (*entities.Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read case file: %w", err)
	}

	var c entities.Case
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse case file: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
