package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/optprep/casebot/internal/domain/entities"
)

var (
	ErrCaseNotFound  = errors.New("case not found")
	ErrNoValidCases  = errors.New("no valid cases in store")
	ErrDuplicateCase = errors.New("duplicate case id")
)

// FileCaseStore serves cases from a single bundled JSON collection. The file
// may hold either one case object or a list of them. Cases are parsed and
// validated once at construction; malformed entries are skipped with a
// warning so one bad record does not take the whole catalog down.
type FileCaseStore struct {
	ids   []string
	cases map[string]*entities.Case
}

// NewFileCaseStore loads and validates the collection at path.
func NewFileCaseStore(path string, logger *zap.Logger) (*FileCaseStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read case file: %w", err)
	}

	cases, err := decodeCases(data)
	if err != nil {
		return nil, fmt.Errorf("parse case file %s: %w", path, err)
	}

	s := &FileCaseStore{cases: make(map[string]*entities.Case, len(cases))}
	for _, c := range cases {
		if err := c.Validate(); err != nil {
			logger.Warn("skipping malformed case",
				zap.String("path", path),
				zap.Error(err),
			)
			continue
		}
		if _, ok := s.cases[c.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCase, c.ID)
		}
		s.cases[c.ID] = c
		s.ids = append(s.ids, c.ID)
	}

	if len(s.ids) == 0 {
		return nil, ErrNoValidCases
	}
	return s, nil
}

// ListIDs returns the identifiers of all valid cases in the collection.
func (s *FileCaseStore) ListIDs(_ context.Context) ([]string, error) {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out, nil
}

// Get retrieves a case by identifier.
func (s *FileCaseStore) Get(_ context.Context, id string) (*entities.Case, error) {
	c, ok := s.cases[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCaseNotFound, id)
	}
	return c, nil
}

// decodeCases accepts either a single case object or a JSON array of cases,
// mirroring the formats the batch renderer accepts.
func decodeCases(data []byte) ([]*entities.Case, error) {
	var list []*entities.Case
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var single entities.Case
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, err
	}
	return []*entities.Case{&single}, nil
}
