package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/optprep/casebot/internal/domain/entities"
)

// ErrNoCasesAvailable signals that every known case has already been served
// to the group. The caller announces exhaustion; !resetcases widens the pool
// again.
var ErrNoCasesAvailable = errors.New("no cases available")

// CaseSelector picks an unused case uniformly at random for a group. The
// catalog is consulted fresh on every pick so drop-in cases become eligible
// without a restart; cases that fail to load are skipped with a warning and
// another draw is made.
type CaseSelector struct {
	source CaseSource
	usage  UsageLedger
	logger *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewCaseSelector creates a selector over the given catalog and usage ledger.
func NewCaseSelector(source CaseSource, usage UsageLedger, logger *zap.Logger) *CaseSelector {
	return &CaseSelector{
		source: source,
		usage:  usage,
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Pick returns one case not yet served to the group, or ErrNoCasesAvailable
// when the pool is exhausted.
func (s *CaseSelector) Pick(ctx context.Context, groupID int64) (*entities.Case, error) {
	ids, err := s.source.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}

	used, err := s.usage.Used(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("read usage ledger: %w", err)
	}

	pool := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := used[id]; !ok {
			pool = append(pool, id)
		}
	}

	for len(pool) > 0 {
		s.mu.Lock()
		i := s.rng.Intn(len(pool))
		s.mu.Unlock()

		id := pool[i]
		c, err := s.source.Get(ctx, id)
		if err != nil {
			s.logger.Warn("skipping unloadable case",
				zap.String("case_id", id),
				zap.Error(err),
			)
			pool = append(pool[:i], pool[i+1:]...)
			continue
		}
		return c, nil
	}

	return nil, ErrNoCasesAvailable
}
