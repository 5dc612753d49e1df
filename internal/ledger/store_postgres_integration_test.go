//go:build integration

package ledger_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cddflow/internal/ledger"
	dErrors "cddflow/pkg/domain-errors"
	"cddflow/pkg/requestcontext"
	"cddflow/pkg/testutil/containers"
)

type PostgresLedgerSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *ledger.PostgresStore
	ctx      context.Context
}

func TestPostgresLedgerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresLedgerSuite))
}

func (s *PostgresLedgerSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = ledger.NewPostgresStore(s.postgres.DB)
	s.ctx = context.Background()
	s.Require().NoError(s.store.EnsureSchema(s.ctx))
}

func (s *PostgresLedgerSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "case_ledger"))
}

func (s *PostgresLedgerSuite) TestLifecycle() {
	key := ledger.NewKey("CUST-1", "rev-1")

	result, err := s.store.Begin(s.ctx, key)
	s.Require().NoError(err)
	s.Equal(ledger.Acquired, result.State)

	s.Require().NoError(s.store.Commit(s.ctx, key, "42", "https://cases.example.com/42"))

	record, err := s.store.Get(s.ctx, key)
	s.Require().NoError(err)
	s.Equal(ledger.StatusCreated, record.Status)
	s.Equal("42", record.CaseID)

	result, err = s.store.Begin(s.ctx, key)
	s.Require().NoError(err)
	s.Equal(ledger.AlreadyCreated, result.State)
	s.Equal("42", result.CaseID)
	s.Equal("https://cases.example.com/42", result.CaseURL)
}

func (s *PostgresLedgerSuite) TestAbortAllowsRetry() {
	key := ledger.NewKey("CUST-2", "rev-1")

	_, err := s.store.Begin(s.ctx, key)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Abort(s.ctx, key))

	record, err := s.store.Get(s.ctx, key)
	s.Require().NoError(err)
	s.Equal(ledger.StatusFailed, record.Status)

	result, err := s.store.Begin(s.ctx, key)
	s.Require().NoError(err)
	s.Equal(ledger.Acquired, result.State)
}

func (s *PostgresLedgerSuite) TestTransitionGuards() {
	key := ledger.NewKey("CUST-3", "rev-1")

	err := s.store.Commit(s.ctx, key, "1", "url")
	s.Require().Error(err)
	s.Equal(dErrors.CodeState, dErrors.CodeOf(err))

	_, err = s.store.Begin(s.ctx, key)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Commit(s.ctx, key, "1", "url"))

	err = s.store.Abort(s.ctx, key)
	s.Require().Error(err)
	s.Equal(dErrors.CodeState, dErrors.CodeOf(err))
}

// The ON CONFLICT upsert must let exactly one of many concurrent callers
// claim a fresh key.
func (s *PostgresLedgerSuite) TestConcurrentBegin() {
	const callers = 32
	key := ledger.NewKey("CUST-RACE", "rev-1")

	var wg sync.WaitGroup
	results := make([]ledger.BeginResult, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.store.Begin(s.ctx, key)
		}(i)
	}
	wg.Wait()

	acquired := 0
	for i := 0; i < callers; i++ {
		s.Require().NoError(errs[i])
		if results[i].State == ledger.Acquired {
			acquired++
		} else {
			s.Equal(ledger.AlreadyPending, results[i].State)
		}
	}
	s.Equal(1, acquired)
}

func (s *PostgresLedgerSuite) TestResolveStale() {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	stale := ledger.NewKey("CUST-STALE", "rev-1")
	_, err := s.store.Begin(requestcontext.WithTime(s.ctx, base), stale)
	s.Require().NoError(err)

	fresh := ledger.NewKey("CUST-FRESH", "rev-1")
	_, err = s.store.Begin(requestcontext.WithTime(s.ctx, base.Add(10*time.Minute)), fresh)
	s.Require().NoError(err)

	resolved, err := s.store.ResolveStale(s.ctx, base.Add(5*time.Minute))
	s.Require().NoError(err)
	s.Equal(1, resolved)

	record, err := s.store.Get(s.ctx, stale)
	s.Require().NoError(err)
	s.Equal(ledger.StatusFailed, record.Status)

	record, err = s.store.Get(s.ctx, fresh)
	s.Require().NoError(err)
	s.Equal(ledger.StatusPending, record.Status)
}
