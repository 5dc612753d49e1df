//go:build integration

package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cddflow/internal/audit"
	"cddflow/pkg/testutil/containers"
)

type PostgresAuditSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *audit.PostgresStore
	ctx      context.Context
}

func TestPostgresAuditSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresAuditSuite))
}

func (s *PostgresAuditSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = audit.NewPostgresStore(s.postgres.DB)
	s.ctx = context.Background()
	s.Require().NoError(s.store.EnsureSchema(s.ctx))
}

func (s *PostgresAuditSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "audit_events"))
}

func (s *PostgresAuditSuite) TestAppendAndList() {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	events := []audit.Event{
		{Timestamp: base, CustomerID: "CUST-A", ReviewID: "rev-1", Action: audit.ActionReviewReceived, Decision: "MANUAL_REVIEW_REQUIRED", RiskLevel: "HIGH"},
		{Timestamp: base.Add(time.Second), CustomerID: "CUST-A", ReviewID: "rev-1", Action: audit.ActionCaseOpened, CaseID: "42"},
		{Timestamp: base, CustomerID: "CUST-B", ReviewID: "rev-9", Action: audit.ActionReviewFailed, Detail: "vocabulary_error"},
	}
	for _, event := range events {
		s.Require().NoError(s.store.Append(s.ctx, event))
	}

	trail, err := s.store.ListByCustomer(s.ctx, "CUST-A")
	s.Require().NoError(err)
	s.Require().Len(trail, 2)
	s.Equal(audit.ActionReviewReceived, trail[0].Action)
	s.Equal("HIGH", trail[0].RiskLevel)
	s.Equal(audit.ActionCaseOpened, trail[1].Action)
	s.Equal("42", trail[1].CaseID)

	other, err := s.store.ListByCustomer(s.ctx, "CUST-B")
	s.Require().NoError(err)
	s.Require().Len(other, 1)
	s.Equal("vocabulary_error", other[0].Detail)
}

func (s *PostgresAuditSuite) TestListUnknownCustomer() {
	trail, err := s.store.ListByCustomer(s.ctx, "CUST-NONE")
	s.Require().NoError(err)
	s.Empty(trail)
}

func (s *PostgresAuditSuite) TestTrailOrderedByTimestamp() {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Appended out of order; the listing is time-ordered.
	s.Require().NoError(s.store.Append(s.ctx, audit.Event{
		Timestamp: base.Add(time.Minute), CustomerID: "CUST-C", ReviewID: "rev-1", Action: audit.ActionCaseOpened,
	}))
	s.Require().NoError(s.store.Append(s.ctx, audit.Event{
		Timestamp: base, CustomerID: "CUST-C", ReviewID: "rev-1", Action: audit.ActionReviewReceived,
	}))

	trail, err := s.store.ListByCustomer(s.ctx, "CUST-C")
	s.Require().NoError(err)
	s.Require().Len(trail, 2)
	s.Equal(audit.ActionReviewReceived, trail[0].Action)
	s.Equal(audit.ActionCaseOpened, trail[1].Action)
}
