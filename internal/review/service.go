// Package review orchestrates one CDD review trigger: validate the incoming
// assessment, run the action policy, dispatch the intents, and record the
// audit trail.
package review

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"cddflow/internal/assessment"
	"cddflow/internal/audit"
	"cddflow/internal/dispatch"
	"cddflow/internal/ledger"
	"cddflow/internal/policy"
	"cddflow/internal/review/metrics"
	dErrors "cddflow/pkg/domain-errors"
)

// Streamer publishes audit events to a streaming sink (Kafka in
// production). Optional; best-effort.
type Streamer interface {
	Publish(ctx context.Context, event audit.Event)
}

// Service runs reviews. Validation and policy are pure; all side effects
// flow through the dispatch coordinator and the audit publisher.
type Service struct {
	coordinator *dispatch.Coordinator
	ledger      ledger.Store
	audit       *audit.Publisher
	stream      Streamer
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
}

// Option configures the Service.
type Option func(*Service)

// WithStreamer attaches a streaming audit sink.
func WithStreamer(stream Streamer) Option {
	return func(s *Service) {
		s.stream = stream
	}
}

// NewService constructs a review service.
func NewService(coordinator *dispatch.Coordinator, ledgerStore ledger.Store, auditPub *audit.Publisher, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		coordinator: coordinator,
		ledger:      ledgerStore,
		audit:       auditPub,
		logger:      logger,
		metrics:     m,
		tracer:      otel.Tracer("cddflow/review"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one review. reviewID may be empty, in which case a fresh
// identity is generated; retries of the same review must pass the same
// reviewID or they count as new reviews and may open a second case.
//
// Validation and policy errors abort the review before any side effect is
// attempted. Channel failures are recorded in the returned outcome, not
// returned as errors.
func (s *Service) Run(ctx context.Context, reviewID string, raw assessment.Raw) (*dispatch.Outcome, error) {
	if reviewID == "" {
		reviewID = uuid.NewString()
	}

	ctx, span := s.tracer.Start(ctx, "cdd.review",
		trace.WithAttributes(attribute.String("review.id", reviewID)),
	)
	defer span.End()

	start := time.Now()

	validated, err := assessment.Validate(raw)
	if err != nil {
		s.metrics.IncFailure(string(dErrors.CodeOf(err)))
		s.emit(ctx, audit.Event{
			CustomerID: raw.CustomerID,
			ReviewID:   reviewID,
			Action:     audit.ActionReviewFailed,
			Detail:     err.Error(),
		})
		return nil, err
	}

	span.SetAttributes(
		attribute.String("customer.id", validated.CustomerID),
		attribute.String("risk.level", validated.RiskLevel.String()),
	)

	s.emit(ctx, audit.Event{
		CustomerID: validated.CustomerID,
		ReviewID:   reviewID,
		Action:     audit.ActionReviewReceived,
		Decision:   validated.Decision.String(),
		RiskLevel:  validated.RiskLevel.String(),
	})

	evaluation := policy.Decide(validated)

	outcome, err := s.coordinator.Dispatch(ctx, dispatch.Review{
		CustomerID: validated.CustomerID,
		ReviewID:   reviewID,
		Assessment: validated,
		Evaluation: evaluation,
	})
	if err != nil {
		s.metrics.IncFailure(string(dErrors.CodeOf(err)))
		s.emit(ctx, audit.Event{
			CustomerID: validated.CustomerID,
			ReviewID:   reviewID,
			Action:     audit.ActionReviewFailed,
			Detail:     err.Error(),
		})
		return nil, err
	}

	s.recordOutcome(ctx, outcome)
	s.metrics.IncOutcome(outcome.Decision.String(), outcome.RiskLevel.String())
	s.metrics.ObserveLatency(time.Since(start))

	s.logger.InfoContext(ctx, "review completed",
		"customer_id", outcome.CustomerID,
		"review_id", outcome.ReviewID,
		"decision", outcome.Decision,
		"risk_level", outcome.RiskLevel,
		"succeeded", outcome.Succeeded(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return outcome, nil
}

// CaseLookup returns the ledger record for a review, for support tooling.
func (s *Service) CaseLookup(ctx context.Context, customerID, reviewID string) (*ledger.CaseRecord, error) {
	return s.ledger.Get(ctx, ledger.NewKey(customerID, reviewID))
}

// AuditTrail returns the audit trail for a customer.
func (s *Service) AuditTrail(ctx context.Context, customerID string) ([]audit.Event, error) {
	return s.audit.List(ctx, customerID)
}

// recordOutcome emits one audit event per thing that actually happened.
func (s *Service) recordOutcome(ctx context.Context, outcome *dispatch.Outcome) {
	if outcome.Evidence != nil && outcome.Evidence.Requested {
		s.emit(ctx, audit.Event{
			CustomerID: outcome.CustomerID,
			ReviewID:   outcome.ReviewID,
			Action:     audit.ActionEvidenceRequested,
			Decision:   outcome.Decision.String(),
			RiskLevel:  outcome.RiskLevel.String(),
			Detail:     "missing: " + strings.Join(outcome.Evidence.Missing.Strings(), ", "),
		})
	}
	if outcome.Case != nil {
		switch {
		case outcome.Case.Opened:
			s.emit(ctx, audit.Event{
				CustomerID: outcome.CustomerID,
				ReviewID:   outcome.ReviewID,
				Action:     audit.ActionCaseOpened,
				Decision:   outcome.Decision.String(),
				RiskLevel:  outcome.RiskLevel.String(),
				CaseID:     outcome.Case.CaseID,
			})
		case outcome.Case.Duplicate:
			s.emit(ctx, audit.Event{
				CustomerID: outcome.CustomerID,
				ReviewID:   outcome.ReviewID,
				Action:     audit.ActionCaseDuplicate,
				CaseID:     outcome.Case.CaseID,
			})
		}
	}
}

// emit writes to the durable trail and, when configured, the stream. Audit
// failures are logged, never allowed to fail the review.
func (s *Service) emit(ctx context.Context, event audit.Event) {
	if err := s.audit.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "audit emit failed",
			"action", event.Action,
			"customer_id", event.CustomerID,
			"error", err,
		)
	}
	if s.stream != nil {
		s.stream.Publish(ctx, event)
	}
}
