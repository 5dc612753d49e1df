// Package dispatch executes the intents produced by policy evaluation
// against the evidence and case channels, consulting the idempotency ledger
// so a case is created at most once per review.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"cddflow/internal/assessment"
	"cddflow/internal/dispatch/metrics"
	"cddflow/internal/ledger"
	"cddflow/internal/policy"
	dErrors "cddflow/pkg/domain-errors"
)

// Review carries everything the coordinator needs for one dispatch: the
// review identity, the validated assessment, and the policy evaluation.
type Review struct {
	CustomerID string
	ReviewID   string
	Assessment *assessment.RiskAssessment
	Evaluation policy.Evaluation
}

// Coordinator executes intents. The two legs are independent side effects:
// an evidence-send failure never blocks the case leg and vice versa. The
// ledger is the only source of truth for "case already opened"; the
// coordinator holds no state of its own.
type Coordinator struct {
	evidence EvidenceSender
	cases    CaseCreator
	ledger   ledger.Store
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// New constructs a dispatch coordinator.
func New(evidence EvidenceSender, cases CaseCreator, ledgerStore ledger.Store, logger *slog.Logger, m *metrics.Metrics) *Coordinator {
	return &Coordinator{
		evidence: evidence,
		cases:    cases,
		ledger:   ledgerStore,
		logger:   logger,
		metrics:  m,
	}
}

// Dispatch executes the review's intents and aggregates what actually
// happened into an Outcome.
//
// Errors are returned only for policy violations (an intent combination the
// rules cannot produce) and ledger state violations; both indicate bugs and
// abort without further side effects. Channel failures are isolated per leg
// and recorded in the outcome.
func (c *Coordinator) Dispatch(ctx context.Context, review Review) (*Outcome, error) {
	if err := policy.Verify(review.Evaluation.Intents); err != nil {
		return nil, err
	}

	start := time.Now()
	outcome := &Outcome{
		CustomerID:  review.CustomerID,
		ReviewID:    review.ReviewID,
		Key:         ledger.NewKey(review.CustomerID, review.ReviewID),
		Decision:    review.Evaluation.EffectiveDecision,
		RiskLevel:   review.Assessment.RiskLevel,
		Diagnostics: review.Evaluation.Diagnostics,
	}

	var evidenceIntent *policy.RequestEvidence
	var caseIntent *policy.OpenCase
	for _, intent := range review.Evaluation.Intents {
		switch it := intent.(type) {
		case policy.RequestEvidence:
			evidenceIntent = &it
		case policy.OpenCase:
			caseIntent = &it
		case policy.NoAction:
			outcome.NoAction = true
		}
	}

	// Legs run concurrently and never cancel each other: each records its
	// result in the outcome and only ledger state violations propagate.
	var g errgroup.Group
	var stateErr error

	if evidenceIntent != nil {
		intent := *evidenceIntent
		g.Go(func() error {
			outcome.Evidence = c.runEvidenceLeg(ctx, review.CustomerID, intent)
			return nil
		})
	}

	if caseIntent != nil {
		intent := *caseIntent
		g.Go(func() error {
			outcome.Case, stateErr = c.runCaseLeg(ctx, review, outcome.Key, intent)
			return nil
		})
	}

	_ = g.Wait()

	c.metrics.ObserveDispatchLatency(time.Since(start))

	if stateErr != nil {
		return nil, stateErr
	}
	return outcome, nil
}

func (c *Coordinator) runEvidenceLeg(ctx context.Context, customerID string, intent policy.RequestEvidence) *EvidenceOutcome {
	leg := &EvidenceOutcome{Missing: intent.Missing}

	if err := c.evidence.Send(ctx, customerID, intent.Missing); err != nil {
		leg.Error = err.Error()
		c.metrics.IncLegResult("evidence", "failed")
		if c.logger != nil {
			c.logger.ErrorContext(ctx, "evidence request failed",
				"customer_id", customerID,
				"missing", intent.Missing.Strings(),
				"error", err,
			)
		}
		return leg
	}

	leg.Requested = true
	c.metrics.IncLegResult("evidence", "ok")
	return leg
}

// runCaseLeg opens a case under ledger protection. The returned error is
// non-nil only for ledger state violations, which indicate a coordination
// bug and must fail the whole dispatch loudly.
func (c *Coordinator) runCaseLeg(ctx context.Context, review Review, key ledger.Key, intent policy.OpenCase) (*CaseOutcome, error) {
	leg := &CaseOutcome{Attempted: true}

	begin, err := c.ledger.Begin(ctx, key)
	if err != nil {
		leg.Error = err.Error()
		c.metrics.IncLegResult("case", "failed")
		if c.logger != nil {
			c.logger.ErrorContext(ctx, "ledger begin failed", "key", key, "error", err)
		}
		return leg, nil
	}

	switch begin.State {
	case ledger.AlreadyCreated:
		// Idempotent short-circuit: the case exists, report its reference
		// without contacting the case channel.
		leg.Duplicate = true
		leg.CaseID = begin.CaseID
		leg.CaseURL = begin.CaseURL
		c.metrics.IncLegResult("case", "duplicate")
		return leg, nil

	case ledger.AlreadyPending:
		leg.InFlight = true
		c.metrics.IncLegResult("case", "in_flight")
		return leg, nil
	}

	// Acquired: we own the key and must resolve it.
	ref, err := c.cases.Create(ctx, CaseRequest{
		CustomerID:     review.CustomerID,
		Decision:       review.Evaluation.EffectiveDecision,
		RiskLevel:      intent.RiskLevel,
		ReasonCodes:    intent.ReasonCodes,
		AMLAlertActive: intent.AMLAlertActive,
		EvidenceGap:    intent.EvidenceGap,
		Summary:        review.Assessment.Summary,
		IdempotencyKey: key.String(),
	})
	if err != nil {
		leg.Error = err.Error()
		c.metrics.IncLegResult("case", "failed")
		if c.logger != nil {
			c.logger.ErrorContext(ctx, "case creation failed", "key", key, "error", err)
		}
		if abortErr := c.ledger.Abort(ctx, key); abortErr != nil {
			return leg, dErrors.Wrap(dErrors.CodeState, "abort after case failure", abortErr)
		}
		return leg, nil
	}

	if err := c.ledger.Commit(ctx, key, ref.ID, ref.URL); err != nil {
		// The external case exists but the ledger could not record it. A
		// retry would duplicate the case, so this surfaces as a fatal
		// coordination failure.
		leg.Error = err.Error()
		return leg, dErrors.Wrap(dErrors.CodeState, "commit after case creation", err)
	}

	leg.Opened = true
	leg.CaseID = ref.ID
	leg.CaseURL = ref.URL
	c.metrics.IncLegResult("case", "ok")
	if c.logger != nil {
		c.logger.InfoContext(ctx, "case opened",
			"key", key,
			"case_id", ref.ID,
			"risk_level", intent.RiskLevel,
		)
	}
	return leg, nil
}
