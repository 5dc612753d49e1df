// Package policy maps a validated risk assessment to the set of actions the
// service must take. This is pure domain logic - no I/O, no side effects.
package policy

import (
	"cddflow/internal/assessment"
	dErrors "cddflow/pkg/domain-errors"
)

// IntentKind discriminates intent types in outcome records and logs.
type IntentKind string

const (
	KindRequestEvidence IntentKind = "REQUEST_EVIDENCE"
	KindOpenCase        IntentKind = "OPEN_CASE"
	KindNoAction        IntentKind = "NO_ACTION"
)

// Intent is one action the dispatch layer must execute. Intents are
// immutable once computed.
type Intent interface {
	Kind() IntentKind
}

// RequestEvidence asks the evidence channel to request the missing items
// from the customer.
type RequestEvidence struct {
	Missing assessment.EvidenceSet
}

func (RequestEvidence) Kind() IntentKind { return KindRequestEvidence }

// OpenCase opens a formal review case in the case-management channel.
//
// EvidenceGap records evidence still missing when the case was mandated by
// the override rule. A case opened despite incomplete evidence must carry
// the gap in its context so reviewers see it.
type OpenCase struct {
	ReasonCodes    []string
	RiskLevel      assessment.RiskLevel
	AMLAlertActive bool
	EvidenceGap    assessment.EvidenceSet
}

func (OpenCase) Kind() IntentKind { return KindOpenCase }

// NoAction records that the policy deliberately decided to do nothing.
type NoAction struct{}

func (NoAction) Kind() IntentKind { return KindNoAction }

// Evaluation is the full result of one policy run: the ordered intents plus
// diagnostics about upstream reasoning inconsistencies, and the decision
// label the outcome summary should report.
type Evaluation struct {
	Intents []Intent

	// EffectiveDecision is the decision label for the outcome summary. When
	// the evidence rule suppresses an escalation, it stays
	// MANUAL_REVIEW_REQUIRED regardless of the classifier's label.
	EffectiveDecision assessment.Decision

	// Diagnostics surface upstream inconsistencies (for example CLEAR with
	// missing evidence). They never change which intents fire.
	Diagnostics []string
}

// Decide evaluates the action rules in fixed precedence order. Later rules
// can add intents but never remove ones added earlier. Intent order is
// fixed: RequestEvidence always precedes OpenCase, so dispatch requests
// evidence before (or concurrently with, never after) opening a case.
//
// Rules:
//  1. Evidence rule: missing evidence emits RequestEvidence and provisionally
//     suppresses case opening.
//  2. Normal escalation: complete evidence plus MANUAL_REVIEW_REQUIRED or
//     EDD_RECOMMENDED emits OpenCase.
//  3. Mandatory override: HIGH risk or an active AML alert emits OpenCase
//     regardless of rules 1-2. This is the only rule allowed to coexist
//     with RequestEvidence.
//  4. Otherwise NoAction (covers CLEAR).
func Decide(a *assessment.RiskAssessment) Evaluation {
	eval := Evaluation{EffectiveDecision: a.Decision}

	evidenceMissing := len(a.MissingEvidence) > 0
	escalation := a.Decision == assessment.DecisionManualReview ||
		a.Decision == assessment.DecisionEDDRecommended
	override := a.RiskLevel == assessment.RiskHigh || a.AMLAlertActive

	// Rule 1: evidence completeness is independent of the decision label,
	// so this fires even for CLEAR. That combination is an upstream
	// inconsistency worth surfacing, not hiding.
	if evidenceMissing {
		eval.Intents = append(eval.Intents, RequestEvidence{Missing: a.MissingEvidence})
		// Suppressed escalations stay MANUAL_REVIEW_REQUIRED in the summary
		// unless the mandatory override reinstates the case below.
		if escalation && !override {
			eval.EffectiveDecision = assessment.DecisionManualReview
		}
		if a.Decision == assessment.DecisionClear {
			eval.Diagnostics = append(eval.Diagnostics,
				"decision is CLEAR but missing_evidence is non-empty; upstream reasoning inconsistency")
		}
	}

	// Rule 2: normal escalation, only when evidence is complete.
	caseOpened := false
	if !evidenceMissing && escalation {
		eval.Intents = append(eval.Intents, OpenCase{
			ReasonCodes:    a.ReasonCodes,
			RiskLevel:      a.RiskLevel,
			AMLAlertActive: a.AMLAlertActive,
		})
		caseOpened = true
	}

	// Rule 3: mandatory override. Fires even with an active evidence gap,
	// in which case the gap travels with the case.
	if override && !caseOpened {
		openCase := OpenCase{
			ReasonCodes:    a.ReasonCodes,
			RiskLevel:      a.RiskLevel,
			AMLAlertActive: a.AMLAlertActive,
		}
		if evidenceMissing {
			openCase.EvidenceGap = a.MissingEvidence
		}
		eval.Intents = append(eval.Intents, openCase)
		caseOpened = true
	}

	// Rule 4: nothing triggered.
	if len(eval.Intents) == 0 {
		eval.Intents = append(eval.Intents, NoAction{})
	}

	return eval
}

// Verify checks that an intent combination is one the rules above can
// produce. The dispatch layer calls this before executing; a failure is a
// defect, not a retryable fault.
func Verify(intents []Intent) error {
	if len(intents) == 0 {
		return dErrors.New(dErrors.CodePolicy, "empty intent set")
	}

	var evidence, cases, none int
	for _, intent := range intents {
		switch intent.(type) {
		case RequestEvidence:
			evidence++
		case OpenCase:
			cases++
		case NoAction:
			none++
		default:
			return dErrors.New(dErrors.CodePolicy, "unknown intent type")
		}
	}

	if evidence > 1 || cases > 1 || none > 1 {
		return dErrors.New(dErrors.CodePolicy, "duplicate intents in one evaluation")
	}
	if none == 1 && len(intents) > 1 {
		return dErrors.New(dErrors.CodePolicy, "NoAction cannot coexist with other intents")
	}
	return nil
}
