// Package assessment defines the risk assessment produced by the upstream
// reasoning collaborator and its validation at the trust boundary.
//
// The upstream classifier is an untrusted data producer: everything arriving
// here is treated as raw structured data and validated against closed
// vocabularies before any policy evaluation. Construct values via Validate;
// direct casting bypasses the allowlists.
package assessment

import (
	"sort"

	dErrors "cddflow/pkg/domain-errors"
)

// RiskLevel classifies overall customer risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

var validRiskLevels = map[RiskLevel]bool{
	RiskLow:    true,
	RiskMedium: true,
	RiskHigh:   true,
}

// ParseRiskLevel constructs a RiskLevel from external input.
func ParseRiskLevel(s string) (RiskLevel, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "risk_level is required")
	}
	level := RiskLevel(s)
	if !validRiskLevels[level] {
		return "", dErrors.New(dErrors.CodeVocabulary, "risk_level must be one of LOW, MEDIUM, HIGH")
	}
	return level, nil
}

// IsValid checks the risk level against the closed enumeration.
func (l RiskLevel) IsValid() bool {
	return validRiskLevels[l]
}

func (l RiskLevel) String() string {
	return string(l)
}

// Decision is the classifier's recommended handling for the customer.
type Decision string

const (
	DecisionClear          Decision = "CLEAR"
	DecisionManualReview   Decision = "MANUAL_REVIEW_REQUIRED"
	DecisionEDDRecommended Decision = "EDD_RECOMMENDED"
)

var validDecisions = map[Decision]bool{
	DecisionClear:          true,
	DecisionManualReview:   true,
	DecisionEDDRecommended: true,
}

// ParseDecision constructs a Decision from external input.
func ParseDecision(s string) (Decision, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "decision is required")
	}
	d := Decision(s)
	if !validDecisions[d] {
		return "", dErrors.New(dErrors.CodeVocabulary, "decision must be one of CLEAR, MANUAL_REVIEW_REQUIRED, EDD_RECOMMENDED")
	}
	return d, nil
}

// IsValid checks the decision against the closed enumeration.
func (d Decision) IsValid() bool {
	return validDecisions[d]
}

func (d Decision) String() string {
	return string(d)
}

// EvidenceKind names a document or fact the CDD process can require.
type EvidenceKind string

const (
	EvidenceSourceOfFunds   EvidenceKind = "SOURCE_OF_FUNDS"
	EvidenceSourceOfWealth  EvidenceKind = "SOURCE_OF_WEALTH"
	EvidencePEPStatus       EvidenceKind = "PEP_STATUS"
	EvidenceOccupation      EvidenceKind = "OCCUPATION"
	EvidenceAddressProof    EvidenceKind = "ADDRESS_PROOF"
	EvidenceBeneficialOwner EvidenceKind = "BENEFICIAL_OWNER"
)

var validEvidenceKinds = map[EvidenceKind]bool{
	EvidenceSourceOfFunds:   true,
	EvidenceSourceOfWealth:  true,
	EvidencePEPStatus:       true,
	EvidenceOccupation:      true,
	EvidenceAddressProof:    true,
	EvidenceBeneficialOwner: true,
}

// ParseEvidenceKind constructs an EvidenceKind from external input.
func ParseEvidenceKind(s string) (EvidenceKind, error) {
	kind := EvidenceKind(s)
	if !validEvidenceKinds[kind] {
		return "", dErrors.New(dErrors.CodeVocabulary, "unknown evidence kind: "+s)
	}
	return kind, nil
}

// IsValid checks the evidence kind against the closed enumeration.
func (k EvidenceKind) IsValid() bool {
	return validEvidenceKinds[k]
}

func (k EvidenceKind) String() string {
	return string(k)
}

// EvidenceSet is a deduplicated, order-independent set of evidence kinds,
// stored sorted so serialization and dispatch messages are stable.
type EvidenceSet []EvidenceKind

// NewEvidenceSet builds a set from arbitrary input order, deduplicating and
// sorting.
func NewEvidenceSet(kinds ...EvidenceKind) EvidenceSet {
	seen := make(map[EvidenceKind]struct{}, len(kinds))
	set := make(EvidenceSet, 0, len(kinds))
	for _, k := range kinds {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		set = append(set, k)
	}
	sort.Slice(set, func(i, j int) bool { return set[i] < set[j] })
	return set
}

// Contains reports set membership.
func (s EvidenceSet) Contains(kind EvidenceKind) bool {
	for _, k := range s {
		if k == kind {
			return true
		}
	}
	return false
}

// Strings returns the set as plain strings in stable order.
func (s EvidenceSet) Strings() []string {
	out := make([]string, len(s))
	for i, k := range s {
		out[i] = string(k)
	}
	return out
}

// RiskAssessment is a validated assessment. Only Validate constructs one;
// every field has passed schema and vocabulary checks.
//
// Summary and ActionNote are free text from the classifier and are never
// parsed, only carried through to outcome records and case context.
type RiskAssessment struct {
	CustomerID      string      `json:"customer_id"`
	RiskLevel       RiskLevel   `json:"risk_level"`
	Decision        Decision    `json:"decision"`
	ReasonCodes     []string    `json:"reason_codes"`
	MissingEvidence EvidenceSet `json:"missing_evidence"`
	AMLAlertActive  bool        `json:"aml_alert_active"`
	Summary         string      `json:"summary"`
	ActionNote      string      `json:"action_note"`
}
