package dispatch

import (
	"cddflow/internal/assessment"
	"cddflow/internal/ledger"
)

// EvidenceOutcome reports what happened on the evidence leg.
type EvidenceOutcome struct {
	Requested bool                   `json:"requested"`
	Missing   assessment.EvidenceSet `json:"missing"`
	Error     string                 `json:"error,omitempty"`
}

// CaseOutcome reports what happened on the case leg.
type CaseOutcome struct {
	// Attempted is true when an OpenCase intent was present.
	Attempted bool `json:"attempted"`
	// Opened is true when this dispatch created the case.
	Opened bool `json:"opened"`
	// Duplicate is true when the ledger already held a created case; the
	// reference below points at the existing case.
	Duplicate bool `json:"duplicate"`
	// InFlight is true when another dispatch for the same review currently
	// holds the ledger key.
	InFlight bool   `json:"in_flight"`
	CaseID   string `json:"case_id,omitempty"`
	CaseURL  string `json:"case_url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Outcome is the final record of one dispatch: exactly what happened, never
// what was merely intended.
type Outcome struct {
	CustomerID string     `json:"customer_id"`
	ReviewID   string     `json:"review_id"`
	Key        ledger.Key `json:"idempotency_key"`

	// Decision is the effective decision label from policy evaluation.
	Decision  assessment.Decision  `json:"decision"`
	RiskLevel assessment.RiskLevel `json:"risk_level"`

	// NoAction is true when the policy deliberately decided to do nothing.
	NoAction bool `json:"no_action"`

	Evidence *EvidenceOutcome `json:"evidence,omitempty"`
	Case     *CaseOutcome     `json:"case,omitempty"`

	Diagnostics []string `json:"diagnostics,omitempty"`
}

// Succeeded reports whether every attempted leg completed without error.
func (o *Outcome) Succeeded() bool {
	if o.Evidence != nil && o.Evidence.Error != "" {
		return false
	}
	if o.Case != nil && o.Case.Error != "" {
		return false
	}
	return true
}
