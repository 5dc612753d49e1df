package assessment

import (
	"strings"

	dErrors "cddflow/pkg/domain-errors"
)

// Raw is the untrusted wire shape of an assessment before validation.
// Booleans are pointers so an absent field is distinguishable from false.
type Raw struct {
	CustomerID      string   `json:"customer_id"`
	RiskLevel       string   `json:"risk_level"`
	Decision        string   `json:"decision"`
	ReasonCodes     []string `json:"reason_codes"`
	MissingEvidence []string `json:"missing_evidence"`
	AMLAlertActive  *bool    `json:"aml_alert_active"`
	Summary         string   `json:"summary"`
	ActionNote      string   `json:"action_note"`
}

// Validate checks schema and vocabulary and returns a normalized
// RiskAssessment. Missing evidence is deduplicated into a sorted set; reason
// codes keep their order (open vocabulary, order is meaningful). Pure, no
// side effects.
//
// Errors: CodeValidation for absent/empty required fields, CodeVocabulary
// for values outside a closed enumeration. Out-of-vocabulary values are
// rejected, never coerced.
func Validate(raw Raw) (*RiskAssessment, error) {
	customerID := strings.TrimSpace(raw.CustomerID)
	if customerID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "customer_id is required")
	}

	riskLevel, err := ParseRiskLevel(raw.RiskLevel)
	if err != nil {
		return nil, err
	}

	decision, err := ParseDecision(raw.Decision)
	if err != nil {
		return nil, err
	}

	if raw.AMLAlertActive == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "aml_alert_active is required")
	}

	kinds := make([]EvidenceKind, 0, len(raw.MissingEvidence))
	for _, entry := range raw.MissingEvidence {
		kind, err := ParseEvidenceKind(entry)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}

	reasonCodes := raw.ReasonCodes
	if reasonCodes == nil {
		reasonCodes = []string{}
	}

	return &RiskAssessment{
		CustomerID:      customerID,
		RiskLevel:       riskLevel,
		Decision:        decision,
		ReasonCodes:     reasonCodes,
		MissingEvidence: NewEvidenceSet(kinds...),
		AMLAlertActive:  *raw.AMLAlertActive,
		Summary:         raw.Summary,
		ActionNote:      raw.ActionNote,
	}, nil
}
