package dispatch

import (
	"context"

	"cddflow/internal/assessment"
)

// EvidenceSender is the evidence-request channel (Slack in production).
// Message wording is the channel's concern; the coordinator supplies only
// the customer identity and the missing set.
type EvidenceSender interface {
	Send(ctx context.Context, customerID string, missing assessment.EvidenceSet) error
}

// CaseRequest is the structured payload for opening a case.
type CaseRequest struct {
	CustomerID     string
	Decision       assessment.Decision
	RiskLevel      assessment.RiskLevel
	ReasonCodes    []string
	AMLAlertActive bool
	EvidenceGap    assessment.EvidenceSet
	Summary        string
	IdempotencyKey string
}

// CaseRef identifies a case created in the external system.
type CaseRef struct {
	ID  string
	URL string
}

// CaseCreator is the case-management channel (Zendesk in production). Must
// be safe to call at most once per acquired ledger key; the coordinator
// guarantees it never calls Create without holding the key.
type CaseCreator interface {
	Create(ctx context.Context, req CaseRequest) (*CaseRef, error)
}
