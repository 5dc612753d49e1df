// Package adapters bridges concrete channel clients to the dispatch ports.
package adapters

import (
	"context"

	"cddflow/internal/channels/zendesk"
	"cddflow/internal/dispatch"
)

// ZendeskCaseCreator adapts the Zendesk client to the dispatch CaseCreator
// port.
type ZendeskCaseCreator struct {
	client *zendesk.Client
}

// NewZendeskCaseCreator wraps a Zendesk client.
func NewZendeskCaseCreator(client *zendesk.Client) *ZendeskCaseCreator {
	return &ZendeskCaseCreator{client: client}
}

func (a *ZendeskCaseCreator) Create(ctx context.Context, req dispatch.CaseRequest) (*dispatch.CaseRef, error) {
	ref, err := a.client.Create(ctx, zendesk.Request{
		CustomerID:     req.CustomerID,
		Decision:       req.Decision,
		RiskLevel:      req.RiskLevel,
		ReasonCodes:    req.ReasonCodes,
		AMLAlertActive: req.AMLAlertActive,
		EvidenceGap:    req.EvidenceGap,
		Summary:        req.Summary,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}
	return &dispatch.CaseRef{ID: ref.ID, URL: ref.URL}, nil
}
