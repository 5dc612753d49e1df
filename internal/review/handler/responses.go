package handler

import (
	"time"

	"cddflow/internal/ledger"
)

// CaseRecordResponse is the HTTP response for GET /reviews/{customer_id}/{review_id}/case.
type CaseRecordResponse struct {
	Key       string    `json:"idempotency_key"`
	CaseID    string    `json:"case_id,omitempty"`
	CaseURL   string    `json:"case_url,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FromCaseRecord converts a ledger record to an HTTP response.
func FromCaseRecord(record *ledger.CaseRecord) *CaseRecordResponse {
	return &CaseRecordResponse{
		Key:       record.Key.String(),
		CaseID:    record.CaseID,
		CaseURL:   record.CaseURL,
		Status:    string(record.Status),
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}
