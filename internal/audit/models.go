// Package audit captures an append-only trail of review actions. Events are
// emitted from the review service, persisted through a Store, and optionally
// published to Kafka for downstream compliance consumers.
package audit

import "time"

// Action names the audited event kinds.
type Action string

const (
	ActionReviewReceived    Action = "review_received"
	ActionEvidenceRequested Action = "evidence_requested"
	ActionCaseOpened        Action = "case_opened"
	ActionCaseDuplicate     Action = "case_duplicate"
	ActionReviewFailed      Action = "review_failed"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	CustomerID string    `json:"customer_id"`
	ReviewID   string    `json:"review_id"`
	Action     Action    `json:"action"`
	Decision   string    `json:"decision,omitempty"`
	RiskLevel  string    `json:"risk_level,omitempty"`
	CaseID     string    `json:"case_id,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}
