package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore persists audit events in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed audit store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the audit table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_events (
			id          BIGSERIAL PRIMARY KEY,
			timestamp   TIMESTAMPTZ NOT NULL,
			customer_id TEXT NOT NULL,
			review_id   TEXT NOT NULL,
			action      TEXT NOT NULL,
			decision    TEXT NOT NULL DEFAULT '',
			risk_level  TEXT NOT NULL DEFAULT '',
			case_id     TEXT NOT NULL DEFAULT '',
			detail      TEXT NOT NULL DEFAULT ''
		)`)
	if err != nil {
		return fmt.Errorf("ensure audit_events schema: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS audit_events_customer_idx
		ON audit_events (customer_id, timestamp)`)
	if err != nil {
		return fmt.Errorf("ensure audit_events index: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (timestamp, customer_id, review_id, action, decision, risk_level, case_id, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.Timestamp, event.CustomerID, event.ReviewID, string(event.Action),
		event.Decision, event.RiskLevel, event.CaseID, event.Detail,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByCustomer(ctx context.Context, customerID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, customer_id, review_id, action, decision, risk_level, case_id, detail
		FROM audit_events
		WHERE customer_id = $1
		ORDER BY timestamp, id`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		var action string
		if err := rows.Scan(&event.Timestamp, &event.CustomerID, &event.ReviewID, &action,
			&event.Decision, &event.RiskLevel, &event.CaseID, &event.Detail); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Action = Action(action)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}
