package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cddflow/pkg/requestcontext"
)

// PostgresStore persists the ledger in PostgreSQL. The Begin check-and-set
// is a single INSERT ... ON CONFLICT statement, so the atomicity invariant
// rests on the database rather than application locks.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed ledger.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the ledger table if it does not exist. Records are
// append-only at the key level: rows are never deleted.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS case_ledger (
			key        TEXT PRIMARY KEY,
			case_id    TEXT NOT NULL DEFAULT '',
			case_url   TEXT NOT NULL DEFAULT '',
			status     TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("ensure case_ledger schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Begin(ctx context.Context, key Key) (BeginResult, error) {
	now := requestcontext.Now(ctx)

	// Atomic claim: inserts a fresh PENDING row, or flips a FAILED row back
	// to PENDING. Exactly one concurrent caller gets a row back; the rest
	// fall through to the read below.
	var claimed string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO case_ledger (key, status, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (key) DO UPDATE
			SET status = $2, updated_at = $3
			WHERE case_ledger.status = $4
		RETURNING status`,
		key.String(), string(StatusPending), now, string(StatusFailed),
	).Scan(&claimed)
	if err == nil {
		return BeginResult{State: Acquired}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return BeginResult{}, fmt.Errorf("begin ledger key: %w", err)
	}

	record, err := s.Get(ctx, key)
	if err != nil {
		return BeginResult{}, fmt.Errorf("read contended ledger key: %w", err)
	}
	if record.Status == StatusCreated {
		return BeginResult{State: AlreadyCreated, CaseID: record.CaseID, CaseURL: record.CaseURL}, nil
	}
	return BeginResult{State: AlreadyPending}, nil
}

func (s *PostgresStore) Commit(ctx context.Context, key Key, caseID, caseURL string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE case_ledger
		SET status = $2, case_id = $3, case_url = $4, updated_at = $5
		WHERE key = $1 AND status = $6`,
		key.String(), string(StatusCreated), caseID, caseURL,
		requestcontext.Now(ctx), string(StatusPending),
	)
	if err != nil {
		return fmt.Errorf("commit ledger key: %w", err)
	}
	return requireTransition(result, "commit", key)
}

func (s *PostgresStore) Abort(ctx context.Context, key Key) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE case_ledger
		SET status = $2, updated_at = $3
		WHERE key = $1 AND status = $4`,
		key.String(), string(StatusFailed), requestcontext.Now(ctx), string(StatusPending),
	)
	if err != nil {
		return fmt.Errorf("abort ledger key: %w", err)
	}
	return requireTransition(result, "abort", key)
}

func (s *PostgresStore) Get(ctx context.Context, key Key) (*CaseRecord, error) {
	record := CaseRecord{Key: key}
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT case_id, case_url, status, created_at, updated_at
		FROM case_ledger WHERE key = $1`,
		key.String(),
	).Scan(&record.CaseID, &record.CaseURL, &status, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get ledger key: %w", err)
	}
	record.Status = Status(status)
	return &record, nil
}

func (s *PostgresStore) ResolveStale(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE case_ledger
		SET status = $1, updated_at = $2
		WHERE status = $3 AND updated_at < $4`,
		string(StatusFailed), requestcontext.Now(ctx), string(StatusPending), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("resolve stale ledger keys: %w", err)
	}
	resolved, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("resolve stale ledger keys: %w", err)
	}
	return int(resolved), nil
}

func requireTransition(result sql.Result, op string, key Key) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s ledger key: %w", op, err)
	}
	if affected == 0 {
		return errNotPending(op, key)
	}
	return nil
}
