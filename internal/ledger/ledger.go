// Package ledger tracks, per customer review, whether a case has already
// been opened. It is the single source of truth for idempotent case
// dispatch: the coordinator must never infer "already created" from its own
// transient memory.
package ledger

import (
	"context"
	"time"

	dErrors "cddflow/pkg/domain-errors"
)

// Key identifies one customer review in the ledger. It is derived from the
// customer and review identities only - never from risk level or decision,
// which may legitimately be re-derived for the same review.
type Key string

// NewKey builds the deterministic ledger key for a review.
func NewKey(customerID, reviewID string) Key {
	return Key(customerID + ":" + reviewID)
}

func (k Key) String() string {
	return string(k)
}

// Status is the lifecycle state of a case record.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusCreated Status = "CREATED"
	StatusFailed  Status = "FAILED"
)

// CaseRecord is the persisted state for one ledger key. Records are created
// on the first dispatch attempt and never deleted (audit retention); the
// only mutations are the PENDING/CREATED/FAILED transitions and recording
// the external case identifier on commit.
type CaseRecord struct {
	Key       Key
	CaseID    string
	CaseURL   string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeginState is the outcome of an atomic Begin.
type BeginState string

const (
	// Acquired means this caller owns the key and must call Commit or
	// Abort. Only one caller ever holds a key in this state.
	Acquired BeginState = "ACQUIRED"

	// AlreadyPending means another dispatch for the same review is in
	// flight.
	AlreadyPending BeginState = "ALREADY_PENDING"

	// AlreadyCreated means a case already exists for this review; the
	// result carries its identifier.
	AlreadyCreated BeginState = "ALREADY_CREATED"
)

// BeginResult reports the outcome of Begin. CaseID and CaseURL are set only
// for AlreadyCreated.
type BeginResult struct {
	State   BeginState
	CaseID  string
	CaseURL string
}

// ErrNotFound is returned by Get for keys with no record.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "ledger record not found")

// errNotPending marks Commit/Abort on a key that is not PENDING: an
// ordering bug in the caller, not a retryable fault.
func errNotPending(op string, key Key) error {
	return dErrors.New(dErrors.CodeState, op+" on non-pending ledger key "+key.String())
}

// Store is the durable ledger. Begin is the sole synchronization point in
// the system and must be an atomic check-and-set: of any number of
// concurrent callers on a fresh (or FAILED) key, exactly one receives
// Acquired.
//
// Invariant: for any key, at most one CaseRecord ever reaches CREATED.
type Store interface {
	// Begin atomically claims the key. On Acquired the record is PENDING
	// and the caller must resolve it via Commit or Abort.
	Begin(ctx context.Context, key Key) (BeginResult, error)

	// Commit transitions PENDING to CREATED and records the external case
	// identifier. Returns a state error if the key is not PENDING.
	Commit(ctx context.Context, key Key, caseID, caseURL string) error

	// Abort transitions PENDING to FAILED so a future Begin can retry.
	// Returns a state error if the key is not PENDING.
	Abort(ctx context.Context, key Key) error

	// Get returns the record for a key, or ErrNotFound.
	Get(ctx context.Context, key Key) (*CaseRecord, error)

	// ResolveStale transitions PENDING records last touched before cutoff
	// to FAILED, returning how many were resolved. Used by the recovery
	// sweeper for keys abandoned between Begin and Commit/Abort.
	ResolveStale(ctx context.Context, cutoff time.Time) (int, error)
}
