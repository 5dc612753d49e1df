package ledger

import (
	"context"
	"sync"
	"time"

	"cddflow/pkg/requestcontext"
)

// MemoryStore implements Store with an in-process map. Suitable for unit
// tests and single-process development; production deployments use the
// Postgres or Redis store so idempotency survives restarts.
type MemoryStore struct {
	mu      sync.Mutex
	records map[Key]*CaseRecord
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[Key]*CaseRecord)}
}

func (s *MemoryStore) Begin(ctx context.Context, key Key) (BeginResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := requestcontext.Now(ctx)

	record, ok := s.records[key]
	if !ok {
		s.records[key] = &CaseRecord{
			Key:       key,
			Status:    StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return BeginResult{State: Acquired}, nil
	}

	switch record.Status {
	case StatusCreated:
		return BeginResult{State: AlreadyCreated, CaseID: record.CaseID, CaseURL: record.CaseURL}, nil
	case StatusPending:
		return BeginResult{State: AlreadyPending}, nil
	default: // FAILED: the key is free to retry
		record.Status = StatusPending
		record.UpdatedAt = now
		return BeginResult{State: Acquired}, nil
	}
}

func (s *MemoryStore) Commit(ctx context.Context, key Key, caseID, caseURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[key]
	if !ok || record.Status != StatusPending {
		return errNotPending("commit", key)
	}

	record.Status = StatusCreated
	record.CaseID = caseID
	record.CaseURL = caseURL
	record.UpdatedAt = requestcontext.Now(ctx)
	return nil
}

func (s *MemoryStore) Abort(ctx context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[key]
	if !ok || record.Status != StatusPending {
		return errNotPending("abort", key)
	}

	record.Status = StatusFailed
	record.UpdatedAt = requestcontext.Now(ctx)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key Key) (*CaseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *MemoryStore) ResolveStale(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := requestcontext.Now(ctx)
	resolved := 0
	for _, record := range s.records {
		if record.Status == StatusPending && record.UpdatedAt.Before(cutoff) {
			record.Status = StatusFailed
			record.UpdatedAt = now
			resolved++
		}
	}
	return resolved, nil
}
