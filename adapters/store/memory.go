package store

import (
	"context"
	"sync"
	"time"

	"github.com/balbonits/drm-broker/core"
)

// MemoryStore is an in-memory implementation of the durable store
// interfaces. This is primarily intended for testing purposes.
type MemoryStore struct {
	mu              sync.RWMutex
	records         map[string]*core.AccessTokenRecord
	keys            []*core.ContentKey
	licenseRequests []*core.LicenseRequestRecord
	suspicions      []*core.SuspicionRecord
}

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*core.AccessTokenRecord),
	}
}

// SaveRecord stores an access token record.
func (s *MemoryStore) SaveRecord(ctx context.Context, rec *core.AccessTokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

// GetRecord retrieves an access token record by id.
func (s *MemoryStore) GetRecord(ctx context.Context, id string) (*core.AccessTokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, core.ErrRecordNotFound
	}

	cp := *rec
	return &cp, nil
}

// Revoke flips the revoked flag on a stored record.
func (s *MemoryStore) Revoke(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return core.ErrRecordNotFound
	}

	rec.Revoked = true
	return nil
}

// GetActiveKey returns the newest non-expired key for the pair.
func (s *MemoryStore) GetActiveKey(ctx context.Context, contentID string, provider core.Provider) (*core.ContentKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	var newest *core.ContentKey
	for _, key := range s.keys {
		if key.ContentID != contentID || key.Provider != provider || key.Expired(now) {
			continue
		}
		if newest == nil || key.CreatedAt.After(newest.CreatedAt) {
			newest = key
		}
	}

	if newest == nil {
		return nil, core.ErrRecordNotFound
	}

	cp := *newest
	return &cp, nil
}

// SaveKey stores a content key.
func (s *MemoryStore) SaveKey(ctx context.Context, key *core.ContentKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *key
	s.keys = append(s.keys, &cp)
	return nil
}

// RecordLicenseRequest appends a license request row.
func (s *MemoryStore) RecordLicenseRequest(ctx context.Context, rec *core.LicenseRequestRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	s.licenseRequests = append(s.licenseRequests, &cp)
	return nil
}

// RecordSuspicion appends a suspicion row.
func (s *MemoryStore) RecordSuspicion(ctx context.Context, rec *core.SuspicionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	s.suspicions = append(s.suspicions, &cp)
	return nil
}

// LicenseRequests returns a snapshot of the recorded license requests.
// This is useful for assertions in tests.
func (s *MemoryStore) LicenseRequests() []*core.LicenseRequestRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*core.LicenseRequestRecord, len(s.licenseRequests))
	copy(out, s.licenseRequests)
	return out
}

// Suspicions returns a snapshot of the recorded suspicion rows.
func (s *MemoryStore) Suspicions() []*core.SuspicionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*core.SuspicionRecord, len(s.suspicions))
	copy(out, s.suspicions)
	return out
}
