package store

import (
	"context"
	"testing"
	"time"

	"github.com/balbonits/drm-broker/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRecords(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	rec := &core.AccessTokenRecord{
		ID:        "t1",
		Subject:   "u1",
		ContentID: "c1",
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
		TokenHash: "hash",
	}
	require.NoError(t, s.SaveRecord(ctx, rec))

	got, err := s.GetRecord(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.Subject)
	assert.False(t, got.Revoked)

	require.NoError(t, s.Revoke(ctx, "t1"))

	got, err = s.GetRecord(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, got.Revoked)

	_, err = s.GetRecord(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrRecordNotFound)
}

func TestMemoryStoreActiveKeySelection(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	now := time.Now()
	older := &core.ContentKey{
		KeyID:     "k-old",
		Provider:  core.ProviderWidevine,
		ContentID: "c1",
		CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(time.Hour),
	}
	newer := &core.ContentKey{
		KeyID:     "k-new",
		Provider:  core.ProviderWidevine,
		ContentID: "c1",
		CreatedAt: now.Add(-time.Hour),
		ExpiresAt: now.Add(2 * time.Hour),
	}
	require.NoError(t, s.SaveKey(ctx, older))
	require.NoError(t, s.SaveKey(ctx, newer))

	// The newest live key supersedes without deleting the older row.
	got, err := s.GetActiveKey(ctx, "c1", core.ProviderWidevine)
	require.NoError(t, err)
	assert.Equal(t, "k-new", got.KeyID)

	_, err = s.GetActiveKey(ctx, "c1", core.ProviderFairPlay)
	assert.ErrorIs(t, err, core.ErrRecordNotFound)
}

func TestMemoryStoreAuditAppendOnly(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.RecordLicenseRequest(ctx, &core.LicenseRequestRecord{
		ID: "r1", Subject: "u1", ContentID: "c1", Provider: "widevine",
		Outcome: core.OutcomeGranted, CreatedAt: time.Now(),
	}))
	require.NoError(t, s.RecordSuspicion(ctx, &core.SuspicionRecord{
		ID: "s1", Subject: "u1", ContentID: "c1",
		Reason: core.SuspicionFingerprintMismatch, CreatedAt: time.Now(),
	}))

	assert.Len(t, s.LicenseRequests(), 1)
	assert.Len(t, s.Suspicions(), 1)
}
