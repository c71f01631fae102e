package service

import (
	"context"
	"testing"
	"time"

	"github.com/balbonits/drm-broker/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuerIssue(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	issued, err := env.issuer.Issue(ctx, "u1", "c1", core.TokenRestrictions{MaxStreams: 2}, "device-1", time.Hour)
	require.NoError(t, err)

	assert.NotEmpty(t, issued.Token)
	assert.Equal(t, testEndpoint, issued.LicenseEndpoint)
	assert.WithinDuration(t, time.Now().Add(time.Hour), issued.ExpiresAt, 2*time.Second)

	// The signed token carries the payload including the fingerprint.
	token, err := env.tokenizer.Parse(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", token.Subject)
	assert.Equal(t, "c1", token.ContentID)
	assert.Equal(t, "device-1", token.DeviceID)
	assert.Equal(t, 2, token.Restrictions.MaxStreams)
	assert.Equal(t, core.Fingerprint("u1", "device-1", testSecret), token.Fingerprint)
	assert.True(t, token.ExpiresAt.After(token.IssuedAt))

	// The durable record exists, is not revoked, and never stores the
	// raw signed token.
	rec, err := env.store.GetRecord(ctx, token.ID)
	require.NoError(t, err)
	assert.False(t, rec.Revoked)
	assert.NotEmpty(t, rec.TokenHash)
	assert.NotEqual(t, issued.Token, rec.TokenHash)

	// The cache holds the unsigned payload keyed by token id.
	_, err = env.cache.Get(ctx, tokenCachePrefix+token.ID)
	assert.NoError(t, err)
}

func TestIssuerDefaultDuration(t *testing.T) {
	env := newTestEnv(t)

	issued, err := env.issuer.Issue(context.Background(), "u1", "c1", core.TokenRestrictions{}, "", 0)
	require.NoError(t, err)

	assert.WithinDuration(t, time.Now().Add(6*time.Hour), issued.ExpiresAt, 2*time.Second)
}

func TestIssuerNegativeDuration(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.issuer.Issue(context.Background(), "u1", "c1", core.TokenRestrictions{}, "", -time.Hour)
	assert.ErrorIs(t, err, core.ErrInvalidDuration)
}

func TestIssuerClampsToMaxDuration(t *testing.T) {
	env := newTestEnv(t)

	issued, err := env.issuer.Issue(context.Background(), "u1", "c1", core.TokenRestrictions{}, "", 100*time.Hour)
	require.NoError(t, err)

	assert.WithinDuration(t, time.Now().Add(24*time.Hour), issued.ExpiresAt, 2*time.Second)
}

func TestIssuerDistinctTokenIDs(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	first, err := env.issuer.Issue(ctx, "u1", "c1", core.TokenRestrictions{}, "", time.Hour)
	require.NoError(t, err)
	second, err := env.issuer.Issue(ctx, "u1", "c1", core.TokenRestrictions{}, "", time.Hour)
	require.NoError(t, err)

	a, err := env.tokenizer.Parse(first.Token)
	require.NoError(t, err)
	b, err := env.tokenizer.Parse(second.Token)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}
