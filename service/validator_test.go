package service

import (
	"context"
	"testing"
	"time"

	"github.com/balbonits/drm-broker/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issueValid(t *testing.T, env *testEnv, subject, contentID string, restrictions core.TokenRestrictions, deviceID string) string {
	t.Helper()
	issued, err := env.issuer.Issue(context.Background(), subject, contentID, restrictions, deviceID, time.Hour)
	require.NoError(t, err)
	return issued.Token
}

func TestValidatorAllow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	signed := issueValid(t, env, "u1", "c1", core.TokenRestrictions{}, "device-1")

	decision, err := env.validator.Validate(ctx, signed, "c1", "device-1")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	require.NotNil(t, decision.Token)
	assert.Equal(t, "u1", decision.Token.Subject)

	// A successful validation consumes a concurrency slot.
	count, err := env.counter.Count(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestValidatorInvalidSignature(t *testing.T) {
	env := newTestEnv(t)

	decision, err := env.validator.Validate(context.Background(), "garbage-token", "c1", "")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, core.DenyInvalidSignature, decision.Reason)
}

func TestValidatorExpired(t *testing.T) {
	env := newTestEnv(t)

	now := time.Now()
	signed := env.signAndRecord(t, &core.AccessToken{
		Subject:     "u1",
		ContentID:   "c1",
		IssuedAt:    now.Add(-2 * time.Hour),
		ExpiresAt:   now.Add(-time.Second),
		Fingerprint: core.Fingerprint("u1", "", testSecret),
	})

	decision, err := env.validator.Validate(context.Background(), signed, "c1", "")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, core.DenyExpired, decision.Reason)
}

func TestValidatorExpiryBoundary(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	// Still valid just before expiry.
	now := time.Now()
	signed := env.signAndRecord(t, &core.AccessToken{
		Subject:     "u1",
		ContentID:   "c1",
		IssuedAt:    now.Add(-time.Hour),
		ExpiresAt:   now.Add(5 * time.Second),
		Fingerprint: core.Fingerprint("u1", "", testSecret),
	})

	decision, err := env.validator.Validate(ctx, signed, "c1", "")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestValidatorContentMismatch(t *testing.T) {
	env := newTestEnv(t)

	signed := issueValid(t, env, "u1", "c1", core.TokenRestrictions{}, "")

	decision, err := env.validator.Validate(context.Background(), signed, "c2", "")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, core.DenyContentMismatch, decision.Reason)
}

func TestValidatorDeviceMismatch(t *testing.T) {
	env := newTestEnv(t)

	signed := issueValid(t, env, "u1", "c1", core.TokenRestrictions{}, "device-1")

	decision, err := env.validator.Validate(context.Background(), signed, "c1", "device-2")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, core.DenyDeviceMismatch, decision.Reason)
}

func TestValidatorDeviceOptional(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	// Token bound to a device, caller supplies none: allowed.
	signed := issueValid(t, env, "u1", "c1", core.TokenRestrictions{}, "device-1")
	decision, err := env.validator.Validate(ctx, signed, "c1", "")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	// Token unbound, caller supplies a device: allowed, but the
	// fingerprint recomputation flags it for review.
	unbound := issueValid(t, env, "u2", "c1", core.TokenRestrictions{}, "")
	decision, err = env.validator.Validate(ctx, unbound, "c1", "device-9")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	require.Len(t, env.store.Suspicions(), 1)
	assert.Equal(t, "u2", env.store.Suspicions()[0].Subject)
}

func TestValidatorRevoked(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	signed := issueValid(t, env, "u1", "c1", core.TokenRestrictions{}, "")

	require.NoError(t, env.validator.Revoke(ctx, signed))

	// The signature still verifies; the durable record denies.
	decision, err := env.validator.Validate(ctx, signed, "c1", "")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, core.DenyRevoked, decision.Reason)
}

func TestValidatorUnknownRecord(t *testing.T) {
	env := newTestEnv(t)

	// Signed by our key but never persisted: cannot be confirmed as an
	// issued grant.
	signed, err := env.tokenizer.Sign(&core.AccessToken{
		ID:          "dangling",
		Subject:     "u1",
		ContentID:   "c1",
		IssuedAt:    time.Now(),
		ExpiresAt:   time.Now().Add(time.Hour),
		Fingerprint: core.Fingerprint("u1", "", testSecret),
	})
	require.NoError(t, err)

	decision, err := env.validator.Validate(context.Background(), signed, "c1", "")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, core.DenyRevoked, decision.Reason)
}

func TestValidatorConcurrencyCap(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	signed := issueValid(t, env, "u1", "c1", core.TokenRestrictions{MaxStreams: 2}, "")

	for i := 0; i < 2; i++ {
		decision, err := env.validator.Validate(ctx, signed, "c1", "")
		require.NoError(t, err)
		require.True(t, decision.Allowed)
	}

	decision, err := env.validator.Validate(ctx, signed, "c1", "")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, core.DenyConcurrencyExceeded, decision.Reason)

	// Freeing one slot admits the next request.
	require.NoError(t, env.validator.Release(ctx, "u1"))

	decision, err = env.validator.Validate(ctx, signed, "c1", "")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestValidatorNoStreamLimit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	// Absent restriction means unrestricted, never deny-all.
	signed := issueValid(t, env, "u1", "c1", core.TokenRestrictions{}, "")

	for i := 0; i < 5; i++ {
		decision, err := env.validator.Validate(ctx, signed, "c1", "")
		require.NoError(t, err)
		require.True(t, decision.Allowed)
	}
}

func TestValidatorFingerprintMismatchAllows(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	// A forged fingerprint suggests the token is being shared. Policy is
	// detect-don't-block: record the suspicion and authorize anyway.
	signed := env.signAndRecord(t, &core.AccessToken{
		Subject:     "u1",
		ContentID:   "c1",
		IssuedAt:    time.Now(),
		ExpiresAt:   time.Now().Add(time.Hour),
		Fingerprint: "not-the-real-fingerprint",
	})

	decision, err := env.validator.Validate(ctx, signed, "c1", "")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	suspicions := env.store.Suspicions()
	require.Len(t, suspicions, 1)
	assert.Equal(t, core.SuspicionFingerprintMismatch, suspicions[0].Reason)
	assert.Equal(t, "u1", suspicions[0].Subject)
	assert.Equal(t, "c1", suspicions[0].ContentID)
}

func TestValidatorFingerprintMatchRecordsNothing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	signed := issueValid(t, env, "u1", "c1", core.TokenRestrictions{}, "device-1")

	decision, err := env.validator.Validate(ctx, signed, "c1", "device-1")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Empty(t, env.store.Suspicions())
}

func TestValidatorRevokeExpiredTokenIsNoop(t *testing.T) {
	env := newTestEnv(t)

	now := time.Now()
	signed := env.signAndRecord(t, &core.AccessToken{
		Subject:     "u1",
		ContentID:   "c1",
		IssuedAt:    now.Add(-2 * time.Hour),
		ExpiresAt:   now.Add(-time.Hour),
		Fingerprint: core.Fingerprint("u1", "", testSecret),
	})

	assert.NoError(t, env.validator.Revoke(context.Background(), signed))
}
