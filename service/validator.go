package service

import (
	"context"
	"crypto/hmac"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/balbonits/drm-broker/core"
	"github.com/balbonits/drm-broker/ports"
	"github.com/google/uuid"
)

const revokedCachePrefix = "revoked:"

// Validator checks signed tokens against play requests. Validation is
// self-contained given the durable store and cache; no step performs a
// provider network call.
type Validator struct {
	tokenizer ports.Tokenizer
	records   ports.TokenStore
	cache     ports.Cache
	counter   ports.StreamCounter
	audit     ports.AuditLog
	events    ports.EventPublisher
	log       *slog.Logger

	fingerprintSecret string
}

// NewValidator creates a token validator.
func NewValidator(
	tokenizer ports.Tokenizer,
	records ports.TokenStore,
	cache ports.Cache,
	counter ports.StreamCounter,
	audit ports.AuditLog,
	events ports.EventPublisher,
	log *slog.Logger,
	fingerprintSecret string,
) *Validator {
	return &Validator{
		tokenizer:         tokenizer,
		records:           records,
		cache:             cache,
		counter:           counter,
		audit:             audit,
		events:            events,
		log:               log,
		fingerprintSecret: fingerprintSecret,
	}
}

// Validate runs the ordered validation pipeline, short-circuiting on the
// first failing check. Policy denials come back as a Decision; only
// operational failures are returned as errors.
func (v *Validator) Validate(ctx context.Context, signedToken, contentID, deviceID string) (core.Decision, error) {
	// Signature and expiry. The parser verifies the signature before it
	// validates claims, so a tampered token never reads as merely expired.
	token, err := v.tokenizer.Parse(signedToken)
	if err != nil {
		if errors.Is(err, core.ErrTokenExpired) {
			return core.Deny(core.DenyExpired, nil), nil
		}
		return core.Deny(core.DenyInvalidSignature, nil), nil
	}

	if !token.ExpiresAt.After(time.Now()) {
		return core.Deny(core.DenyExpired, token), nil
	}

	if token.ContentID != contentID {
		return core.Deny(core.DenyContentMismatch, token), nil
	}

	if token.DeviceID != "" && deviceID != "" && token.DeviceID != deviceID {
		return core.Deny(core.DenyDeviceMismatch, token), nil
	}

	revoked, err := v.isRevoked(ctx, token.ID)
	if err != nil {
		return core.Decision{}, err
	}
	if revoked {
		return core.Deny(core.DenyRevoked, token), nil
	}

	if max := token.Restrictions.MaxStreams; max > 0 {
		count, err := v.counter.Count(ctx, token.Subject)
		if err != nil {
			return core.Decision{}, fmt.Errorf("failed to read stream count: %w", err)
		}
		if count >= max {
			return core.Deny(core.DenyConcurrencyExceeded, token), nil
		}
	}

	// Fingerprint mismatch is detect-don't-block: record it for offline
	// review and keep going.
	bindDevice := deviceID
	if bindDevice == "" {
		bindDevice = token.DeviceID
	}
	expected := core.Fingerprint(token.Subject, bindDevice, v.fingerprintSecret)
	if !hmac.Equal([]byte(expected), []byte(token.Fingerprint)) {
		v.recordSuspicion(ctx, token)
	}

	// The caller owns the matching decrement at stream end.
	if err := v.counter.Increment(ctx, token.Subject); err != nil {
		return core.Decision{}, fmt.Errorf("failed to increment stream count: %w", err)
	}

	return core.Allow(token), nil
}

// Release lowers a subject's live stream count when a stream ends.
func (v *Validator) Release(ctx context.Context, subject string) error {
	if err := v.counter.Decrement(ctx, subject); err != nil {
		return fmt.Errorf("failed to decrement stream count: %w", err)
	}
	return nil
}

// Revoke marks a token's durable record revoked and seeds the revocation
// fast path in the cache for the token's remaining lifetime.
func (v *Validator) Revoke(ctx context.Context, signedToken string) error {
	token, err := v.tokenizer.Parse(signedToken)
	if err != nil && !errors.Is(err, core.ErrTokenExpired) {
		return err
	}
	if err != nil {
		// Already expired; nothing left to revoke.
		return nil
	}

	if err := v.records.Revoke(ctx, token.ID); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	ttl := time.Until(token.ExpiresAt)
	if ttl > 0 {
		if err := v.cache.Set(ctx, revokedCachePrefix+token.ID, "1", ttl); err != nil {
			v.log.Warn("failed to cache revocation",
				slog.String("token_id", token.ID),
				slog.String("error", err.Error()))
		}
	}

	return nil
}

// isRevoked consults the cache fast path first, then the authoritative
// durable record.
func (v *Validator) isRevoked(ctx context.Context, tokenID string) (bool, error) {
	if _, err := v.cache.Get(ctx, revokedCachePrefix+tokenID); err == nil {
		return true, nil
	} else if !errors.Is(err, core.ErrRecordNotFound) {
		// Cache down is not fatal; the durable record decides.
		v.log.Warn("revocation cache read failed", slog.String("error", err.Error()))
	}

	rec, err := v.records.GetRecord(ctx, tokenID)
	if err != nil {
		if errors.Is(err, core.ErrRecordNotFound) {
			// A verified token without a record cannot be confirmed as
			// ours; treat it like a revoked grant.
			return true, nil
		}
		return false, fmt.Errorf("failed to load token record: %w", err)
	}

	return rec.Revoked, nil
}

// recordSuspicion writes the fingerprint mismatch to the audit log and
// event stream. Neither failure blocks the validation.
func (v *Validator) recordSuspicion(ctx context.Context, token *core.AccessToken) {
	rec := &core.SuspicionRecord{
		ID:        uuid.New().String(),
		Subject:   token.Subject,
		ContentID: token.ContentID,
		Reason:    core.SuspicionFingerprintMismatch,
		Detail:    fmt.Sprintf("token %s", token.ID),
		CreatedAt: time.Now(),
	}

	if err := v.audit.RecordSuspicion(ctx, rec); err != nil {
		v.log.Error("failed to record suspicion",
			slog.String("subject", token.Subject),
			slog.String("error", err.Error()))
	}

	if err := v.events.PublishSuspicion(ctx, rec); err != nil {
		v.log.Warn("failed to publish suspicion event",
			slog.String("subject", token.Subject),
			slog.String("error", err.Error()))
	}
}
