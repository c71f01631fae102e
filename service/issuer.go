package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/balbonits/drm-broker/core"
	"github.com/balbonits/drm-broker/ports"
	"github.com/google/uuid"
)

const tokenCachePrefix = "token:"

// IssuedToken is the result of minting an access token.
type IssuedToken struct {
	Token           string
	ExpiresAt       time.Time
	LicenseEndpoint string
}

// Issuer mints signed access tokens, persists their durable records and
// seeds the cache with the unsigned payload.
type Issuer struct {
	tokenizer ports.Tokenizer
	records   ports.TokenStore
	cache     ports.Cache
	log       *slog.Logger

	fingerprintSecret string
	licenseEndpoint   string
	defaultDuration   time.Duration
	maxDuration       time.Duration
}

// NewIssuer creates a token issuer.
func NewIssuer(
	tokenizer ports.Tokenizer,
	records ports.TokenStore,
	cache ports.Cache,
	log *slog.Logger,
	fingerprintSecret string,
	licenseEndpoint string,
	defaultDuration time.Duration,
	maxDuration time.Duration,
) *Issuer {
	return &Issuer{
		tokenizer:         tokenizer,
		records:           records,
		cache:             cache,
		log:               log,
		fingerprintSecret: fingerprintSecret,
		licenseEndpoint:   licenseEndpoint,
		defaultDuration:   defaultDuration,
		maxDuration:       maxDuration,
	}
}

// Issue mints a signed access token for a subject and content pair. A zero
// duration selects the default policy value; negative durations are
// rejected, and durations above the policy maximum are clamped to it.
func (s *Issuer) Issue(
	ctx context.Context,
	subject string,
	contentID string,
	restrictions core.TokenRestrictions,
	deviceID string,
	duration time.Duration,
) (*IssuedToken, error) {
	if duration < 0 {
		return nil, core.ErrInvalidDuration
	}
	if duration == 0 {
		duration = s.defaultDuration
	}
	if s.maxDuration > 0 && duration > s.maxDuration {
		duration = s.maxDuration
	}

	now := time.Now()
	token := &core.AccessToken{
		ID:           uuid.New().String(),
		Subject:      subject,
		ContentID:    contentID,
		DeviceID:     deviceID,
		IssuedAt:     now,
		ExpiresAt:    now.Add(duration),
		Restrictions: restrictions,
		Fingerprint:  core.Fingerprint(subject, deviceID, s.fingerprintSecret),
	}

	signed, err := s.tokenizer.Sign(token)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	rec := &core.AccessTokenRecord{
		ID:          token.ID,
		Subject:     token.Subject,
		ContentID:   token.ContentID,
		DeviceID:    token.DeviceID,
		IssuedAt:    token.IssuedAt,
		ExpiresAt:   token.ExpiresAt,
		TokenHash:   hashToken(signed),
		Fingerprint: token.Fingerprint,
	}

	if err := s.records.SaveRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to persist token record: %w", err)
	}

	// Seed the cache with the unsigned payload for the token's remaining
	// validity. The durable record stays authoritative; a cache failure
	// only costs the fast path.
	if payload, err := json.Marshal(token); err == nil {
		if err := s.cache.Set(ctx, tokenCachePrefix+token.ID, string(payload), duration); err != nil {
			s.log.Warn("failed to seed token cache",
				slog.String("token_id", token.ID),
				slog.String("error", err.Error()))
		}
	}

	return &IssuedToken{
		Token:           signed,
		ExpiresAt:       token.ExpiresAt,
		LicenseEndpoint: s.licenseEndpoint,
	}, nil
}

// hashToken produces the one-way hash stored in place of the raw signed
// token.
func hashToken(signed string) string {
	sum := sha256.Sum256([]byte(signed))
	return hex.EncodeToString(sum[:])
}
