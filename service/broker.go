package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/balbonits/drm-broker/core"
	"github.com/balbonits/drm-broker/ports"
	"github.com/google/uuid"
)

// LicenseResult is the outcome of a license request: either an opaque
// license payload or a policy denial.
type LicenseResult struct {
	License  []byte
	Decision core.Decision
}

// Broker translates validated tokens into provider-specific license
// payloads. The validator always runs before the key store is touched,
// and every request leaves an audit row regardless of outcome.
type Broker struct {
	validator *Validator
	keys      *KeyService
	audit     ports.AuditLog
	events    ports.EventPublisher
	log       *slog.Logger
	encoders  map[core.Provider]licenseEncoder
}

// NewBroker creates a license broker over the closed provider set.
func NewBroker(validator *Validator, keys *KeyService, audit ports.AuditLog, events ports.EventPublisher, log *slog.Logger) *Broker {
	return &Broker{
		validator: validator,
		keys:      keys,
		audit:     audit,
		events:    events,
		log:       log,
		encoders: map[core.Provider]licenseEncoder{
			core.ProviderWidevine:  widevineEncoder{},
			core.ProviderPlayReady: playReadyEncoder{},
			core.ProviderFairPlay:  fairPlayEncoder{},
		},
	}
}

// IssueLicense validates the token, fetches the content key and encodes
// it in the provider's license-response shape. rawRequest is the
// provider-specific binary challenge from the player; encoders may fold
// it into their response but the broker never interprets it.
func (b *Broker) IssueLicense(ctx context.Context, signedToken, contentID, provider string, rawRequest []byte) (*LicenseResult, error) {
	// Provider lookup is pure input validation; rejecting an unknown
	// provider must not consume a concurrency slot.
	prov, provErr := core.ParseProvider(provider)
	if provErr != nil {
		b.recordRequest(ctx, "", contentID, provider, core.OutcomeUnsupportedProvider)
		return nil, core.ErrUnsupportedProvider
	}

	decision, err := b.validator.Validate(ctx, signedToken, contentID, "")
	if err != nil {
		return nil, err
	}

	subject := ""
	if decision.Token != nil {
		subject = decision.Token.Subject
	}

	if !decision.Allowed {
		b.recordRequest(ctx, subject, contentID, provider, core.OutcomeDenied)
		return &LicenseResult{Decision: decision}, nil
	}

	key, err := b.keys.GetOrCreateKey(ctx, contentID, prov)
	if err != nil {
		b.recordRequest(ctx, subject, contentID, provider, core.OutcomeKeyUnavailable)
		return nil, fmt.Errorf("%w: %v", core.ErrKeyUnavailable, err)
	}

	encoder := b.encoders[prov]
	license, err := encoder.Encode(key, rawRequest)
	if err != nil {
		b.recordRequest(ctx, subject, contentID, provider, core.OutcomeKeyUnavailable)
		return nil, fmt.Errorf("%w: failed to encode license: %v", core.ErrKeyUnavailable, err)
	}

	rec := b.recordRequest(ctx, subject, contentID, provider, core.OutcomeGranted)
	if rec != nil {
		if err := b.events.PublishLicenseIssued(ctx, rec); err != nil {
			b.log.Warn("failed to publish license event",
				slog.String("subject", subject),
				slog.String("error", err.Error()))
		}
	}

	return &LicenseResult{License: license, Decision: decision}, nil
}

// recordRequest appends the audit row for a license request. Audit
// failures are logged, never propagated; the license outcome stands.
func (b *Broker) recordRequest(ctx context.Context, subject, contentID, provider, outcome string) *core.LicenseRequestRecord {
	rec := &core.LicenseRequestRecord{
		ID:        uuid.New().String(),
		Subject:   subject,
		ContentID: contentID,
		Provider:  provider,
		Outcome:   outcome,
		CreatedAt: time.Now(),
	}

	if err := b.audit.RecordLicenseRequest(ctx, rec); err != nil {
		b.log.Error("failed to record license request",
			slog.String("subject", subject),
			slog.String("content_id", contentID),
			slog.String("error", err.Error()))
		return nil
	}

	return rec
}
