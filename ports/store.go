package ports

import (
	"context"

	"github.com/balbonits/drm-broker/core"
)

// TokenStore persists access token records. The durable record is the
// authority for revocation; the cache is only an optimization.
type TokenStore interface {
	SaveRecord(ctx context.Context, rec *core.AccessTokenRecord) error
	GetRecord(ctx context.Context, id string) (*core.AccessTokenRecord, error)
	Revoke(ctx context.Context, id string) error
}

// KeyStore persists per-content encryption keys.
type KeyStore interface {
	// GetActiveKey returns the live, non-expired key for the pair, or
	// core.ErrRecordNotFound when none exists.
	GetActiveKey(ctx context.Context, contentID string, provider core.Provider) (*core.ContentKey, error)
	SaveKey(ctx context.Context, key *core.ContentKey) error
}

// AuditLog appends license request and suspicion rows. Rows are never
// updated or deleted by this service.
type AuditLog interface {
	RecordLicenseRequest(ctx context.Context, rec *core.LicenseRequestRecord) error
	RecordSuspicion(ctx context.Context, rec *core.SuspicionRecord) error
}
