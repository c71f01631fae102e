package ports

import (
	"context"

	"github.com/balbonits/drm-broker/core"
)

// EventPublisher notifies other instances about audit-relevant events.
// Publishing is best-effort; failures are logged, never propagated.
type EventPublisher interface {
	PublishSuspicion(ctx context.Context, rec *core.SuspicionRecord) error
	PublishLicenseIssued(ctx context.Context, rec *core.LicenseRequestRecord) error
}
