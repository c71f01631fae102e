package ports

import (
	"context"
	"time"
)

// Cache is the ephemeral key-value store used for token payload seeding,
// revocation fast paths and content key read-through.
type Cache interface {
	// Get retrieves a value, returning core.ErrRecordNotFound on miss.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value with a TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
