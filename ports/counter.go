package ports

import "context"

// StreamCounter tracks live streams per subject. Entries expire after a
// ceiling TTL so clients that crash without decrementing self-heal; the
// count is therefore approximate under failure, never wrong under normal
// operation.
type StreamCounter interface {
	Increment(ctx context.Context, subject string) error
	Decrement(ctx context.Context, subject string) error
	Count(ctx context.Context, subject string) (int, error)
}
