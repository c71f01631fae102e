package core

import "errors"

var (
	// ErrTokenExpired is returned when a token is past its expiry.
	ErrTokenExpired = errors.New("token has expired")

	// ErrInvalidToken is returned when a token cannot be parsed or its
	// signature does not verify.
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidDuration is returned when a requested token duration is
	// zero or negative.
	ErrInvalidDuration = errors.New("token duration must be positive")

	// ErrRecordNotFound is returned by stores when no row matches.
	ErrRecordNotFound = errors.New("record not found")

	// ErrUnsupportedProvider is returned for a provider outside the
	// supported set.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrKeyUnavailable is returned when content key material cannot be
	// fetched or generated. This is an operational failure, not a policy
	// denial.
	ErrKeyUnavailable = errors.New("content key unavailable")

	// ErrSigningKeyUnavailable is returned when the signing key is
	// missing or unusable. Surfaced to callers as service-unavailable.
	ErrSigningKeyUnavailable = errors.New("signing key unavailable")

	// ErrStoreUnavailable wraps durable store failures.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrCacheUnavailable wraps cache failures.
	ErrCacheUnavailable = errors.New("cache unavailable")
)
