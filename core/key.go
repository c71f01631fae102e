package core

import "time"

// Provider identifies a content-protection scheme with its own license
// wire format. The set is closed; adding a provider means adding an
// encoder, not changing broker control flow.
type Provider string

const (
	ProviderWidevine  Provider = "widevine"
	ProviderPlayReady Provider = "playready"
	ProviderFairPlay  Provider = "fairplay"
)

// Providers lists every supported provider.
var Providers = []Provider{ProviderWidevine, ProviderPlayReady, ProviderFairPlay}

// ParseProvider maps a wire identifier to a Provider.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderWidevine, ProviderPlayReady, ProviderFairPlay:
		return Provider(s), nil
	}
	return "", ErrUnsupportedProvider
}

// ContentKey is per-content encryption key material scoped to one provider.
// The key value is opaque bytes; encoding it for a provider's wire format
// is the license broker's job.
type ContentKey struct {
	KeyID     string
	KeyValue  []byte
	Provider  Provider
	ContentID string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the key is past its validity window at t.
func (k *ContentKey) Expired(t time.Time) bool {
	return !k.ExpiresAt.After(t)
}
