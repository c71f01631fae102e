package ports

import "github.com/balbonits/drm-broker/core"

// Tokenizer converts between the domain access token and its signed wire
// form.
type Tokenizer interface {
	// Sign serializes and signs the token with the service's private key.
	Sign(token *core.AccessToken) (string, error)

	// Parse verifies the signature and decodes the payload. Returns
	// core.ErrTokenExpired for an expired token and core.ErrInvalidToken
	// for anything malformed or unverifiable.
	Parse(signed string) (*core.AccessToken, error)
}
