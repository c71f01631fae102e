package core

// DenyReason is the closed taxonomy of validation denials. All denials are
// terminal and non-retryable without caller action.
type DenyReason string

const (
	DenyInvalidSignature    DenyReason = "invalid_signature"
	DenyExpired             DenyReason = "expired"
	DenyContentMismatch     DenyReason = "content_mismatch"
	DenyDeviceMismatch      DenyReason = "device_mismatch"
	DenyRevoked             DenyReason = "revoked"
	DenyConcurrencyExceeded DenyReason = "concurrency_exceeded"
)

// Decision is the outcome of validating a token against a play request.
type Decision struct {
	Allowed bool
	Reason  DenyReason   // set only when denied
	Token   *AccessToken // decoded payload; nil when the token never parsed
}

// Allow builds an allowing decision carrying the decoded token.
func Allow(token *AccessToken) Decision {
	return Decision{Allowed: true, Token: token}
}

// Deny builds a denying decision with the given reason. token may be nil
// when the denial happened before the payload could be decoded.
func Deny(reason DenyReason, token *AccessToken) Decision {
	return Decision{Reason: reason, Token: token}
}
