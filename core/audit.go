package core

import "time"

// License request outcomes recorded in the audit log.
const (
	OutcomeGranted             = "granted"
	OutcomeDenied              = "denied"
	OutcomeUnsupportedProvider = "unsupported_provider"
	OutcomeKeyUnavailable      = "key_unavailable"
)

// SuspicionFingerprintMismatch is the reason recorded when a token's
// fingerprint does not match the one recomputed at validation time.
const SuspicionFingerprintMismatch = "fingerprint_mismatch"

// LicenseRequestRecord is an append-only audit row written for every
// license request, granted or not.
type LicenseRequestRecord struct {
	ID        string
	Subject   string
	ContentID string
	Provider  string
	Outcome   string
	CreatedAt time.Time
}

// SuspicionRecord is an append-only audit row for advisory security
// events. Recording one never fails the operation that produced it.
type SuspicionRecord struct {
	ID        string
	Subject   string
	ContentID string
	Reason    string
	Detail    string
	CreatedAt time.Time
}
