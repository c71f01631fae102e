package core

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint derives a deterministic binding value from a subject and an
// optional device id, keyed with a service-wide secret. Distinct
// (subject, deviceID) pairs yield distinct values. Pure function, no I/O.
func Fingerprint(subject, deviceID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(subject))
	mac.Write([]byte{0})
	mac.Write([]byte(deviceID))
	return hex.EncodeToString(mac.Sum(nil))
}
