package tokenizer

import (
	"github.com/balbonits/drm-broker/core"
	"github.com/golang-jwt/jwt/v5"
)

// LicenseClaims combines standard claims with the playback grant fields.
type LicenseClaims struct {
	jwt.RegisteredClaims
	ContentID    string                 `json:"cid"`
	DeviceID     string                 `json:"did,omitempty"`
	Restrictions core.TokenRestrictions `json:"rst"`
	Fingerprint  string                 `json:"fpt"`
}
