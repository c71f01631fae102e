package core

import "time"

// DefaultTokenDuration is the validity window applied when a caller does not
// request an explicit duration.
const DefaultTokenDuration = 6 * time.Hour

// TokenRestrictions is the playback policy embedded in an access token.
// A zero value for any field means that dimension is unrestricted.
type TokenRestrictions struct {
	MaxStreams             int      `json:"max_streams,omitempty"`
	GeoRegions             []string `json:"geo_regions,omitempty"`
	DeviceTypes            []string `json:"device_types,omitempty"`
	HDCPRequired           bool     `json:"hdcp_required,omitempty"`
	OfflinePlaybackAllowed bool     `json:"offline_playback_allowed,omitempty"`
}

// AccessToken is the issued playback grant. It is immutable once signed;
// any change requires minting a new token.
type AccessToken struct {
	ID           string            // token jti
	Subject      string            // identity of the requesting user
	ContentID    string            // protected asset
	DeviceID     string            // optional device binding, empty if unbound
	IssuedAt     time.Time
	ExpiresAt    time.Time
	Restrictions TokenRestrictions
	Fingerprint  string // derived binding, see Fingerprint
}

// AccessTokenRecord is the durable, mutable side of an issued token. The
// raw signed token is never stored; TokenHash supports revocation lookups.
type AccessTokenRecord struct {
	ID          string
	Subject     string
	ContentID   string
	DeviceID    string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	TokenHash   string
	Fingerprint string
	Revoked     bool
}
