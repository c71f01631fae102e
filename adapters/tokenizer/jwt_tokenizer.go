package tokenizer

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/balbonits/drm-broker/core"
	"github.com/balbonits/drm-broker/ports"
	"github.com/golang-jwt/jwt/v5"
)

const audienceLicense = "drm:license"

// JWTTokenizer implements the Tokenizer interface using ES256 JWTs.
// It signs with the active private key and verifies against the active
// public key plus an optional previous public key, selected by the kid
// header, so already-issued tokens survive a key rotation.
type JWTTokenizer struct {
	signKey    *ecdsa.PrivateKey
	activeKID  string
	publicKeys map[string]*ecdsa.PublicKey
}

// NewJWTTokenizer creates a tokenizer for the active key pair. prevPublic
// may be nil when no rotation grace period is needed.
func NewJWTTokenizer(signKey *ecdsa.PrivateKey, prevPublic *ecdsa.PublicKey) (ports.Tokenizer, error) {
	if signKey == nil {
		return nil, core.ErrSigningKeyUnavailable
	}

	activeKID, err := keyID(&signKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key id: %w", err)
	}

	keys := map[string]*ecdsa.PublicKey{activeKID: &signKey.PublicKey}
	if prevPublic != nil {
		prevKID, err := keyID(prevPublic)
		if err != nil {
			return nil, fmt.Errorf("failed to derive previous key id: %w", err)
		}
		keys[prevKID] = prevPublic
	}

	return &JWTTokenizer{
		signKey:    signKey,
		activeKID:  activeKID,
		publicKeys: keys,
	}, nil
}

// Sign serializes the access token into a signed JWT.
func (j *JWTTokenizer) Sign(token *core.AccessToken) (string, error) {
	claims := LicenseClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   token.Subject,
			ID:        token.ID,
			ExpiresAt: jwt.NewNumericDate(token.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(token.IssuedAt),
			Audience:  jwt.ClaimStrings{audienceLicense},
		},
		ContentID:    token.ContentID,
		DeviceID:     token.DeviceID,
		Restrictions: token.Restrictions,
		Fingerprint:  token.Fingerprint,
	}

	jwtToken := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	jwtToken.Header["kid"] = j.activeKID

	signed, err := jwtToken.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrSigningKeyUnavailable, err)
	}

	return signed, nil
}

// Parse verifies a signed token and decodes it back into the domain form.
func (j *JWTTokenizer) Parse(signed string) (*core.AccessToken, error) {
	token, err := jwt.ParseWithClaims(signed, &LicenseClaims{}, j.keyFunc, jwt.WithAudience(audienceLicense))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrTokenExpired
		}
		return nil, core.ErrInvalidToken
	}

	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*LicenseClaims)
	if !ok {
		return nil, core.ErrInvalidToken
	}

	return &core.AccessToken{
		ID:           claims.ID,
		Subject:      claims.Subject,
		ContentID:    claims.ContentID,
		DeviceID:     claims.DeviceID,
		IssuedAt:     claims.IssuedAt.Time,
		ExpiresAt:    claims.ExpiresAt.Time,
		Restrictions: claims.Restrictions,
		Fingerprint:  claims.Fingerprint,
	}, nil
}

// keyFunc selects the verification key by the kid header. Tokens without
// a kid verify against the active key.
func (j *JWTTokenizer) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}

	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		kid = j.activeKID
	}

	key, ok := j.publicKeys[kid]
	if !ok {
		return nil, core.ErrInvalidToken
	}

	return key, nil
}

// keyID derives a stable identifier from a public key.
func keyID(pub *ecdsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:8]), nil
}
