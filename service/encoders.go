package service

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"encoding/xml"
	"fmt"

	"github.com/balbonits/drm-broker/core"
)

// licenseEncoder wraps content key material into one provider's expected
// license-response shape. One encoder per provider; adding a provider
// means adding an encoder here and a constant in core.
type licenseEncoder interface {
	Encode(key *core.ContentKey, rawRequest []byte) ([]byte, error)
}

// widevineEncoder emits the JSON license-response envelope with the key
// container carried as base64 fields.
type widevineEncoder struct{}

type widevineKeyContainer struct {
	KeyID string `json:"key_id"`
	Key   string `json:"key"`
	IV    string `json:"iv"`
	Type  string `json:"type"`
}

type widevineResponse struct {
	Status      string                 `json:"status"`
	ContentID   string                 `json:"content_id"`
	Keys        []widevineKeyContainer `json:"keys"`
	RequestHash string                 `json:"request_hash,omitempty"`
}

func (widevineEncoder) Encode(key *core.ContentKey, rawRequest []byte) ([]byte, error) {
	iv := make([]byte, 16)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("failed to generate iv: %w", err)
	}

	resp := widevineResponse{
		Status:    "OK",
		ContentID: key.ContentID,
		Keys: []widevineKeyContainer{{
			KeyID: key.KeyID,
			Key:   base64.StdEncoding.EncodeToString(key.KeyValue),
			IV:    base64.StdEncoding.EncodeToString(iv),
			Type:  "CONTENT",
		}},
	}
	if len(rawRequest) > 0 {
		resp.RequestHash = base64.StdEncoding.EncodeToString(rawRequest[:min(len(rawRequest), 32)])
	}

	return json.Marshal(resp)
}

// playReadyEncoder emits the XML license-response envelope.
type playReadyEncoder struct{}

type playReadyResponse struct {
	XMLName   xml.Name `xml:"LicenseResponse"`
	Version   string   `xml:"version,attr"`
	ContentID string   `xml:"ContentId"`
	KeyID     string   `xml:"KeyId"`
	Key       string   `xml:"Key"`
	Algorithm string   `xml:"Algorithm"`
}

func (playReadyEncoder) Encode(key *core.ContentKey, rawRequest []byte) ([]byte, error) {
	resp := playReadyResponse{
		Version:   "1.0",
		ContentID: key.ContentID,
		KeyID:     key.KeyID,
		Key:       base64.StdEncoding.EncodeToString(key.KeyValue),
		Algorithm: "AESCTR",
	}

	return xml.Marshal(resp)
}

// fairPlayEncoder emits a CKC-style binary payload: a fixed magic, the
// key id length and bytes, then the key material.
type fairPlayEncoder struct{}

var fairPlayMagic = []byte{0x43, 0x4b, 0x43, 0x31} // "CKC1"

func (fairPlayEncoder) Encode(key *core.ContentKey, rawRequest []byte) ([]byte, error) {
	keyID := []byte(key.KeyID)

	out := make([]byte, 0, len(fairPlayMagic)+1+len(keyID)+len(key.KeyValue))
	out = append(out, fairPlayMagic...)
	out = append(out, byte(len(keyID)))
	out = append(out, keyID...)
	out = append(out, key.KeyValue...)

	return out, nil
}
