package config

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every deployment-provided setting. The signing key pair is
// provisioned by the environment and injected here; the service never
// generates one in production.
type Config struct {
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":9000"`

	PostgresDSN   string `envconfig:"POSTGRES_DSN" required:"true"`
	MigrationsDir string `envconfig:"MIGRATIONS_DIR" default:"migrations"`
	RedisURL      string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`

	SigningKeyPath        string `envconfig:"SIGNING_KEY_PATH" required:"true"`
	PreviousPublicKeyPath string `envconfig:"PREVIOUS_PUBLIC_KEY_PATH"`
	FingerprintSecret     string `envconfig:"FINGERPRINT_SECRET" required:"true"`

	LicenseEndpoint  string        `envconfig:"LICENSE_ENDPOINT" default:"/license"`
	DefaultTokenTTL  time.Duration `envconfig:"DEFAULT_TOKEN_TTL" default:"6h"`
	MaxTokenTTL      time.Duration `envconfig:"MAX_TOKEN_TTL" default:"24h"`
	KeyValidity      time.Duration `envconfig:"KEY_VALIDITY" default:"720h"`
	KeyCacheTTL      time.Duration `envconfig:"KEY_CACHE_TTL" default:"1h"`
	StreamCounterTTL time.Duration `envconfig:"STREAM_COUNTER_TTL" default:"24h"`
}

// Load populates the config from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("drm", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadSigningKey reads and parses the active ECDSA private key.
func (c *Config) LoadSigningKey() (*ecdsa.PrivateKey, error) {
	raw, err := os.ReadFile(c.SigningKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing key: %w", err)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("signing key is not PEM encoded")
	}

	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}

	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errors.New("signing key is not an ECDSA key")
	}

	return key, nil
}

// LoadPreviousPublicKey reads the optional rotated-out public key kept
// for the grace period. Returns nil when none is configured.
func (c *Config) LoadPreviousPublicKey() (*ecdsa.PublicKey, error) {
	if c.PreviousPublicKeyPath == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(c.PreviousPublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read previous public key: %w", err)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("previous public key is not PEM encoded")
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse previous public key: %w", err)
	}

	key, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("previous public key is not an ECDSA key")
	}

	return key, nil
}
