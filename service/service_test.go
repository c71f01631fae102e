package service

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/balbonits/drm-broker/adapters/cache"
	"github.com/balbonits/drm-broker/adapters/counter"
	"github.com/balbonits/drm-broker/adapters/events"
	"github.com/balbonits/drm-broker/adapters/store"
	"github.com/balbonits/drm-broker/adapters/tokenizer"
	"github.com/balbonits/drm-broker/core"
	"github.com/balbonits/drm-broker/ports"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "test-fingerprint-secret"
	testEndpoint = "/license"
)

// testEnv wires the services over in-memory adapters.
type testEnv struct {
	tokenizer ports.Tokenizer
	store     *store.MemoryStore
	cache     *cache.MemoryCache
	counter   *counter.MemoryCounter
	issuer    *Issuer
	validator *Validator
	keys      *KeyService
	broker    *Broker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tok, err := tokenizer.NewJWTTokenizer(signKey, nil)
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	memStore := store.NewMemoryStore()
	memCache := cache.NewMemoryCache()
	memCounter := counter.NewMemoryCounter(time.Hour)
	pub := events.NopPublisher{}

	env := &testEnv{
		tokenizer: tok,
		store:     memStore,
		cache:     memCache,
		counter:   memCounter,
	}

	env.issuer = NewIssuer(tok, memStore, memCache, log, testSecret, testEndpoint, 6*time.Hour, 24*time.Hour)
	env.validator = NewValidator(tok, memStore, memCache, memCounter, memStore, pub, log, testSecret)
	env.keys = NewKeyService(memStore, memCache, log, 30*24*time.Hour, time.Hour)
	env.broker = NewBroker(env.validator, env.keys, memStore, pub, log)

	return env
}

// signAndRecord signs an arbitrary token payload and persists its durable
// record, bypassing the issuer, so tests can craft expired or mismatched
// tokens.
func (e *testEnv) signAndRecord(t *testing.T, token *core.AccessToken) string {
	t.Helper()

	if token.ID == "" {
		token.ID = uuid.New().String()
	}

	signed, err := e.tokenizer.Sign(token)
	require.NoError(t, err)

	err = e.store.SaveRecord(context.Background(), &core.AccessTokenRecord{
		ID:          token.ID,
		Subject:     token.Subject,
		ContentID:   token.ContentID,
		DeviceID:    token.DeviceID,
		IssuedAt:    token.IssuedAt,
		ExpiresAt:   token.ExpiresAt,
		TokenHash:   "test-hash",
		Fingerprint: token.Fingerprint,
	})
	require.NoError(t, err)

	return signed
}
