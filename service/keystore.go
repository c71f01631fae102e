package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/balbonits/drm-broker/core"
	"github.com/balbonits/drm-broker/ports"
)

const keyCachePrefix = "contentkey:"

// KeyService manages per-content encryption keys with a read-through
// cache over the durable store. Key material is opaque bytes; provider
// wire encoding belongs to the license broker.
type KeyService struct {
	store ports.KeyStore
	cache ports.Cache
	log   *slog.Logger

	keyValidity time.Duration
	cacheTTL    time.Duration
}

// NewKeyService creates a key service. keyValidity is the fixed window
// after which a key is regenerated; cacheTTL bounds how long a cached
// copy may be served.
func NewKeyService(store ports.KeyStore, cache ports.Cache, log *slog.Logger, keyValidity, cacheTTL time.Duration) *KeyService {
	return &KeyService{
		store:       store,
		cache:       cache,
		log:         log,
		keyValidity: keyValidity,
		cacheTTL:    cacheTTL,
	}
}

// GetOrCreateKey returns the live content key for a (content, provider)
// pair, generating and persisting one on first request. Two calls inside
// the validity window return identical key material.
func (s *KeyService) GetOrCreateKey(ctx context.Context, contentID string, provider core.Provider) (*core.ContentKey, error) {
	cacheKey := fmt.Sprintf("%s%s:%s", keyCachePrefix, contentID, provider)

	if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
		var key core.ContentKey
		if err := json.Unmarshal([]byte(cached), &key); err == nil && !key.Expired(time.Now()) {
			return &key, nil
		}
	} else if !errors.Is(err, core.ErrRecordNotFound) {
		s.log.Warn("content key cache read failed", slog.String("error", err.Error()))
	}

	key, err := s.store.GetActiveKey(ctx, contentID, provider)
	if err == nil {
		s.cacheKey(ctx, cacheKey, key)
		return key, nil
	}
	if !errors.Is(err, core.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %v", core.ErrKeyUnavailable, err)
	}

	key, err = s.generateKey(contentID, provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrKeyUnavailable, err)
	}

	if err := s.store.SaveKey(ctx, key); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrKeyUnavailable, err)
	}

	s.cacheKey(ctx, cacheKey, key)
	return key, nil
}

// cacheKey stores a key in the cache with a TTL that never outlives the
// key's remaining validity, so a cache hit is never stale relative to the
// durable record.
func (s *KeyService) cacheKey(ctx context.Context, cacheKey string, key *core.ContentKey) {
	ttl := s.cacheTTL
	if remaining := time.Until(key.ExpiresAt); remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return
	}

	payload, err := json.Marshal(key)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, cacheKey, string(payload), ttl); err != nil {
		s.log.Warn("failed to cache content key",
			slog.String("key_id", key.KeyID),
			slog.String("error", err.Error()))
	}
}

// generateKey mints fresh random key material for the pair.
func (s *KeyService) generateKey(contentID string, provider core.Provider) (*core.ContentKey, error) {
	keyID := make([]byte, 16)
	if _, err := rand.Read(keyID); err != nil {
		return nil, fmt.Errorf("failed to generate key id: %w", err)
	}

	keyValue := make([]byte, 32)
	if _, err := rand.Read(keyValue); err != nil {
		return nil, fmt.Errorf("failed to generate key material: %w", err)
	}

	now := time.Now()
	return &core.ContentKey{
		KeyID:     hex.EncodeToString(keyID),
		KeyValue:  keyValue,
		Provider:  provider,
		ContentID: contentID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.keyValidity),
	}, nil
}
