package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/balbonits/drm-broker/core"
)

// PostgresStore is the durable store for token records, content keys and
// audit rows, backed by database/sql. It implements ports.TokenStore,
// ports.KeyStore and ports.AuditLog.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgresStore on an open connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// SaveRecord inserts an access token record.
func (s *PostgresStore) SaveRecord(ctx context.Context, rec *core.AccessTokenRecord) error {
	query := `
		INSERT INTO access_tokens (id, subject, content_id, device_id, issued_at, expires_at, token_hash, fingerprint, revoked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.Subject,
		rec.ContentID,
		nullString(rec.DeviceID),
		rec.IssuedAt,
		rec.ExpiresAt,
		rec.TokenHash,
		rec.Fingerprint,
		rec.Revoked,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to save token record: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}

// GetRecord fetches an access token record by token id.
func (s *PostgresStore) GetRecord(ctx context.Context, id string) (*core.AccessTokenRecord, error) {
	query := `
		SELECT id, subject, content_id, device_id, issued_at, expires_at, token_hash, fingerprint, revoked
		FROM access_tokens
		WHERE id = $1
	`
	rec := &core.AccessTokenRecord{}
	var deviceID sql.NullString

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.Subject,
		&rec.ContentID,
		&deviceID,
		&rec.IssuedAt,
		&rec.ExpiresAt,
		&rec.TokenHash,
		&rec.Fingerprint,
		&rec.Revoked,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrRecordNotFound
		}
		return nil, fmt.Errorf("%w: failed to load token record: %v", core.ErrStoreUnavailable, err)
	}

	rec.DeviceID = deviceID.String
	return rec, nil
}

// Revoke flips the revoked flag on a token record.
func (s *PostgresStore) Revoke(ctx context.Context, id string) error {
	query := `
		UPDATE access_tokens
		SET revoked = TRUE
		WHERE id = $1 AND revoked = FALSE
	`
	_, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%w: failed to revoke token: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}

// GetActiveKey returns the newest non-expired key for a (content, provider)
// pair.
func (s *PostgresStore) GetActiveKey(ctx context.Context, contentID string, provider core.Provider) (*core.ContentKey, error) {
	query := `
		SELECT key_id, key_value, provider, content_id, created_at, expires_at
		FROM content_keys
		WHERE content_id = $1 AND provider = $2 AND expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT 1
	`
	key := &core.ContentKey{}

	err := s.db.QueryRowContext(ctx, query, contentID, string(provider)).Scan(
		&key.KeyID,
		&key.KeyValue,
		&key.Provider,
		&key.ContentID,
		&key.CreatedAt,
		&key.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrRecordNotFound
		}
		return nil, fmt.Errorf("%w: failed to load content key: %v", core.ErrStoreUnavailable, err)
	}

	return key, nil
}

// SaveKey inserts a content key.
func (s *PostgresStore) SaveKey(ctx context.Context, key *core.ContentKey) error {
	query := `
		INSERT INTO content_keys (key_id, key_value, provider, content_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		key.KeyID,
		key.KeyValue,
		string(key.Provider),
		key.ContentID,
		key.CreatedAt,
		key.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to save content key: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}

// RecordLicenseRequest appends a license request audit row.
func (s *PostgresStore) RecordLicenseRequest(ctx context.Context, rec *core.LicenseRequestRecord) error {
	query := `
		INSERT INTO license_requests (id, subject, content_id, provider, outcome, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.Subject,
		rec.ContentID,
		rec.Provider,
		rec.Outcome,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to record license request: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}

// RecordSuspicion appends a suspicion audit row.
func (s *PostgresStore) RecordSuspicion(ctx context.Context, rec *core.SuspicionRecord) error {
	query := `
		INSERT INTO suspicions (id, subject, content_id, reason, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.Subject,
		rec.ContentID,
		rec.Reason,
		rec.Detail,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to record suspicion: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
