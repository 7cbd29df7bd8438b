// ABOUTME: SQLite-backed OAuth token store keyed by session
// ABOUTME: Lets every web session keep its own grant across restarts
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/harperreed/peoplelogin/provider"
)

// TokenStore persists one OAuth token per session key.
type TokenStore struct {
	db *sql.DB
}

func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db}
}

// Load returns provider.ErrNoToken when the session has no grant.
func (s *TokenStore) Load(ctx context.Context, key string) (*oauth2.Token, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT token FROM tokens WHERE session_key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, provider.ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return &token, nil
}

func (s *TokenStore) Save(ctx context.Context, key string, token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("token cannot be nil")
	}

	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tokens (session_key, token, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(session_key) DO UPDATE SET
			token = excluded.token,
			updated_at = CURRENT_TIMESTAMP
	`, key, string(raw))
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Delete is a no-op for unknown keys.
func (s *TokenStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE session_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
