// ABOUTME: OAuth configuration and token storage for Google APIs
// ABOUTME: Builds the oauth2 config and keeps tokens at XDG paths with restricted permissions
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/harperreed/peoplelogin/models"
)

// ErrNoToken is returned by a TokenStore that holds no grant.
var ErrNoToken = errors.New("no stored token")

// NewOAuthConfig creates the OAuth2 config for the contacts read-only flow.
func NewOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{models.ScopeContactsReadOnly},
		Endpoint:     google.Endpoint,
	}
}

// TokenStore persists grants between runs. Keys identify a session; a
// store may ignore them when it only ever holds one grant.
type TokenStore interface {
	Load(ctx context.Context, key string) (*oauth2.Token, error)
	Save(ctx context.Context, key string, token *oauth2.Token) error
	Delete(ctx context.Context, key string) error
}

// TokenPath returns XDG-compliant path for storing OAuth tokens.
func TokenPath() string {
	return filepath.Join(xdg.DataHome, "peoplelogin", "google-credentials.json")
}

// FileTokenStore keeps a single grant in a JSON file. Keys are ignored.
type FileTokenStore struct {
	Path string
}

// NewFileTokenStore returns a store at the XDG token path.
func NewFileTokenStore() *FileTokenStore {
	return &FileTokenStore{Path: TokenPath()}
}

// Save writes the token with owner-only permissions.
func (s *FileTokenStore) Save(_ context.Context, _ string, token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("token cannot be nil")
	}

	if err := os.MkdirAll(filepath.Dir(s.Path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	f, err := os.OpenFile(s.Path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	return nil
}

// Load reads the token. A missing file yields ErrNoToken.
func (s *FileTokenStore) Load(_ context.Context, _ string) (*oauth2.Token, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("failed to open token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var token oauth2.Token
	if err := json.NewDecoder(f).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}

	return &token, nil
}

// Delete removes the token file. Deleting a missing file is not an error.
func (s *FileTokenStore) Delete(_ context.Context, _ string) error {
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}
