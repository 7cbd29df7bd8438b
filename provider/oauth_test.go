// ABOUTME: Tests for the OAuth config and file token store
// ABOUTME: Round-trips tokens through a temporary XDG data dir
package provider

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/harperreed/peoplelogin/models"
)

func TestOAuthConfigCreation(t *testing.T) {
	config := NewOAuthConfig("id.apps.googleusercontent.com", "secret", "http://localhost:8080/oauth/callback")

	require.NotNil(t, config)
	assert.Equal(t, []string{models.ScopeContactsReadOnly}, config.Scopes)
	assert.Equal(t, "id.apps.googleusercontent.com", config.ClientID)
	assert.Contains(t, config.Endpoint.AuthURL, "accounts.google.com")
}

func TestTokenPathXDG(t *testing.T) {
	path := TokenPath()

	expectedBase := filepath.Join(xdg.DataHome, "peoplelogin")
	assert.True(t, strings.HasPrefix(path, expectedBase), "expected path under %s, got %s", expectedBase, path)
	assert.Equal(t, "google-credentials.json", filepath.Base(path))
}

func TestFileTokenStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := &FileTokenStore{Path: filepath.Join(t.TempDir(), "nested", "creds.json")}

	_, err := store.Load(ctx, "")
	require.ErrorIs(t, err, ErrNoToken)

	token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"}
	require.NoError(t, store.Save(ctx, "", token))

	info, err := os.Stat(store.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := store.Load(ctx, "ignored-key")
	require.NoError(t, err)
	assert.Equal(t, "access", loaded.AccessToken)
	assert.Equal(t, "refresh", loaded.RefreshToken)

	require.NoError(t, store.Delete(ctx, ""))
	require.NoError(t, store.Delete(ctx, ""), "deleting twice is fine")
	_, err = store.Load(ctx, "")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestFileTokenStoreRejectsNil(t *testing.T) {
	store := &FileTokenStore{Path: filepath.Join(t.TempDir(), "creds.json")}
	assert.Error(t, store.Save(context.Background(), "", nil))
}

func TestFileTokenStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := (&FileTokenStore{Path: path}).Load(context.Background(), "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoToken)
}
