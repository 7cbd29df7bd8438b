// ABOUTME: Logout side channel for non-browser sessions
// ABOUTME: Revokes the grant at Google and forgets the stored token
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// DefaultRevokeURL is Google's token revocation endpoint.
const DefaultRevokeURL = "https://oauth2.googleapis.com/revoke"

// Revoker revokes the current grant and deletes it from the store.
type Revoker struct {
	RevokeURL string
	Client    *http.Client
	Store     TokenStore
	Key       string
}

// Logout revokes token and deletes the stored grant. Both steps are
// attempted even when one fails. Without a token the stored grant is the
// one revoked, so logging out needs no authorization check first.
func (r *Revoker) Logout(ctx context.Context, token *oauth2.Token) error {
	var errs []error

	if token == nil && r.Store != nil {
		stored, err := r.Store.Load(ctx, r.Key)
		switch {
		case err == nil:
			token = stored
		case !errors.Is(err, ErrNoToken):
			errs = append(errs, err)
		}
	}

	if token != nil {
		if err := r.revoke(ctx, token); err != nil {
			errs = append(errs, err)
		}
	}

	if r.Store != nil {
		if err := r.Store.Delete(ctx, r.Key); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (r *Revoker) revoke(ctx context.Context, token *oauth2.Token) error {
	value := token.RefreshToken
	if value == "" {
		value = token.AccessToken
	}
	if value == "" {
		return nil
	}

	endpoint := r.RevokeURL
	if endpoint == "" {
		endpoint = DefaultRevokeURL
	}
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}

	form := url.Values{"token": {value}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to revoke token: status %d", resp.StatusCode)
	}

	return nil
}
