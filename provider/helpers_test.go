// ABOUTME: Shared test doubles for the provider package
// ABOUTME: In-memory token store and scripted consent
package provider

import (
	"context"
	"sync"

	"golang.org/x/oauth2"
)

type memStore struct {
	mu     sync.Mutex
	tokens map[string]*oauth2.Token
	saves  int
}

func newMemStore() *memStore {
	return &memStore{tokens: map[string]*oauth2.Token{}}
}

func (m *memStore) Load(_ context.Context, key string) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.tokens[key]
	if !ok {
		return nil, ErrNoToken
	}
	return tok, nil
}

func (m *memStore) Save(_ context.Context, key string, token *oauth2.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[key] = token
	m.saves++
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, key)
	return nil
}

type fakeConsent struct {
	code    string
	err     error
	authURL string
	state   string
}

func (f *fakeConsent) Prompt(_ context.Context, authURL, state string) (string, error) {
	f.authURL = authURL
	f.state = state
	return f.code, f.err
}
