// ABOUTME: Per-browser session state and the consent bridge between /login and /oauth/callback
// ABOUTME: Each session owns a flow controller; pending consents are matched by OAuth state
package web

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/harperreed/peoplelogin/flow"
	"github.com/harperreed/peoplelogin/provider"
)

type session struct {
	id      uuid.UUID
	ctrl    *flow.Controller
	page    *Page
	consent *webConsent

	// lastSeen is guarded by the server's mutex.
	lastSeen time.Time

	mu        sync.Mutex
	loginDone chan error
}

// beginLogin returns the channel the login goroutine reports on. It is
// closed once the login finishes.
func (s *session) beginLogin() chan error {
	done := make(chan error, 1)
	s.mu.Lock()
	s.loginDone = done
	s.mu.Unlock()
	return done
}

// waitLogin blocks until the current login finishes or ctx is done.
func (s *session) waitLogin(ctx context.Context) {
	s.mu.Lock()
	done := s.loginDone
	s.mu.Unlock()
	if done == nil {
		return
	}

	select {
	case <-done:
	case <-ctx.Done():
	}
}

type consentResult struct {
	code string
	err  error
}

// consentBroker hands callback results to the login waiting on that state.
type consentBroker struct {
	mu      sync.Mutex
	pending map[string]chan consentResult
}

func newConsentBroker() *consentBroker {
	return &consentBroker{pending: make(map[string]chan consentResult)}
}

func (b *consentBroker) expect(state string) <-chan consentResult {
	ch := make(chan consentResult, 1)
	b.mu.Lock()
	b.pending[state] = ch
	b.mu.Unlock()
	return ch
}

func (b *consentBroker) forget(state string) {
	b.mu.Lock()
	delete(b.pending, state)
	b.mu.Unlock()
}

// resolve reports whether a login was waiting on state.
func (b *consentBroker) resolve(state string, result consentResult) bool {
	b.mu.Lock()
	ch, ok := b.pending[state]
	delete(b.pending, state)
	b.mu.Unlock()

	if !ok {
		return false
	}
	ch <- result
	return true
}

// webConsent sends the browser to the provider and waits for the
// callback that carries the same state.
type webConsent struct {
	broker *consentBroker

	mu   sync.Mutex
	urls chan string
}

// begin returns the channel the next authorization URL is sent on.
func (c *webConsent) begin() <-chan string {
	urls := make(chan string, 1)
	c.mu.Lock()
	c.urls = urls
	c.mu.Unlock()
	return urls
}

func (c *webConsent) Prompt(ctx context.Context, authURL, state string) (string, error) {
	c.mu.Lock()
	urls := c.urls
	c.urls = nil
	c.mu.Unlock()
	if urls == nil {
		return "", provider.ErrNoConsent
	}

	wait := c.broker.expect(state)
	defer c.broker.forget(state)

	urls <- authURL

	select {
	case res := <-wait:
		return res.code, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// frameLogout is the browser logout side channel: the next render
// carries a hidden frame to the provider's logout URL, and the
// session's stored grant is forgotten.
type frameLogout struct {
	page  *Page
	store provider.TokenStore
	key   string
}

func (l *frameLogout) Logout(ctx context.Context, _ *oauth2.Token) error {
	l.page.requestLogoutFrame()
	if l.store == nil {
		return nil
	}
	return l.store.Delete(ctx, l.key)
}
