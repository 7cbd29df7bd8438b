// ABOUTME: Tests for the web server routes
// ABOUTME: Runs whole browser flows against fake providers
package web

import (
	"context"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/harperreed/peoplelogin/config"
	"github.com/harperreed/peoplelogin/flow"
	"github.com/harperreed/peoplelogin/logging"
	"github.com/harperreed/peoplelogin/models"
	"github.com/harperreed/peoplelogin/provider"
)

const testState = "state-123"

// fakeAuthorizer grants immediately when granted is set; interactive
// requests go through the session's consent.
type fakeAuthorizer struct {
	granted bool
	consent provider.Consent
}

func (a *fakeAuthorizer) Authorize(ctx context.Context, req models.AuthRequest) *models.AuthResult {
	if req.Immediate {
		if a.granted {
			return models.Granted(&oauth2.Token{AccessToken: "a"})
		}
		return models.Denied(provider.ErrImmediateFailed)
	}

	code, err := a.consent.Prompt(ctx, "https://accounts.example/auth?state="+testState, testState)
	if err != nil {
		return models.Denied(err)
	}
	if code != "good-code" {
		return models.Denied(provider.ErrNoCode)
	}
	a.granted = true
	return models.Granted(&oauth2.Token{AccessToken: "a"})
}

type fakeContacts struct{ conns []models.Connection }

func (f *fakeContacts) Load(context.Context, *oauth2.Token) (flow.ConnectionLister, error) {
	return f, nil
}

func (f *fakeContacts) ListConnections(context.Context, int) ([]models.Connection, error) {
	return f.conns, nil
}

type recordingStore struct {
	mu      sync.Mutex
	deleted []string
}

func (s *recordingStore) Load(context.Context, string) (*oauth2.Token, error) {
	return nil, provider.ErrNoToken
}

func (s *recordingStore) Save(context.Context, string, *oauth2.Token) error { return nil }

func (s *recordingStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	return nil
}

type harness struct {
	server  *Server
	handler http.Handler
	auth    *fakeAuthorizer
	store   *recordingStore
	cookie  *http.Cookie
}

func newHarness(t *testing.T, tmpl *template.Template) *harness {
	t.Helper()
	h := &harness{auth: &fakeAuthorizer{}, store: &recordingStore{}}

	srv, err := NewServer(Options{
		Config: &config.Config{
			ClientID:       "abc.apps.googleusercontent.com",
			PageSize:       10,
			LogoutURL:      "https://accounts.example/logout",
			ConsentTimeout: 5 * time.Second,
		},
		Authorizer: func(_ string, consent provider.Consent) flow.Authorizer {
			h.auth.consent = consent
			return h.auth
		},
		Contacts: &fakeContacts{conns: []models.Connection{
			{ResourceName: "people/1", DisplayNames: []string{"Ada Lovelace"}},
			{ResourceName: "people/2"},
		}},
		Store:    h.store,
		Logger:   logging.Discard(),
		Template: tmpl,
	})
	require.NoError(t, err)

	h.server = srv
	h.handler = srv.Router()
	return h
}

func (h *harness) do(t *testing.T, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			h.cookie = c
		}
	}
	return rec
}

func shown(body, id string) bool {
	return strings.Contains(body, `id="`+id+`" class=""`)
}

func TestPageShowsLoginPromptWithoutGrant(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(t, http.MethodGet, "/", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, h.cookie, "session cookie should be set")

	body := rec.Body.String()
	assert.True(t, shown(body, flow.ElementAuthorize))
	assert.False(t, shown(body, flow.ElementOutput))
	assert.False(t, shown(body, flow.ElementLogout))
	assert.False(t, shown(body, flow.ElementLoggedOut))
}

func TestPageListsConnectionsWithGrant(t *testing.T) {
	h := newHarness(t, nil)
	h.auth.granted = true

	body := h.do(t, http.MethodGet, "/", nil).Body.String()

	assert.False(t, shown(body, flow.ElementAuthorize))
	assert.True(t, shown(body, flow.ElementOutput))
	assert.True(t, shown(body, flow.ElementLogout))
	assert.Contains(t, body, flow.HeaderLine)
	assert.Contains(t, body, "Ada Lovelace")
	assert.Contains(t, body, flow.NoNameLine)
}

func TestLoginThroughConsentRedirect(t *testing.T) {
	h := newHarness(t, nil)
	h.do(t, http.MethodGet, "/", nil)

	rec := h.do(t, http.MethodPost, "/login", url.Values{})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "https://accounts.example/auth?state="+testState, rec.Header().Get("Location"))

	rec = h.do(t, http.MethodGet, "/oauth/callback?state="+testState+"&code=good-code", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	body := h.do(t, http.MethodGet, "/", nil).Body.String()
	assert.True(t, shown(body, flow.ElementOutput))
	assert.True(t, shown(body, flow.ElementLogout))
	assert.Contains(t, body, "Ada Lovelace")
}

func TestConsentDeclinedShowsLoginPrompt(t *testing.T) {
	h := newHarness(t, nil)
	h.do(t, http.MethodGet, "/", nil)
	h.do(t, http.MethodPost, "/login", url.Values{})

	rec := h.do(t, http.MethodGet, "/oauth/callback?state="+testState+"&error=access_denied", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	body := h.do(t, http.MethodGet, "/", nil).Body.String()
	assert.True(t, shown(body, flow.ElementAuthorize))
	assert.False(t, shown(body, flow.ElementOutput))
}

func TestCallbackWithUnknownState(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(t, http.MethodGet, "/oauth/callback?state=forged&code=good-code", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutShowsNoticeAndFrame(t *testing.T) {
	h := newHarness(t, nil)
	h.auth.granted = true
	h.do(t, http.MethodGet, "/", nil)

	rec := h.do(t, http.MethodPost, "/logout", url.Values{})
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, shown(body, flow.ElementLoggedOut))
	assert.False(t, shown(body, flow.ElementLogout))
	assert.False(t, shown(body, flow.ElementAuthorize))
	assert.Contains(t, body, `src="https://accounts.example/logout"`)

	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	require.Len(t, h.store.deleted, 1)
	assert.Equal(t, h.cookie.Value, h.store.deleted[0])
}

func TestLogoutFrameShownOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.do(t, http.MethodPost, "/logout", url.Values{})

	body := h.do(t, http.MethodGet, "/", nil).Body.String()
	assert.NotContains(t, body, "logout-frame")
}

func TestHoverReturnsPalette(t *testing.T) {
	h := newHarness(t, nil)
	h.do(t, http.MethodGet, "/", nil)

	rec := h.do(t, http.MethodPost, "/hover", url.Values{"over": {"true"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"borderTop":"#4285EB","borderBottom":"#1A5DCC","box":"#4285F4"}`, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/hover", url.Values{"over": {"false"}})
	assert.JSONEq(t, `{"borderTop":"#5699FF","borderBottom":"#2E71E0","box":"#4285F4"}`, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/hover", url.Values{"over": {"maybe"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMissingElementIsAlerted(t *testing.T) {
	tmpl := template.Must(template.New("root").Parse(
		`{{define "page"}}<div id="output"></div>{{range .Alerts}}ALERT[{{.}}]{{end}}{{end}}`))
	h := newHarness(t, tmpl)

	body := h.do(t, http.MethodGet, "/", nil).Body.String()
	assert.Contains(t, body, "ALERT[error:  ui element missing: "+flow.ElementAuthorize+"]")
}

func TestHealthz(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestSessionsAreIsolated(t *testing.T) {
	h := newHarness(t, nil)
	h.auth.granted = true
	h.do(t, http.MethodGet, "/", nil)
	first := h.cookie

	h.cookie = nil
	h.do(t, http.MethodPost, "/logout", url.Values{})

	h.cookie = first
	body := h.do(t, http.MethodGet, "/", nil).Body.String()
	assert.True(t, shown(body, flow.ElementOutput), "logout in one session must not affect another")
}

func (h *harness) current(t *testing.T) *session {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(h.cookie)
	sess := h.server.lookup(req)
	require.NotNil(t, sess)
	return sess
}

func TestLogoutDuringConsentIsNotUndone(t *testing.T) {
	h := newHarness(t, nil)
	h.do(t, http.MethodGet, "/", nil)

	rec := h.do(t, http.MethodPost, "/login", url.Values{})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = h.do(t, http.MethodPost, "/logout", url.Values{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, shown(rec.Body.String(), flow.ElementLoggedOut))

	// The consent completes after the user already logged out.
	rec = h.do(t, http.MethodGet, "/oauth/callback?state="+testState+"&code=good-code", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	sess := h.current(t)
	assert.Equal(t, flow.StateLoggedOut, sess.ctrl.State())
	assert.Nil(t, sess.ctrl.Token())
	assert.Empty(t, sess.ctrl.Lines())

	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	assert.Equal(t, []string{h.cookie.Value, h.cookie.Value}, h.store.deleted,
		"the late grant is forgotten again")
}

func TestIdleSessionsAreEvicted(t *testing.T) {
	h := newHarness(t, nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	h.server.now = func() time.Time { return now }
	h.server.cfg.SessionIdle = 30 * time.Minute

	h.do(t, http.MethodGet, "/", nil)
	first := h.cookie.Value

	now = now.Add(20 * time.Minute)
	assert.Equal(t, 0, h.server.sweep())

	now = now.Add(31 * time.Minute)
	assert.Equal(t, 1, h.server.sweep())
	assert.Empty(t, h.server.sessions)

	h.do(t, http.MethodGet, "/", nil)
	assert.NotEqual(t, first, h.cookie.Value, "an evicted cookie gets a fresh session")
}

func TestActiveSessionsSurviveSweep(t *testing.T) {
	h := newHarness(t, nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	h.server.now = func() time.Time { return now }
	h.server.cfg.SessionIdle = 30 * time.Minute

	h.do(t, http.MethodGet, "/", nil)
	first := h.cookie.Value

	for range 3 {
		now = now.Add(20 * time.Minute)
		h.do(t, http.MethodPost, "/hover", url.Values{"over": {"true"}})
		assert.Equal(t, 0, h.server.sweep())
	}

	h.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, first, h.cookie.Value)
}
