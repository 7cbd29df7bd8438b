// ABOUTME: Tests for session MCP tool handlers
// ABOUTME: Drives a real flow controller with fake providers, directly and over an in-memory MCP transport
package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/harperreed/peoplelogin/flow"
	"github.com/harperreed/peoplelogin/logging"
	"github.com/harperreed/peoplelogin/models"
)

type grantAuthorizer struct{ granted bool }

func (a *grantAuthorizer) Authorize(context.Context, models.AuthRequest) *models.AuthResult {
	if a.granted {
		return models.Granted(&oauth2.Token{AccessToken: "a"})
	}
	return models.Denied(errors.New("immediate_failed"))
}

type stubContacts struct {
	conns   []models.Connection
	listErr error
}

func (s *stubContacts) Load(context.Context, *oauth2.Token) (flow.ConnectionLister, error) {
	return s, nil
}

func (s *stubContacts) ListConnections(context.Context, int) ([]models.Connection, error) {
	return s.conns, s.listErr
}

func newHandlers(granted bool, contacts *stubContacts) (*SessionHandlers, *flow.Controller) {
	transcript := &Transcript{}
	ctrl := flow.NewController(flow.Options{
		ClientID:   "abc.apps.googleusercontent.com",
		Authorizer: &grantAuthorizer{granted: granted},
		Contacts:   contacts,
		View:       transcript,
		Logger:     logging.Discard(),
	})
	return NewSessionHandlers(ctrl, transcript), ctrl
}

func TestAuthStatusWithoutGrant(t *testing.T) {
	h, _ := newHandlers(false, &stubContacts{})

	_, out, err := h.AuthStatus(context.Background(), nil, AuthStatusInput{})
	require.NoError(t, err)

	assert.Equal(t, "unauthenticated", out.State)
	assert.True(t, out.LoginRequired)
	assert.False(t, out.Authenticated)
	assert.False(t, out.LogoutAvailable)
}

func TestAuthStatusWithGrant(t *testing.T) {
	h, _ := newHandlers(true, &stubContacts{})

	_, out, err := h.AuthStatus(context.Background(), nil, AuthStatusInput{Check: true})
	require.NoError(t, err)

	assert.Equal(t, "idle", out.State)
	assert.True(t, out.Authenticated)
	assert.True(t, out.LogoutAvailable)
	assert.False(t, out.LoginRequired)
}

func TestListConnectionsChecksFirst(t *testing.T) {
	h, _ := newHandlers(true, &stubContacts{conns: []models.Connection{
		{DisplayNames: []string{"Grace Hopper"}},
	}})

	_, out, err := h.ListConnections(context.Background(), nil, ListConnectionsInput{})
	require.NoError(t, err)
	assert.Equal(t, []string{flow.HeaderLine, "Grace Hopper"}, out.Lines)
	assert.Equal(t, "idle", out.State)
}

func TestListConnectionsRelistsWhenIdle(t *testing.T) {
	contacts := &stubContacts{}
	h, _ := newHandlers(true, contacts)

	_, out, err := h.ListConnections(context.Background(), nil, ListConnectionsInput{})
	require.NoError(t, err)
	assert.Equal(t, []string{flow.NoConnectionsLine}, out.Lines)

	contacts.conns = []models.Connection{{}}
	_, out, err = h.ListConnections(context.Background(), nil, ListConnectionsInput{})
	require.NoError(t, err)
	assert.Equal(t, []string{flow.HeaderLine, flow.NoNameLine}, out.Lines)
}

func TestListConnectionsWithoutGrant(t *testing.T) {
	h, _ := newHandlers(false, &stubContacts{})

	_, _, err := h.ListConnections(context.Background(), nil, ListConnectionsInput{})
	assert.ErrorContains(t, err, "not authorized")
}

func TestListConnectionsFailureReportsAlert(t *testing.T) {
	h, _ := newHandlers(true, &stubContacts{listErr: errors.New("quota exceeded")})

	_, _, err := h.ListConnections(context.Background(), nil, ListConnectionsInput{})
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestLogoutTool(t *testing.T) {
	h, ctrl := newHandlers(true, &stubContacts{})
	_, _, err := h.AuthStatus(context.Background(), nil, AuthStatusInput{Check: true})
	require.NoError(t, err)

	_, out, err := h.Logout(context.Background(), nil, LogoutInput{})
	require.NoError(t, err)

	assert.Equal(t, "logged_out", out.State)
	assert.True(t, out.LoggedOut)
	assert.False(t, out.LogoutAvailable)
	assert.Equal(t, flow.StateLoggedOut, ctrl.State())
}

func TestToolsOverMCP(t *testing.T) {
	h, _ := newHandlers(true, &stubContacts{conns: []models.Connection{
		{DisplayNames: []string{"Grace Hopper"}},
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := NewServer(h, "test").Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer func() { _ = serverSession.Close() }()

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"auth_status", "list_connections", "logout"}, names)

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "list_connections",
		Arguments: map[string]any{},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)

	structured, ok := result.StructuredContent.(map[string]any)
	require.True(t, ok, "expected structured output, got %T", result.StructuredContent)
	assert.Equal(t, []any{flow.HeaderLine, "Grace Hopper"}, structured["lines"])
}

var _ flow.View = (*Transcript)(nil)
