// ABOUTME: Session MCP tool handlers
// ABOUTME: Implements auth_status, list_connections, and logout against one flow controller
package handlers

import (
	"context"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/peoplelogin/flow"
)

// Controller is the part of flow.Controller the tools drive.
type Controller interface {
	State() flow.State
	Flags() flow.ViewFlags
	Lines() []string
	CheckAuth(ctx context.Context) error
	ListConnections(ctx context.Context) error
	Logout(ctx context.Context) error
}

// Transcript is a flow.View for a surface with no screen. It keeps the
// alerts raised since the last tool call.
type Transcript struct {
	mu     sync.Mutex
	alerts []string
}

func (t *Transcript) Render(flow.ViewFlags) error { return nil }

func (t *Transcript) ClearOutput() error { return nil }

func (t *Transcript) AppendLine(string) error { return nil }

func (t *Transcript) Alert(message string) {
	t.mu.Lock()
	t.alerts = append(t.alerts, message)
	t.mu.Unlock()
}

// Drain returns and clears the collected alerts.
func (t *Transcript) Drain() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	alerts := t.alerts
	t.alerts = nil
	return alerts
}

type SessionHandlers struct {
	ctrl       Controller
	transcript *Transcript

	// Tool calls may arrive concurrently; the flow is one session.
	mu sync.Mutex
}

func NewSessionHandlers(ctrl Controller, transcript *Transcript) *SessionHandlers {
	return &SessionHandlers{ctrl: ctrl, transcript: transcript}
}

type AuthStatusInput struct {
	Check bool `json:"check,omitempty" jsonschema:"Run a non-interactive authorization check before reporting"`
}

type StatusOutput struct {
	State           string   `json:"state"`
	Authenticated   bool     `json:"authenticated"`
	LoginRequired   bool     `json:"login_required"`
	LogoutAvailable bool     `json:"logout_available"`
	LoggedOut       bool     `json:"logged_out"`
	Alerts          []string `json:"alerts,omitempty"`
}

func (h *SessionHandlers) AuthStatus(ctx context.Context, _ *mcp.CallToolRequest, input AuthStatusInput) (*mcp.CallToolResult, StatusOutput, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if input.Check || h.ctrl.State() == flow.StateUnauthenticated {
		if err := h.ctrl.CheckAuth(ctx); err != nil {
			return nil, StatusOutput{}, fmt.Errorf("authorization check failed: %w", err)
		}
	}

	return nil, h.status(), nil
}

type ListConnectionsInput struct{}

type ConnectionsOutput struct {
	State  string   `json:"state"`
	Lines  []string `json:"lines"`
	Alerts []string `json:"alerts,omitempty"`
}

func (h *SessionHandlers) ListConnections(ctx context.Context, _ *mcp.CallToolRequest, _ ListConnectionsInput) (*mcp.CallToolResult, ConnectionsOutput, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	switch h.ctrl.State() {
	case flow.StateIdle:
		err = h.ctrl.ListConnections(ctx)
	case flow.StateUnauthenticated, flow.StateLoggedOut:
		// A granted check lists on its own.
		err = h.ctrl.CheckAuth(ctx)
	}

	alerts := h.transcript.Drain()
	if err != nil {
		return nil, ConnectionsOutput{}, fmt.Errorf("failed to list connections: %w", err)
	}
	if h.ctrl.Flags().LoginPrompt {
		return nil, ConnectionsOutput{}, fmt.Errorf("not authorized: run `peoplelogin login` first")
	}

	return nil, ConnectionsOutput{
		State:  h.ctrl.State().String(),
		Lines:  h.ctrl.Lines(),
		Alerts: alerts,
	}, nil
}

type LogoutInput struct{}

func (h *SessionHandlers) Logout(ctx context.Context, _ *mcp.CallToolRequest, _ LogoutInput) (*mcp.CallToolResult, StatusOutput, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.ctrl.Logout(ctx); err != nil {
		return nil, StatusOutput{}, fmt.Errorf("failed to log out: %w", err)
	}
	return nil, h.status(), nil
}

func (h *SessionHandlers) status() StatusOutput {
	flags := h.ctrl.Flags()
	return StatusOutput{
		State:           flags.State.String(),
		Authenticated:   flags.Authenticated,
		LoginRequired:   flags.LoginPrompt,
		LogoutAvailable: flags.LogoutButton,
		LoggedOut:       flags.LoggedOutNotice,
		Alerts:          h.transcript.Drain(),
	}
}
