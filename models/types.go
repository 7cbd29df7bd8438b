// ABOUTME: Data models for the session flow
// ABOUTME: Defines authorization requests and results, connection records and session events
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"golang.org/x/oauth2"
)

// ScopeContactsReadOnly is the only permission the flow asks for.
const ScopeContactsReadOnly = "https://www.googleapis.com/auth/contacts.readonly"

// AuthRequest describes one authorization attempt.
type AuthRequest struct {
	ClientID string
	Scopes   []string
	// Immediate asks for a non-interactive check of an existing grant.
	Immediate bool
}

// AuthResult is what the identity provider hands back. Only the presence
// of Err is inspected by the flow.
type AuthResult struct {
	Token *oauth2.Token
	Err   error
}

// OK reports whether the result carries no error. A nil result is not OK.
func (r *AuthResult) OK() bool {
	return r != nil && r.Err == nil
}

// Granted wraps a token in a successful result.
func Granted(token *oauth2.Token) *AuthResult {
	return &AuthResult{Token: token}
}

// Denied wraps an error marker in a failed result.
func Denied(err error) *AuthResult {
	return &AuthResult{Err: err}
}

// Connection is a contact returned by the People API. It is rendered and
// discarded, never stored.
type Connection struct {
	ResourceName string   `json:"resource_name"`
	DisplayNames []string `json:"display_names,omitempty"`
}

// DisplayName returns the first name entry, if the record has any.
func (c Connection) DisplayName() (string, bool) {
	if len(c.DisplayNames) == 0 {
		return "", false
	}
	return c.DisplayNames[0], true
}

// SessionEvent records one state transition of a session.
type SessionEvent struct {
	ID        ulid.ULID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Event     string    `json:"event"`
	At        time.Time `json:"at"`
}
