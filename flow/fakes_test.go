// ABOUTME: Hand-written fakes for the flow controller's collaborators
// ABOUTME: Each fake records its calls and can be told to fail
package flow

import (
	"context"
	"sync"

	"golang.org/x/oauth2"

	"github.com/harperreed/peoplelogin/models"
)

type fakeView struct {
	mu        sync.Mutex
	renders   []ViewFlags
	lines     []string
	alerts    []string
	clears    int
	renderErr error
	clearErr  error
	appendErr error
}

func (v *fakeView) Render(flags ViewFlags) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.renderErr != nil {
		return v.renderErr
	}
	v.renders = append(v.renders, flags)
	return nil
}

func (v *fakeView) ClearOutput() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.clearErr != nil {
		return v.clearErr
	}
	v.clears++
	v.lines = nil
	return nil
}

func (v *fakeView) AppendLine(line string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.appendErr != nil {
		return v.appendErr
	}
	v.lines = append(v.lines, line)
	return nil
}

func (v *fakeView) Alert(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.alerts = append(v.alerts, message)
}

func (v *fakeView) last() ViewFlags {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.renders) == 0 {
		return ViewFlags{}
	}
	return v.renders[len(v.renders)-1]
}

type fakeAuthorizer struct {
	result   *models.AuthResult
	requests []models.AuthRequest
	// during runs while the consent is open.
	during func()
}

func (a *fakeAuthorizer) Authorize(_ context.Context, req models.AuthRequest) *models.AuthResult {
	a.requests = append(a.requests, req)
	if a.during != nil {
		a.during()
	}
	return a.result
}

type fakeLister struct {
	conns []models.Connection
	err   error
	calls int
	max   int
	// during runs while the request is in flight.
	during func()
}

func (l *fakeLister) ListConnections(_ context.Context, max int) ([]models.Connection, error) {
	l.calls++
	l.max = max
	if l.during != nil {
		l.during()
	}
	return l.conns, l.err
}

type fakeContacts struct {
	lister *fakeLister
	err    error
	loads  int
	tokens []*oauth2.Token
}

func (c *fakeContacts) Load(_ context.Context, token *oauth2.Token) (ConnectionLister, error) {
	c.loads++
	c.tokens = append(c.tokens, token)
	if c.err != nil {
		return nil, c.err
	}
	return c.lister, nil
}

type fakeLogout struct {
	calls  int
	tokens []*oauth2.Token
	err    error
}

func (l *fakeLogout) Logout(_ context.Context, token *oauth2.Token) error {
	l.calls++
	l.tokens = append(l.tokens, token)
	return l.err
}

type recordedTransition struct {
	from, to State
	ev       Event
}

type fakeObserver struct {
	seen []recordedTransition
}

func (o *fakeObserver) Transition(from, to State, ev Event) {
	o.seen = append(o.seen, recordedTransition{from, to, ev})
}
