// ABOUTME: Session flow controller driving authorization, contact listing and logout
// ABOUTME: Owns the session state and projects it onto a View after every transition
package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/harperreed/peoplelogin/models"
)

var (
	// ErrNoContactsAPI is returned when listing is attempted before the
	// contacts API was loaded.
	ErrNoContactsAPI = errors.New("contacts API not loaded")

	// ErrLoggedOut is returned when a logout lands while an authorization
	// or contacts load is in flight. The late result is discarded.
	ErrLoggedOut = errors.New("session logged out during authorization")
)

// Authorizer asks the identity provider for a grant. It never returns a
// Go error: failures travel inside the result.
type Authorizer interface {
	Authorize(ctx context.Context, req models.AuthRequest) *models.AuthResult
}

// ContactsLoader loads the contacts API for an authorized token.
type ContactsLoader interface {
	Load(ctx context.Context, token *oauth2.Token) (ConnectionLister, error)
}

// ConnectionLister fetches connection records for the authorized identity.
type ConnectionLister interface {
	ListConnections(ctx context.Context, max int) ([]models.Connection, error)
}

// LogoutChannel fires the provider's logout side effect.
type LogoutChannel interface {
	Logout(ctx context.Context, token *oauth2.Token) error
}

// Observer is told about every state change.
type Observer interface {
	Transition(from, to State, ev Event)
}

// Options wires a Controller to its collaborators.
type Options struct {
	ClientID   string
	Scopes     []string
	PageSize   int
	Authorizer Authorizer
	Contacts   ContactsLoader
	Logout     LogoutChannel
	View       View
	Observer   Observer
	Logger     *log.Logger
}

// Controller runs one session through the authorization flow.
type Controller struct {
	clientID   string
	scopes     []string
	pageSize   int
	authorizer Authorizer
	contacts   ContactsLoader
	logout     LogoutChannel
	view       View
	observer   Observer
	logger     *log.Logger

	mu     sync.Mutex
	state  State
	gen    uint64
	button ButtonState
	token  *oauth2.Token
	lister ConnectionLister
	lines  []string
}

// NewController creates a controller in the unauthenticated state.
func NewController(opts Options) *Controller {
	scopes := opts.Scopes
	if len(scopes) == 0 {
		scopes = []string{models.ScopeContactsReadOnly}
	}

	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > 10 {
		pageSize = 10
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Controller{
		clientID:   opts.ClientID,
		scopes:     scopes,
		pageSize:   pageSize,
		authorizer: opts.Authorizer,
		contacts:   opts.Contacts,
		logout:     opts.Logout,
		view:       opts.View,
		observer:   opts.Observer,
		logger:     logger.WithPrefix("flow"),
		state:      StateUnauthenticated,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Flags returns the current projection.
func (c *Controller) Flags() ViewFlags {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Project(c.state, c.button)
}

// Lines returns a copy of the output block.
func (c *Controller) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}

// Token returns the token of the current grant, if any.
func (c *Controller) Token() *oauth2.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// CheckAuth requests a non-interactive authorization check and hands the
// result on as AuthCallback would.
func (c *Controller) CheckAuth(ctx context.Context) error {
	gen, err := c.advance(EventCheck)
	if err != nil {
		return err
	}
	if err := c.render(); err != nil {
		return err
	}

	result := c.authorizer.Authorize(ctx, c.request(true))
	return c.complete(ctx, gen, result)
}

// ManualLogin presses the login button and requests interactive
// authorization. This is the only path that may show a consent screen.
func (c *Controller) ManualLogin(ctx context.Context) error {
	gen, err := c.advance(EventLogin)
	if err != nil {
		return err
	}

	c.setButton(ButtonPressed)
	if err := c.render(); err != nil {
		return err
	}

	result := c.authorizer.Authorize(ctx, c.request(false))
	return c.complete(ctx, gen, result)
}

// AuthCallback handles an authorization result. Without an error the
// login prompt is hidden and the contacts API loaded; otherwise the login
// prompt is shown and the session waits for ManualLogin.
func (c *Controller) AuthCallback(ctx context.Context, result *models.AuthResult) error {
	gen := c.generation()

	// A result arriving outside a check still counts as one.
	if c.State() != StatePending {
		var err error
		if gen, err = c.advance(EventCheck); err != nil {
			return err
		}
	}
	return c.complete(ctx, gen, result)
}

// complete applies a result obtained under generation gen. A logout since
// then makes the result stale: a late grant goes straight back through the
// logout channel and the session stays logged out.
func (c *Controller) complete(ctx context.Context, gen uint64, result *models.AuthResult) error {
	c.mu.Lock()
	stale := c.gen != gen
	if !stale {
		c.button = ButtonNormal
		if result.OK() {
			c.token = result.Token
		}
	}
	c.mu.Unlock()

	if stale {
		c.logger.Warn("discarding authorization result after logout")
		if result.OK() && c.logout != nil {
			if err := c.logout.Logout(ctx, result.Token); err != nil {
				c.logger.Warn("failed to discard late grant", "err", err)
			}
		}
		return ErrLoggedOut
	}

	if !result.OK() {
		if result != nil {
			c.logger.Debug("authorization not granted", "reason", result.Err)
		}
		if err := c.fire(EventDenied); err != nil {
			return err
		}
		return c.render()
	}

	if err := c.fire(EventAuthorized); err != nil {
		return err
	}
	if err := c.render(); err != nil {
		return err
	}

	return c.load(ctx, gen)
}

// LoadContactsAPI loads the contacts API and then lists connections.
func (c *Controller) LoadContactsAPI(ctx context.Context) error {
	return c.load(ctx, c.generation())
}

func (c *Controller) load(ctx context.Context, gen uint64) error {
	lister, err := c.contacts.Load(ctx, c.Token())
	if err != nil {
		c.logger.Error("failed to load contacts API", "err", err)
		c.alert(err)
		if ferr := c.fire(EventLoadFailed); ferr != nil {
			return ferr
		}
		_ = c.render()
		return fmt.Errorf("failed to load contacts API: %w", err)
	}

	c.mu.Lock()
	stale := c.gen != gen
	if !stale {
		c.lister = lister
	}
	c.mu.Unlock()
	if stale {
		return ErrLoggedOut
	}

	return c.ListConnections(ctx)
}

// ListConnections fetches up to the page size of connections and writes
// them to the output block. The logout control is shown as soon as the
// request is issued, before it completes.
func (c *Controller) ListConnections(ctx context.Context) error {
	c.mu.Lock()
	lister := c.lister
	c.mu.Unlock()
	if lister == nil {
		return ErrNoContactsAPI
	}

	if err := c.fire(EventList); err != nil {
		return err
	}

	c.mu.Lock()
	c.lines = nil
	c.mu.Unlock()
	if err := c.view.ClearOutput(); err != nil {
		c.alert(err)
		return c.abortListing(fmt.Errorf("failed to clear output: %w", err))
	}
	if err := c.render(); err != nil {
		return c.abortListing(err)
	}

	conns, err := lister.ListConnections(ctx, c.pageSize)
	if err != nil {
		c.logger.Error("failed to list connections", "err", err)
		c.alert(err)
		if ferr := c.fire(EventListFailed); ferr != nil {
			return ferr
		}
		_ = c.render()
		return fmt.Errorf("failed to list connections: %w", err)
	}

	for _, line := range FormatConnections(conns, c.pageSize) {
		if err := c.view.AppendLine(line); err != nil {
			c.alert(err)
			return c.abortListing(fmt.Errorf("failed to append output: %w", err))
		}
		c.mu.Lock()
		c.lines = append(c.lines, line)
		c.mu.Unlock()
	}

	c.logger.Info("listed connections", "count", min(len(conns), c.pageSize))

	if err := c.fire(EventListed); err != nil {
		return err
	}
	return c.render()
}

// Logout fires the logout side channel, hides the logout control and
// shows the logged-out notice, whatever the prior state.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	token := c.token
	c.token = nil
	c.lister = nil
	c.button = ButtonNormal
	c.mu.Unlock()

	if c.logout != nil {
		if err := c.logout.Logout(ctx, token); err != nil {
			c.logger.Warn("logout side channel failed", "err", err)
		}
	}

	if err := c.fire(EventLogout); err != nil {
		return err
	}
	return c.render()
}

// Hover switches the login button between its hover and normal look. It
// is a no-op unless the login prompt is shown and not already pressed.
func (c *Controller) Hover(over bool) error {
	c.mu.Lock()
	flags := Project(c.state, c.button)
	if !flags.LoginPrompt || c.button == ButtonPressed {
		c.mu.Unlock()
		return nil
	}
	if over {
		c.button = ButtonHover
	} else {
		c.button = ButtonNormal
	}
	c.mu.Unlock()

	return c.render()
}

func (c *Controller) request(immediate bool) models.AuthRequest {
	scopes := make([]string, len(c.scopes))
	copy(scopes, c.scopes)
	return models.AuthRequest{
		ClientID:  c.clientID,
		Scopes:    scopes,
		Immediate: immediate,
	}
}

// abortListing moves a session whose output could not be written out of
// Listing so it can relist. The view already alerted.
func (c *Controller) abortListing(err error) error {
	if ferr := c.fire(EventListFailed); ferr != nil {
		return ferr
	}
	_ = c.view.Render(c.Flags())
	return err
}

func (c *Controller) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *Controller) setButton(b ButtonState) {
	c.mu.Lock()
	c.button = b
	c.mu.Unlock()
}

func (c *Controller) fire(ev Event) error {
	_, err := c.advance(ev)
	return err
}

// advance applies ev and returns the logout generation it was applied in.
func (c *Controller) advance(ev Event) (uint64, error) {
	c.mu.Lock()
	from := c.state
	gen := c.gen
	to, err := Next(from, ev)
	if err != nil {
		c.mu.Unlock()
		c.logger.Warn("rejected event", "state", from, "event", ev)
		return gen, err
	}
	c.state = to
	c.mu.Unlock()

	c.logger.Debug("transition", "from", from, "event", ev, "to", to)
	if c.observer != nil {
		c.observer.Transition(from, to, ev)
	}
	return gen, nil
}

// render projects the current state onto the view. A missing element is
// reported through Alert and aborts the caller.
func (c *Controller) render() error {
	if err := c.view.Render(c.Flags()); err != nil {
		c.alert(err)
		return fmt.Errorf("failed to render view: %w", err)
	}
	return nil
}

func (c *Controller) alert(err error) {
	c.view.Alert(fmt.Sprintf("error:  %v", err))
}
