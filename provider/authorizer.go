// ABOUTME: Immediate and interactive authorization against Google OAuth
// ABOUTME: Immediate refreshes a stored grant silently; interactive goes through a Consent prompt
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/harperreed/peoplelogin/models"
)

var (
	// ErrImmediateFailed marks an immediate check that found no usable grant.
	ErrImmediateFailed = errors.New("immediate_failed")

	// ErrNoConsent is returned when interactive authorization has no prompt.
	ErrNoConsent = errors.New("no consent prompt available")
)

// Consent shows the provider's consent screen for authURL and returns the
// authorization code delivered back with the matching state.
type Consent interface {
	Prompt(ctx context.Context, authURL, state string) (string, error)
}

// Authorizer implements the identity provider surface on top of oauth2.
type Authorizer struct {
	config  *oauth2.Config
	store   TokenStore
	consent Consent
	key     string
	logger  *log.Logger
}

// NewAuthorizer creates an authorizer. consent may be nil, in which case
// only immediate checks can succeed.
func NewAuthorizer(config *oauth2.Config, store TokenStore, consent Consent, logger *log.Logger) *Authorizer {
	if logger == nil {
		logger = log.Default()
	}
	return &Authorizer{
		config:  config,
		store:   store,
		consent: consent,
		logger:  logger.WithPrefix("auth"),
	}
}

// ForSession returns a copy bound to a session key and consent prompt.
func (a *Authorizer) ForSession(key string, consent Consent) *Authorizer {
	cp := *a
	cp.key = key
	if consent != nil {
		cp.consent = consent
	}
	return &cp
}

// Authorize runs an immediate or interactive authorization. Failures are
// reported inside the result, never as a Go error.
func (a *Authorizer) Authorize(ctx context.Context, req models.AuthRequest) *models.AuthResult {
	cfg := a.configFor(req)
	if req.Immediate {
		return a.immediate(ctx, cfg)
	}
	return a.interactive(ctx, cfg)
}

func (a *Authorizer) configFor(req models.AuthRequest) *oauth2.Config {
	cfg := *a.config
	if req.ClientID != "" {
		cfg.ClientID = req.ClientID
	}
	if len(req.Scopes) > 0 {
		cfg.Scopes = req.Scopes
	}
	return &cfg
}

func (a *Authorizer) immediate(ctx context.Context, cfg *oauth2.Config) *models.AuthResult {
	stored, err := a.store.Load(ctx, a.key)
	if err != nil {
		return models.Denied(fmt.Errorf("%w: %w", ErrImmediateFailed, err))
	}

	fresh, err := cfg.TokenSource(ctx, stored).Token()
	if err != nil {
		a.logger.Debug("stored grant could not be refreshed", "err", err)
		return models.Denied(fmt.Errorf("%w: %w", ErrImmediateFailed, err))
	}

	if fresh.AccessToken != stored.AccessToken {
		if err := a.store.Save(ctx, a.key, fresh); err != nil {
			a.logger.Warn("failed to persist refreshed token", "err", err)
		}
	}

	return models.Granted(fresh)
}

func (a *Authorizer) interactive(ctx context.Context, cfg *oauth2.Config) *models.AuthResult {
	if a.consent == nil {
		return models.Denied(ErrNoConsent)
	}

	state := uuid.NewString()
	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)

	code, err := a.consent.Prompt(ctx, authURL, state)
	if err != nil {
		return models.Denied(fmt.Errorf("consent failed: %w", err))
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return models.Denied(fmt.Errorf("failed to exchange code: %w", err))
	}

	if err := a.store.Save(ctx, a.key, token); err != nil {
		a.logger.Warn("failed to save token", "err", err)
	}

	a.logger.Info("authorization granted")
	return models.Granted(token)
}
