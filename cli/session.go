// ABOUTME: Builds a flow controller for terminal surfaces
// ABOUTME: Wires the Google authorizer, People API, file token store and session event log
package cli

import (
	"database/sql"
	"io"

	"github.com/google/uuid"

	"github.com/harperreed/peoplelogin/db"
	"github.com/harperreed/peoplelogin/flow"
	"github.com/harperreed/peoplelogin/logging"
	"github.com/harperreed/peoplelogin/provider"
)

type terminalSession struct {
	ctrl  *flow.Controller
	store provider.TokenStore
	db    *sql.DB
}

func (s *terminalSession) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

// newTerminalSession wires a controller rendering into view. When
// consentOut is nil the session can only authorize silently.
func (a *app) newTerminalSession(view flow.View, consentOut io.Writer) (*terminalSession, error) {
	if err := a.cfg.RequireClientID(); err != nil {
		return nil, err
	}

	oauthConfig := provider.NewOAuthConfig(a.cfg.ClientID, a.cfg.ClientSecret, a.cfg.RedirectURL)
	store := provider.NewFileTokenStore()

	var consent provider.Consent
	if consentOut != nil {
		consent = &provider.LoopbackConsent{
			RedirectURL: a.cfg.RedirectURL,
			Out:         consentOut,
			Logger:      logging.Component(a.logger, "consent"),
		}
	}

	s := &terminalSession{store: store}

	var observer flow.Observer
	database, err := db.OpenDatabase(a.cfg.DBPath)
	if err != nil {
		a.logger.Warn("session history disabled", "db", a.cfg.DBPath, "err", err)
	} else {
		s.db = database
		observer = db.NewEventRecorder(database, uuid.New(), a.logger)
	}

	s.ctrl = flow.NewController(flow.Options{
		ClientID:   a.cfg.ClientID,
		PageSize:   a.cfg.PageSize,
		Authorizer: provider.NewAuthorizer(oauthConfig, store, consent, logging.Component(a.logger, "auth")),
		Contacts:   provider.NewPeople(oauthConfig),
		Logout:     &provider.Revoker{Store: store},
		View:       view,
		Observer:   observer,
		Logger:     a.logger,
	})

	return s, nil
}
