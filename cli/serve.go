// ABOUTME: Web server subcommand
// ABOUTME: Serves the sign-in page with per-session grants kept in SQLite
package cli

import (
	"github.com/spf13/cobra"

	"github.com/harperreed/peoplelogin/db"
	"github.com/harperreed/peoplelogin/flow"
	"github.com/harperreed/peoplelogin/logging"
	"github.com/harperreed/peoplelogin/provider"
	"github.com/harperreed/peoplelogin/web"
)

func newServeCommand(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the sign-in page over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.RequireClientID(); err != nil {
				return err
			}
			if addr != "" {
				a.cfg.ListenAddr = addr
			}

			database, err := db.OpenDatabase(a.cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			oauthConfig := provider.NewOAuthConfig(a.cfg.ClientID, a.cfg.ClientSecret, a.cfg.RedirectURL)
			store := db.NewTokenStore(database)
			base := provider.NewAuthorizer(oauthConfig, store, nil, logging.Component(a.logger, "auth"))

			server, err := web.NewServer(web.Options{
				Config: a.cfg,
				Authorizer: func(key string, consent provider.Consent) flow.Authorizer {
					return base.ForSession(key, consent)
				},
				Contacts: provider.NewPeople(oauthConfig),
				Store:    store,
				DB:       database,
				Logger:   a.logger,
			})
			if err != nil {
				return err
			}

			return server.Start(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address; overrides PEOPLELOGIN_LISTEN_ADDR")
	return cmd
}
