// ABOUTME: One-shot commands driving the session flow from a terminal
// ABOUTME: Implements contacts, login, logout, and status
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/harperreed/peoplelogin/flow"
	"github.com/harperreed/peoplelogin/provider"
)

func newContactsCommand(a *app) *cobra.Command {
	var interactive, noInteractive bool

	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "List up to ten Google contacts",
		Long: `Checks for an existing grant without user interaction and lists up to ten
contacts. When no grant exists and stdin is a terminal, falls back to the
browser sign-in.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			allowConsent := term.IsTerminal(int(os.Stdin.Fd()))
			if interactive {
				allowConsent = true
			}
			if noInteractive {
				allowConsent = false
			}

			view := newConsole(cmd.OutOrStdout(), cmd.ErrOrStderr())
			s, err := a.newTerminalSession(view, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			if err := s.ctrl.CheckAuth(ctx); err != nil {
				return err
			}
			if s.ctrl.State() != flow.StateUnauthenticated || !allowConsent {
				return nil
			}

			loginCtx, cancel := context.WithTimeout(ctx, a.cfg.ConsentTimeout)
			defer cancel()
			return s.ctrl.ManualLogin(loginCtx)
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "allow the browser sign-in even when stdin is not a terminal")
	cmd.Flags().BoolVar(&noInteractive, "no-interactive", false, "never open the browser sign-in")
	cmd.MarkFlagsMutuallyExclusive("interactive", "no-interactive")

	return cmd
}

func newLoginCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in with Google in the browser and list contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			view := newConsole(cmd.OutOrStdout(), cmd.ErrOrStderr())
			s, err := a.newTerminalSession(view, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.ConsentTimeout)
			defer cancel()

			if err := s.ctrl.ManualLogin(ctx); err != nil {
				return err
			}
			if s.ctrl.Flags().LoginPrompt {
				return fmt.Errorf("authorization was not granted")
			}
			return nil
		},
	}
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the stored Google grant and forget it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			view := newConsole(cmd.OutOrStdout(), cmd.ErrOrStderr())
			view.quiet = true

			s, err := a.newTerminalSession(view, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			// The revoker reads the stored grant itself.
			return s.ctrl.Logout(cmd.Context())
		},
	}
}

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a usable Google grant is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			view := newConsole(out, cmd.ErrOrStderr())
			view.quiet = true

			s, err := a.newTerminalSession(view, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.ctrl.CheckAuth(cmd.Context()); err != nil {
				a.logger.Debug("status check failed", "err", err)
			}

			flags := s.ctrl.Flags()
			_, _ = fmt.Fprintf(out, "Client ID:   %s\n", a.cfg.ClientID)
			_, _ = fmt.Fprintf(out, "Token file:  %s\n", provider.TokenPath())
			_, _ = fmt.Fprintf(out, "State:       %s\n", flags.State)
			_, _ = fmt.Fprintf(out, "Authorized:  %t\n", flags.Authenticated)
			if tok := s.ctrl.Token(); tok != nil && !tok.Expiry.IsZero() {
				_, _ = fmt.Fprintf(out, "Expires:     %s\n", tok.Expiry.Local().Format(time.DateTime))
			}
			_, _ = fmt.Fprintf(out, "Connections: %d lines\n", len(s.ctrl.Lines()))
			return nil
		},
	}
}
