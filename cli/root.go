// ABOUTME: Root cobra command and shared startup for every subcommand
// ABOUTME: Loads configuration once and sets up structured logging
package cli

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/harperreed/peoplelogin/config"
	"github.com/harperreed/peoplelogin/logging"
)

// app carries what PersistentPreRunE resolved for the running command.
type app struct {
	version string

	envFile  string
	logLevel string
	dbPath   string

	cfg    *config.Config
	logger *log.Logger
}

// NewRootCommand builds the peoplelogin command tree.
func NewRootCommand(version string) *cobra.Command {
	a := &app{version: version}

	root := &cobra.Command{
		Use:   "peoplelogin",
		Short: "Sign in with Google and list your contacts",
		Long: `peoplelogin signs in to a Google account and lists up to ten of its
contacts by display name. It runs as a one-shot command, a terminal UI,
a web page, or an MCP server.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file to load before the environment")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides PEOPLELOGIN_LOG_LEVEL")
	root.PersistentFlags().StringVar(&a.dbPath, "db-path", "", "database path; overrides PEOPLELOGIN_DB_PATH")

	root.AddCommand(
		newContactsCommand(a),
		newLoginCommand(a),
		newLogoutCommand(a),
		newStatusCommand(a),
		newTUICommand(a),
		newServeCommand(a),
		newMCPCommand(a),
		newGraphCommand(a),
		newHistoryCommand(a),
		newVersionCommand(a),
	)

	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}

	a.cfg = cfg
	a.logger = logging.Setup(cfg.LogLevel)
	a.logger.Debug("configuration loaded", "command", cmd.Name(), "db", cfg.DBPath, "client_id_set", cfg.ClientID != "")
	return nil
}

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "peoplelogin version %s\n", a.version)
		},
	}
}
