// ABOUTME: MCP server subcommand
// ABOUTME: Starts the MCP server on stdio for agent integration
package cli

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/harperreed/peoplelogin/handlers"
)

func newMCPCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server on stdio",
		Long: `Runs an MCP server exposing auth_status, list_connections and logout.
It never opens a browser: sign in once with 'peoplelogin login'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.logger.Info("Starting peoplelogin MCP server")

			transcript := &handlers.Transcript{}
			s, err := a.newTerminalSession(transcript, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			server := handlers.NewServer(handlers.NewSessionHandlers(s.ctrl, transcript), a.version)
			return server.Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}
