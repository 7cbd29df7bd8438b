// ABOUTME: Visualization CLI commands
// ABOUTME: Handles the flow graph and session history commands
package cli

import (
	"fmt"
	"os"

	"github.com/goccy/go-graphviz"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/harperreed/peoplelogin/db"
	"github.com/harperreed/peoplelogin/flow"
	"github.com/harperreed/peoplelogin/viz"
)

func newGraphCommand(_ *app) *cobra.Command {
	var format, output, current string

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the session flow as a Graphviz graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := viz.FlowGraphOptions{}

			switch format {
			case "dot":
				opts.Format = graphviz.XDOT
			case "svg":
				opts.Format = graphviz.SVG
			default:
				return fmt.Errorf("unsupported format %q (use dot or svg)", format)
			}

			if current != "" {
				state, err := flow.ParseState(current)
				if err != nil {
					return err
				}
				opts.Current = &state
			}

			graph, err := viz.GenerateFlowGraph(cmd.Context(), opts)
			if err != nil {
				return err
			}

			if output != "" {
				return os.WriteFile(output, []byte(graph), 0644)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), graph)
			return err
		},
	}

	cmd.Flags().StringVar(&format, "format", "dot", "output format: dot or svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&current, "state", "", "highlight this state")
	return cmd
}

func newHistoryCommand(a *app) *cobra.Command {
	var sessionID string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded session transitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter *uuid.UUID
			if sessionID != "" {
				id, err := uuid.Parse(sessionID)
				if err != nil {
					return fmt.Errorf("invalid session ID: %w", err)
				}
				filter = &id
			}

			database, err := db.OpenDatabase(a.cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			events, err := db.ListEvents(database, filter, limit)
			if err != nil {
				return err
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), viz.RenderHistory(viz.GenerateHistoryStats(events)))
			return err
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "only this session ID")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of transitions")
	return cmd
}
