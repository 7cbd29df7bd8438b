// ABOUTME: TUI subcommand
// ABOUTME: Runs the bubbletea interface against a terminal session
package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/harperreed/peoplelogin/tui"
)

func newTUICommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Interactive terminal interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			screen := tui.NewScreen()
			s, err := a.newTerminalSession(screen, screen)
			if err != nil {
				return err
			}
			defer s.Close()

			model := tui.NewModel(cmd.Context(), s.ctrl, screen)
			_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
}
