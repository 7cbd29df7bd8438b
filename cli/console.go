// ABOUTME: Line-oriented flow.View for one-shot terminal commands
// ABOUTME: Prints connection lines to stdout and alerts to stderr
package cli

import (
	"fmt"
	"io"

	"github.com/harperreed/peoplelogin/flow"
)

// console prints what changed since the last render.
type console struct {
	out io.Writer
	err io.Writer
	// quiet drops output lines; notices and alerts still print.
	quiet bool

	last flow.ViewFlags
}

func newConsole(out, err io.Writer) *console {
	return &console{out: out, err: err, last: flow.Project(flow.StateUnauthenticated, flow.ButtonNormal)}
}

func (c *console) Render(flags flow.ViewFlags) error {
	prev := c.last
	c.last = flags

	if flags.LoggedOutNotice && !prev.LoggedOutNotice {
		_, _ = fmt.Fprintln(c.out, "Logged out.")
	}
	if flags.LoginPrompt && !flags.Busy && (!prev.LoginPrompt || prev.Busy) {
		_, _ = fmt.Fprintln(c.err, "Not signed in. Run `peoplelogin login` to authorize access to Google People API.")
	}
	return nil
}

func (c *console) ClearOutput() error { return nil }

func (c *console) AppendLine(line string) error {
	if c.quiet {
		return nil
	}
	_, err := fmt.Fprintln(c.out, line)
	return err
}

func (c *console) Alert(message string) {
	_, _ = fmt.Fprintln(c.err, message)
}
