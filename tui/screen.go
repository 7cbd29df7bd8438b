// ABOUTME: Thread-safe flow.View that buffers what the TUI should draw
// ABOUTME: Controller calls run in tea.Cmd goroutines and write here; the model reads snapshots
package tui

import (
	"strings"
	"sync"

	"github.com/harperreed/peoplelogin/flow"
)

const maxAlerts = 3

// Screen collects flags, output lines and alerts from a controller.
// It also accepts consent instructions through Write.
type Screen struct {
	mu     sync.Mutex
	flags  flow.ViewFlags
	lines  []string
	alerts []string
	notice strings.Builder
}

// Snapshot is a point-in-time copy of a Screen.
type Snapshot struct {
	Flags  flow.ViewFlags
	Lines  []string
	Alerts []string
	Notice string
}

func NewScreen() *Screen {
	return &Screen{flags: flow.Project(flow.StateUnauthenticated, flow.ButtonNormal)}
}

func (s *Screen) Render(flags flow.ViewFlags) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags = flags
	if flags.State != flow.StatePending {
		s.notice.Reset()
	}
	return nil
}

func (s *Screen) ClearOutput() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	return nil
}

func (s *Screen) AppendLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
	return nil
}

func (s *Screen) Alert(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, message)
	if len(s.alerts) > maxAlerts {
		s.alerts = s.alerts[len(s.alerts)-maxAlerts:]
	}
}

// Write receives the consent URL printed while an interactive login waits.
func (s *Screen) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notice.Write(p)
}

func (s *Screen) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Flags:  s.flags,
		Lines:  append([]string(nil), s.lines...),
		Alerts: append([]string(nil), s.alerts...),
		Notice: strings.TrimSpace(s.notice.String()),
	}
}
