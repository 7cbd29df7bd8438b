// ABOUTME: Server-side page model implementing flow.View for one browser session
// ABOUTME: Tracks visibility flags, output lines and pending alerts between requests
package web

import (
	"fmt"
	"sync"

	"github.com/harperreed/peoplelogin/flow"
)

var requiredElements = []string{
	flow.ElementAuthorize,
	flow.ElementButtonBox,
	flow.ElementOutput,
	flow.ElementLogout,
	flow.ElementLoggedOut,
}

// Page is what the next response for a session shows.
type Page struct {
	elements map[string]bool

	mu          sync.Mutex
	flags       flow.ViewFlags
	lines       []string
	alerts      []string
	logoutFrame bool
}

func newPage(elements map[string]bool) *Page {
	return &Page{
		elements: elements,
		flags:    flow.Project(flow.StateUnauthenticated, flow.ButtonNormal),
	}
}

func (p *Page) Render(flags flow.ViewFlags) error {
	for _, id := range requiredElements {
		if !p.elements[id] {
			return fmt.Errorf("%w: %s", flow.ErrElementMissing, id)
		}
	}

	p.mu.Lock()
	p.flags = flags
	p.mu.Unlock()
	return nil
}

func (p *Page) ClearOutput() error {
	if !p.elements[flow.ElementOutput] {
		return fmt.Errorf("%w: %s", flow.ErrElementMissing, flow.ElementOutput)
	}
	p.mu.Lock()
	p.lines = nil
	p.mu.Unlock()
	return nil
}

func (p *Page) AppendLine(line string) error {
	if !p.elements[flow.ElementOutput] {
		return fmt.Errorf("%w: %s", flow.ErrElementMissing, flow.ElementOutput)
	}
	p.mu.Lock()
	p.lines = append(p.lines, line)
	p.mu.Unlock()
	return nil
}

// Alert queues a message shown with the next response.
func (p *Page) Alert(message string) {
	p.mu.Lock()
	p.alerts = append(p.alerts, message)
	p.mu.Unlock()
}

func (p *Page) requestLogoutFrame() {
	p.mu.Lock()
	p.logoutFrame = true
	p.mu.Unlock()
}

type pageData struct {
	Flags       flow.ViewFlags
	Palette     flow.ButtonPalette
	Lines       []string
	Alerts      []string
	LogoutURL   string
	LogoutFrame bool
}

// data snapshots the page for one response. Alerts and the logout frame
// are shown once.
func (p *Page) data(logoutURL string) pageData {
	p.mu.Lock()
	defer p.mu.Unlock()

	d := pageData{
		Flags:       p.flags,
		Palette:     p.flags.Button.Palette(),
		Lines:       append([]string(nil), p.lines...),
		Alerts:      p.alerts,
		LogoutURL:   logoutURL,
		LogoutFrame: p.logoutFrame,
	}
	p.alerts = nil
	p.logoutFrame = false
	return d
}
