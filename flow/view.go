// ABOUTME: View flags and the pure projection from session state to what a surface shows
// ABOUTME: Also defines the View contract surfaces implement and the login button palette
package flow

import "errors"

// ErrElementMissing is returned by a View when an element it must toggle
// does not exist.
var ErrElementMissing = errors.New("ui element missing")

// Element identifiers every surface exposes.
const (
	ElementAuthorize = "authorize-div"
	ElementOutput    = "output"
	ElementLogout    = "logout-button"
	ElementLoggedOut = "logged-out"
	ElementButtonBox = "google_box_right_id"
)

// ButtonState is the visual state of the login button.
type ButtonState int

const (
	ButtonNormal ButtonState = iota
	ButtonHover
	ButtonPressed
)

func (b ButtonState) String() string {
	switch b {
	case ButtonHover:
		return "hover"
	case ButtonPressed:
		return "pressed"
	default:
		return "normal"
	}
}

// ButtonPalette holds the colours for one button state: a border gradient
// and the fill of the right-hand box.
type ButtonPalette struct {
	BorderTop    string
	BorderBottom string
	Box          string
}

// Palette returns the colours the login button uses in state b.
func (b ButtonState) Palette() ButtonPalette {
	switch b {
	case ButtonHover:
		return ButtonPalette{BorderTop: "#4285EB", BorderBottom: "#1A5DCC", Box: "#4285F4"}
	case ButtonPressed:
		return ButtonPalette{BorderTop: "#5699FF", BorderBottom: "#2E71E0", Box: "#2467D6"}
	default:
		return ButtonPalette{BorderTop: "#5699FF", BorderBottom: "#2E71E0", Box: "#4285F4"}
	}
}

// ViewFlags is everything a surface needs to decide what to show.
type ViewFlags struct {
	State           State
	LoginPrompt     bool
	Authenticated   bool
	LogoutButton    bool
	LoggedOutNotice bool
	Busy            bool
	Button          ButtonState
}

// Project maps a state and button state to view flags. The login prompt
// and the authenticated view are never both shown.
func Project(state State, button ButtonState) ViewFlags {
	flags := ViewFlags{State: state, Button: button}

	switch state {
	case StateUnauthenticated:
		flags.LoginPrompt = true
	case StatePending:
		// An interactive attempt keeps the pressed button on screen.
		flags.LoginPrompt = button == ButtonPressed
		flags.Busy = true
	case StateAuthenticated:
		flags.Authenticated = true
		flags.Busy = true
	case StateListing:
		flags.Authenticated = true
		flags.LogoutButton = true
		flags.Busy = true
	case StateIdle:
		flags.Authenticated = true
		flags.LogoutButton = true
	case StateLoggedOut:
		flags.LoggedOutNotice = true
	}

	if !flags.LoginPrompt {
		flags.Button = ButtonNormal
	}

	return flags
}

// View is a surface the controller drives: a terminal, a TUI, a web page.
type View interface {
	// Render applies visibility flags. It returns ErrElementMissing when
	// an element it must toggle is absent.
	Render(flags ViewFlags) error
	// ClearOutput empties the output block.
	ClearOutput() error
	// AppendLine adds one line to the output block.
	AppendLine(line string) error
	// Alert reports an error to the user. It is the only error channel.
	Alert(message string)
}
