// ABOUTME: Session states, events and the transition table
// ABOUTME: The table is the single source of truth for both the controller and the graph renderer
package flow

import (
	"errors"
	"fmt"
)

// State is where a session currently sits in the authorization flow.
type State int

const (
	StateUnauthenticated State = iota
	StatePending
	StateAuthenticated
	StateListing
	StateIdle
	StateLoggedOut
)

var stateNames = map[State]string{
	StateUnauthenticated: "unauthenticated",
	StatePending:         "pending",
	StateAuthenticated:   "authenticated",
	StateListing:         "listing",
	StateIdle:            "idle",
	StateLoggedOut:       "logged_out",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ParseState returns the state with the given name.
func ParseState(name string) (State, error) {
	for s, n := range stateNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown state %q", name)
}

// AllStates lists every state in declaration order.
func AllStates() []State {
	return []State{
		StateUnauthenticated,
		StatePending,
		StateAuthenticated,
		StateListing,
		StateIdle,
		StateLoggedOut,
	}
}

// Event is something that moves a session between states.
type Event string

const (
	EventCheck      Event = "check"
	EventLogin      Event = "login"
	EventAuthorized Event = "authorized"
	EventDenied     Event = "denied"
	EventLoadFailed Event = "load_failed"
	EventList       Event = "list"
	EventListed     Event = "listed"
	EventListFailed Event = "list_failed"
	EventLogout     Event = "logout"
)

// ErrInvalidTransition is returned when an event does not apply to the
// current state.
var ErrInvalidTransition = errors.New("invalid transition")

// Transition is one edge of the state machine.
type Transition struct {
	From  State
	Event Event
	To    State
}

var transitions = buildTransitions()

func buildTransitions() []Transition {
	table := []Transition{
		{StateUnauthenticated, EventCheck, StatePending},
		{StateUnauthenticated, EventLogin, StatePending},
		{StatePending, EventAuthorized, StateAuthenticated},
		{StatePending, EventDenied, StateUnauthenticated},
		{StateAuthenticated, EventList, StateListing},
		{StateAuthenticated, EventLoadFailed, StateUnauthenticated},
		{StateListing, EventListed, StateIdle},
		{StateListing, EventListFailed, StateIdle},
		{StateIdle, EventList, StateListing},
		{StateIdle, EventCheck, StatePending},
		{StateIdle, EventLogin, StatePending},
		{StateLoggedOut, EventCheck, StatePending},
		{StateLoggedOut, EventLogin, StatePending},
	}

	// Logout is a side exit from everywhere, including itself.
	for _, s := range AllStates() {
		table = append(table, Transition{s, EventLogout, StateLoggedOut})
	}

	return table
}

// Transitions returns a copy of the transition table.
func Transitions() []Transition {
	out := make([]Transition, len(transitions))
	copy(out, transitions)
	return out
}

// Next looks up where ev leads from the given state.
func Next(from State, ev Event) (State, error) {
	for _, t := range transitions {
		if t.From == from && t.Event == ev {
			return t.To, nil
		}
	}
	return from, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, from, ev)
}
