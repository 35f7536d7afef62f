// Package playback owns the Idle/Speaking lifecycle of utterances.
package playback

import "github.com/rs/xid"

type State int

const (
	Idle State = iota
	Speaking
)

func (s State) String() string {
	if s == Speaking {
		return "speaking"
	}
	return "idle"
}

// RequestID identifies one utterance request so late callbacks from an
// earlier request can be told apart from the active one.
type RequestID = xid.ID

type EventKind int

const (
	EventSubmit EventKind = iota
	EventStart
	EventEnd
	EventError
	EventCancel
)

func (k EventKind) String() string {
	switch k {
	case EventSubmit:
		return "submit"
	case EventStart:
		return "start"
	case EventEnd:
		return "end"
	case EventError:
		return "error"
	case EventCancel:
		return "cancel"
	}
	return "unknown"
}

type Event struct {
	Kind   EventKind
	ID     RequestID
	Reason string
}

// Machine is the playback state. Confirmed is set once the engine reports
// that the active request actually started.
type Machine struct {
	State     State
	Active    RequestID
	Confirmed bool
}

// Transition applies e to m. The second result is false when e doesn't
// apply: a submit while speaking, or a lifecycle event for a request that
// isn't the active one.
func Transition(m Machine, e Event) (Machine, bool) {
	switch e.Kind {
	case EventSubmit:
		if m.State == Speaking {
			return m, false
		}
		return Machine{State: Speaking, Active: e.ID}, true

	case EventStart:
		if m.State != Speaking || m.Active != e.ID {
			return m, false
		}
		m.Confirmed = true
		return m, true

	case EventEnd, EventError:
		if m.State != Speaking || m.Active != e.ID {
			return m, false
		}
		return Machine{}, true

	case EventCancel:
		return Machine{}, m.State == Speaking
	}

	return m, false
}
