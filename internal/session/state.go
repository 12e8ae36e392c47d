package session

import "fmt"

// SessionState says whether a session is open in the UI
type SessionState int

const (
	NoSession SessionState = iota
	Creating
	Active
	Transitioning
)

func (s SessionState) String() string {
	switch s {
	case NoSession:
		return "no-session"
	case Creating:
		return "creating"
	case Active:
		return "active"
	case Transitioning:
		return "transitioning"
	}
	return fmt.Sprintf("session-state(%d)", int(s))
}

// CreationState tracks a brand-new session on its way to "created".
// Values are ordered; progress normally moves forward, Error can be entered
// from and left to any value.
type CreationState int

const (
	CreationIdle CreationState = iota
	CreationWaitingFirstMessage
	CreationCreating
	CreationWaitingFirstMessageResponse
	CreationRenaming
	CreationCreated
	CreationError
)

func (s CreationState) String() string {
	switch s {
	case CreationIdle:
		return "idle"
	case CreationWaitingFirstMessage:
		return "waiting-first-message"
	case CreationCreating:
		return "creating"
	case CreationWaitingFirstMessageResponse:
		return "waiting-first-message-response"
	case CreationRenaming:
		return "renaming"
	case CreationCreated:
		return "created"
	case CreationError:
		return "error"
	}
	return fmt.Sprintf("creation-state(%d)", int(s))
}

// busy reports whether a creation round trip is in flight
func (s CreationState) busy() bool {
	return s == CreationCreating || s == CreationWaitingFirstMessageResponse || s == CreationRenaming
}

// InteractionState is the UI affordance for the current request/response cycle
type InteractionState int

const (
	InteractionIdle InteractionState = iota
	InteractionTyping
	InteractionLoading
	InteractionDragging
	InteractionError
)

func (s InteractionState) String() string {
	switch s {
	case InteractionIdle:
		return "idle"
	case InteractionTyping:
		return "typing"
	case InteractionLoading:
		return "loading"
	case InteractionDragging:
		return "dragging"
	case InteractionError:
		return "error"
	}
	return fmt.Sprintf("interaction-state(%d)", int(s))
}

// State is a snapshot of the controller's three state variables
type State struct {
	Session     SessionState
	Creation    CreationState
	Interaction InteractionState
}

func (s State) String() string {
	return fmt.Sprintf("session=%s creation=%s interaction=%s", s.Session, s.Creation, s.Interaction)
}

// legalCreation lists, per session state, the creation states that may
// accompany it. A nil entry allows every creation state. Interaction state is
// independent and never restricted.
var legalCreation = map[SessionState]map[CreationState]bool{
	NoSession: nil,
	Creating:  nil,
	Active: {
		CreationIdle:    true,
		CreationCreated: true,
	},
	Transitioning: {
		CreationIdle: true,
	},
}

// Valid reports whether the combination is one the UI can be in
func (s State) Valid() bool {
	allowed, ok := legalCreation[s.Session]
	if !ok {
		return false
	}
	if s.Creation < CreationIdle || s.Creation > CreationError {
		return false
	}
	if s.Interaction < InteractionIdle || s.Interaction > InteractionError {
		return false
	}
	return allowed == nil || allowed[s.Creation]
}

// lifecycle owns the current State. All writes go through its methods so an
// illegal combination can never be stored. Callers hold the controller lock.
type lifecycle struct {
	cur State
}

// setSession moves the session state. Leaving Creating for anything else
// resets the creation state to idle.
func (l *lifecycle) setSession(s SessionState) error {
	next := l.cur
	next.Session = s
	if s != Creating {
		next.Creation = CreationIdle
	}
	return l.commit(next)
}

func (l *lifecycle) setCreation(c CreationState) error {
	next := l.cur
	next.Creation = c
	return l.commit(next)
}

// set applies a session and creation state together, or neither
func (l *lifecycle) set(s SessionState, c CreationState) error {
	next := l.cur
	next.Session = s
	next.Creation = c
	return l.commit(next)
}

func (l *lifecycle) setInteraction(i InteractionState) {
	l.cur.Interaction = i
}

func (l *lifecycle) commit(next State) error {
	if !next.Valid() {
		return fmt.Errorf("%w: %s", ErrIllegalState, next)
	}
	l.cur = next
	return nil
}
