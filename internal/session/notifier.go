package session

import (
	"sync"

	"chatbot-client/internal/backend"
)

// EventKind identifies a notification
type EventKind int

const (
	SessionChanged EventKind = iota
	SessionListUpdated
	PromptSent
	AnswerReceived
	FeedbackSent
)

func (k EventKind) String() string {
	switch k {
	case SessionChanged:
		return "session-changed"
	case SessionListUpdated:
		return "session-list-updated"
	case PromptSent:
		return "prompt-sent"
	case AnswerReceived:
		return "answer-received"
	case FeedbackSent:
		return "feedback-sent"
	}
	return "unknown"
}

// Outcome qualifies an AnswerReceived event
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSuccess
	OutcomeError
	// OutcomeComplete follows the last step of the first-message sequence
	OutcomeComplete
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeError:
		return "error"
	case OutcomeComplete:
		return "complete"
	}
	return ""
}

// Event is a fire-and-forget notification. It carries no session data;
// observers read the Store for details.
type Event struct {
	Kind     EventKind
	Outcome  Outcome
	Feedback *backend.FeedbackResponse
}

// Observer receives controller events
type Observer interface {
	Notify(Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Event)

func (f ObserverFunc) Notify(e Event) { f(e) }

// Notifier fans events out to subscribers in subscription order
type Notifier struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
}

type subscription struct {
	id  int
	obs Observer
}

// NewNotifier creates a notifier without subscribers
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Subscribe registers obs and returns a function that removes it again
func (n *Notifier) Subscribe(obs Observer) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.subs = append(n.subs, subscription{id: id, obs: obs})

	var once sync.Once
	return func() {
		once.Do(func() { n.remove(id) })
	}
}

func (n *Notifier) remove(id int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, s := range n.subs {
		if s.id == id {
			n.subs = append(n.subs[:i:i], n.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers e to every current subscriber. It must not be called with
// the controller lock held.
func (n *Notifier) Publish(e Event) {
	n.mu.RLock()
	subs := make([]subscription, len(n.subs))
	copy(subs, n.subs)
	n.mu.RUnlock()

	for _, s := range subs {
		s.obs.Notify(e)
	}
}
