package ui

import (
	"fmt"

	"chatbot-client/internal/chat"
	"chatbot-client/internal/session"
)

// SessionSource is the read side of the session store the display needs
type SessionSource interface {
	Active() *chat.Session
}

// Watch subscribes the display to controller events. It returns the
// unsubscribe function.
func (d *Display) Watch(n *session.Notifier, sessions SessionSource) func() {
	return n.Subscribe(session.ObserverFunc(func(e session.Event) {
		d.handle(e, sessions)
	}))
}

func (d *Display) handle(e session.Event, sessions SessionSource) {
	switch e.Kind {
	case session.PromptSent:
		d.startSpinner("Thinking")

	case session.AnswerReceived:
		d.stopSpinner()
		switch e.Outcome {
		case session.OutcomeError:
			d.PrintWarning("No answer received")
		case session.OutcomeComplete:
			if active := sessions.Active(); active != nil {
				d.PrintInfo(fmt.Sprintf("Session saved as %q", active.Name))
			}
		}

	case session.SessionChanged:
		if active := sessions.Active(); active != nil {
			d.PrintInfo(fmt.Sprintf("Now in %q (%s, %d messages)", active.Name, active.ID, len(active.Messages)))
		}

	case session.SessionListUpdated:
		if d.verbose {
			d.PrintInfo("Session list updated")
		}

	case session.FeedbackSent:
		if e.Feedback != nil {
			d.PrintSuccess(fmt.Sprintf("Feedback recorded for message %s (rating %d)", e.Feedback.MessageID, e.Feedback.Rating))
		} else {
			d.PrintSuccess("Feedback recorded")
		}
	}
}
