package chat

import (
	"time"
)

// PendingID marks a message the backend has not confirmed yet
const PendingID = "-1"

// Role identifies the author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Session is a conversation thread with an ordered message history
type Session struct {
	ID        string
	Name      string
	Messages  []Message
	OwnerID   string
	HasFiles  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is a single entry of a session, oldest first
type Message struct {
	ID       string
	Role     Role
	Content  string
	Metadata Metadata
	Feedback *Feedback

	PromptTokens     *int
	CompletionTokens *int
	ResponseTime     *float64
	CreatedAt        time.Time
}

// Metadata contains additional information about a message
type Metadata struct {
	Documents []DocumentReference
}

// DocumentReference is a citation backing an assistant answer
type DocumentReference struct {
	DocID      int64
	DocName    string
	DocPage    int
	DocContent string
}

// Feedback is a user's vote on an assistant message. Rating 0 means no rating.
type Feedback struct {
	Rating      int
	Comments    string
	RaterUserID string
}

// NewUserMessage returns an unconfirmed user message
func NewUserMessage(content string, now time.Time) Message {
	return Message{
		ID:        PendingID,
		Role:      RoleUser,
		Content:   content,
		CreatedAt: now,
	}
}

// Pending reports whether the backend has not assigned an id yet
func (m Message) Pending() bool {
	return m.ID == PendingID
}

// Touch refreshes the modification time
func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now
}

// Clone returns a deep copy that shares no slices with s
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	if s.Messages != nil {
		cp.Messages = make([]Message, len(s.Messages))
		for i, m := range s.Messages {
			cp.Messages[i] = m.clone()
		}
	}
	return &cp
}

func (m Message) clone() Message {
	cp := m
	if m.Metadata.Documents != nil {
		cp.Metadata.Documents = append([]DocumentReference(nil), m.Metadata.Documents...)
	}
	if m.Feedback != nil {
		fb := *m.Feedback
		cp.Feedback = &fb
	}
	return cp
}
