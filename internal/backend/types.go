package backend

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// ID is an identifier as the backend sends it. The backend is not consistent
// about ids: some endpoints return numbers, some strings, some null.
type ID string

// UnmarshalJSON accepts a JSON number, string or null
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		// Booleans, objects and arrays are not ids; keep the raw text
		// rather than failing the whole payload.
		*id = ID(strings.Trim(string(data), `"`))
		return nil
	}
	*id = ID(n.String())
	return nil
}

// String returns the id as a plain string
func (id ID) String() string {
	return string(id)
}

// Session is a chat session record as returned by the backend
type Session struct {
	ID        ID         `json:"id"`
	Name      *string    `json:"name"`
	UserID    ID         `json:"user_id"`
	HasFiles  bool       `json:"has_files"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
	Messages  []Message  `json:"messages,omitempty"`
}

// Message is a persisted chat message
type Message struct {
	ID               ID          `json:"id"`
	Role             string      `json:"role"` // "user", "assistant", or "system"
	Content          string      `json:"content"`
	References       []Reference `json:"references,omitempty"`
	Feedback         *Feedback   `json:"feedback,omitempty"`
	PromptTokens     *int        `json:"prompt_tokens,omitempty"`
	CompletionTokens *int        `json:"completion_tokens,omitempty"`
	ResponseTime     *float64    `json:"response_time,omitempty"`
	CreatedAt        *time.Time  `json:"created_at,omitempty"`
}

// Reference points at a source document backing an answer
type Reference struct {
	DocID   *int64  `json:"doc_id"`
	DocName *string `json:"doc_name"`
	Page    *int    `json:"page"`
	Content *string `json:"content"`
}

// Feedback is a user vote on an assistant message
type Feedback struct {
	Rating   *int   `json:"rating"`
	Comments string `json:"comments"`
	UserID   ID     `json:"user_id"`
}

// CreateSessionRequest creates a new, empty session
type CreateSessionRequest struct {
	Name string `json:"name"`
}

// RenameSessionRequest renames an existing session
type RenameSessionRequest struct {
	Name string `json:"name"`
}

// ChatRequest submits a user prompt to a session
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Prompt    string `json:"prompt"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
}

// ChatResponse carries the persisted prompt and the generated answer
type ChatResponse struct {
	UserMessage      Message     `json:"user_message"`
	AssistantMessage Message     `json:"assistant_message"`
	References       []Reference `json:"references,omitempty"`
}

// FeedbackRequest rates an assistant message
type FeedbackRequest struct {
	MessageID string `json:"message_id"`
	Rating    int    `json:"rating"`
	Comments  string `json:"comments,omitempty"`
}

// FeedbackResponse acknowledges a feedback submission
type FeedbackResponse struct {
	ID        ID     `json:"id"`
	MessageID ID     `json:"message_id"`
	Rating    int    `json:"rating"`
	Comments  string `json:"comments"`
	UserID    ID     `json:"user_id"`
}

// Attachment is a file uploaded together with a new session
type Attachment struct {
	Name    string
	Content []byte
}
