package chat

import (
	"time"

	"chatbot-client/internal/backend"
)

// Fallbacks used when the backend omits a field.
const (
	DefaultSessionName = "Untitled"
	DefaultOwner       = "Unknown User"
	DefaultDocName     = "Unknown Document"
	DefaultDocPage     = 1
)

// ToClientSession maps a session summary. Messages are not copied.
func ToClientSession(ws backend.Session) Session {
	s := Session{
		ID:        ws.ID.String(),
		Name:      DefaultSessionName,
		OwnerID:   DefaultOwner,
		HasFiles:  ws.HasFiles,
		Messages:  []Message{},
		CreatedAt: timeOrZero(ws.CreatedAt),
		UpdatedAt: timeOrZero(ws.UpdatedAt),
	}
	if ws.Name != nil && *ws.Name != "" {
		s.Name = *ws.Name
	}
	if ws.UserID != "" {
		s.OwnerID = ws.UserID.String()
	}
	return s
}

// ToClientSessionWithMessages maps a session together with its history
func ToClientSessionWithMessages(ws backend.Session) Session {
	s := ToClientSession(ws)
	s.Messages = make([]Message, 0, len(ws.Messages))
	for _, wm := range ws.Messages {
		s.Messages = append(s.Messages, ToClientMessage(wm))
	}
	return s
}

// ToClientMessage maps a wire message, filling citation defaults
func ToClientMessage(wm backend.Message) Message {
	m := Message{
		ID:               wm.ID.String(),
		Role:             toRole(wm.Role),
		Content:          wm.Content,
		Metadata:         Metadata{Documents: toDocuments(wm.References)},
		PromptTokens:     wm.PromptTokens,
		CompletionTokens: wm.CompletionTokens,
		ResponseTime:     wm.ResponseTime,
		CreatedAt:        timeOrZero(wm.CreatedAt),
	}
	if wm.Feedback != nil {
		fb := &Feedback{
			Comments:    wm.Feedback.Comments,
			RaterUserID: wm.Feedback.UserID.String(),
		}
		if wm.Feedback.Rating != nil {
			fb.Rating = *wm.Feedback.Rating
		}
		m.Feedback = fb
	}
	return m
}

// ToAssistantMessage builds the answer of a chat round trip. The backend may
// attach citations either to the message or to the response itself.
func ToAssistantMessage(resp backend.ChatResponse) Message {
	m := ToClientMessage(resp.AssistantMessage)
	m.Role = RoleAssistant
	if len(m.Metadata.Documents) == 0 && len(resp.References) > 0 {
		m.Metadata.Documents = toDocuments(resp.References)
	}
	return m
}

func toDocuments(refs []backend.Reference) []DocumentReference {
	docs := make([]DocumentReference, 0, len(refs))
	for _, r := range refs {
		doc := DocumentReference{
			DocName: DefaultDocName,
			DocPage: DefaultDocPage,
		}
		if r.DocID != nil {
			doc.DocID = *r.DocID
		}
		if r.DocName != nil && *r.DocName != "" {
			doc.DocName = *r.DocName
		}
		if r.Page != nil {
			doc.DocPage = *r.Page
		}
		if r.Content != nil {
			doc.DocContent = *r.Content
		}
		docs = append(docs, doc)
	}
	return docs
}

func toRole(r string) Role {
	switch Role(r) {
	case RoleUser, RoleSystem:
		return Role(r)
	default:
		return RoleAssistant
	}
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
