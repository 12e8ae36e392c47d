package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"chatbot-client/internal/backend"
)

var errBackendDown = errors.New("backend down")

var _ backend.API = (*fakeAPI)(nil)

// fakeAPI is an in-memory backend. Set the *Err fields to make a call fail.
type fakeAPI struct {
	mu       sync.Mutex
	nextID   int
	sessions map[string]*backend.Session
	calls    map[string]int
	// created records the names passed to CreateSession
	created []string

	createErr   error
	getErr      error
	chatErr     error
	renameErr   error
	deleteErr   error
	feedbackErr error
	listErr     error

	// beforeGet runs inside GetSession, before it returns
	beforeGet func(id string)
	// beforeChat, beforeList and beforeDelete do the same for their calls
	beforeChat   func(req backend.ChatRequest)
	beforeList   func()
	beforeDelete func(id string)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		sessions: map[string]*backend.Session{},
		calls:    map[string]int{},
	}
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) id() backend.ID {
	f.nextID++
	return backend.ID(fmt.Sprint(f.nextID))
}

// seed adds a session with the given number of message pairs
func (f *fakeAPI) seed(name string, exchanges int) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := name
	s := &backend.Session{ID: f.id(), Name: &n, UserID: "u1"}
	for i := 0; i < exchanges; i++ {
		s.Messages = append(s.Messages,
			backend.Message{ID: f.id(), Role: "user", Content: fmt.Sprintf("q%d", i)},
			backend.Message{ID: f.id(), Role: "assistant", Content: fmt.Sprintf("a%d", i)},
		)
	}
	f.sessions[s.ID.String()] = s
	return s.ID.String()
}

func (f *fakeAPI) CreateSession(_ context.Context, name string) (*backend.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["create"]++
	f.created = append(f.created, name)
	if f.createErr != nil {
		return nil, f.createErr
	}
	n := name
	s := &backend.Session{ID: f.id(), Name: &n, UserID: "u1"}
	f.sessions[s.ID.String()] = s
	cp := *s
	return &cp, nil
}

func (f *fakeAPI) CreateSessionWithFiles(ctx context.Context, name string, files []backend.Attachment) (*backend.Session, error) {
	f.mu.Lock()
	f.calls["create_files"]++
	f.mu.Unlock()
	s, err := f.CreateSession(ctx, name)
	if err != nil {
		return nil, err
	}
	s.HasFiles = true
	return s, nil
}

func (f *fakeAPI) ListSessions(context.Context) ([]backend.Session, error) {
	f.mu.Lock()
	f.calls["list"]++
	hook := f.beforeList
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []backend.Session{}
	for i := 1; i <= f.nextID; i++ {
		if s, ok := f.sessions[fmt.Sprint(i)]; ok {
			cp := *s
			cp.Messages = nil
			out = append(out, cp)
		}
	}
	return out, nil
}

func (f *fakeAPI) GetSession(_ context.Context, id string) (*backend.Session, error) {
	f.mu.Lock()
	f.calls["get"]++
	hook := f.beforeGet
	f.mu.Unlock()
	if hook != nil {
		hook(id)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, &backend.APIError{StatusCode: 404}
	}
	cp := *s
	cp.Messages = append([]backend.Message(nil), s.Messages...)
	return &cp, nil
}

func (f *fakeAPI) RenameSession(_ context.Context, id, name string) (*backend.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["rename"]++
	if f.renameErr != nil {
		return nil, f.renameErr
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, &backend.APIError{StatusCode: 404}
	}
	n := name
	s.Name = &n
	cp := *s
	return &cp, nil
}

func (f *fakeAPI) RenameSessionFromFirstMessage(_ context.Context, id string) (*backend.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["rename_first"]++
	if f.renameErr != nil {
		return nil, f.renameErr
	}
	s, ok := f.sessions[id]
	if !ok || len(s.Messages) == 0 {
		return nil, &backend.APIError{StatusCode: 404}
	}
	n := "About: " + s.Messages[0].Content
	s.Name = &n
	cp := *s
	return &cp, nil
}

func (f *fakeAPI) DeleteSession(_ context.Context, id string) error {
	f.mu.Lock()
	f.calls["delete"]++
	hook := f.beforeDelete
	f.mu.Unlock()
	if hook != nil {
		hook(id)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.sessions, id)
	return nil
}

func (f *fakeAPI) Chat(_ context.Context, req backend.ChatRequest) (*backend.ChatResponse, error) {
	f.mu.Lock()
	f.calls["chat"]++
	hook := f.beforeChat
	f.mu.Unlock()
	if hook != nil {
		hook(req)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	s, ok := f.sessions[req.SessionID]
	if !ok {
		return nil, &backend.APIError{StatusCode: 404}
	}
	name, page := "handbook.pdf", 3
	user := backend.Message{ID: f.id(), Role: "user", Content: req.Prompt}
	answer := backend.Message{ID: f.id(), Role: "assistant", Content: "echo: " + req.Prompt}
	s.Messages = append(s.Messages, user, answer)
	return &backend.ChatResponse{
		UserMessage:      user,
		AssistantMessage: answer,
		References:       []backend.Reference{{DocName: &name, Page: &page}},
	}, nil
}

func (f *fakeAPI) SendFeedback(_ context.Context, req backend.FeedbackRequest) (*backend.FeedbackResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["feedback"]++
	if f.feedbackErr != nil {
		return nil, f.feedbackErr
	}
	return &backend.FeedbackResponse{
		ID:        f.id(),
		MessageID: backend.ID(req.MessageID),
		Rating:    req.Rating,
		Comments:  req.Comments,
		UserID:    "u1",
	}, nil
}
