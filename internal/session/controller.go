package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"chatbot-client/internal/backend"
	"chatbot-client/internal/chat"
	"chatbot-client/internal/config"
)

// opClass groups calls whose responses supersede each other
type opClass int

const (
	opCreate opClass = iota
	opSwitch
	opSend
	opDelete
	opList
	numOpClasses
)

// Controller drives the session lifecycle: it owns the UI state, the Store,
// and every backend call that changes either.
//
// Backend calls are made without holding the lock. Each call takes a
// sequence token for its class; when a newer call of the same class was
// issued in the meantime, the older response does not touch UI state.
// Data the backend already committed is still recorded against the session
// it belongs to.
type Controller struct {
	api      backend.API
	store    *Store
	notifier *Notifier
	log      *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	settings config.Settings
	state    lifecycle
	seq      [numOpClasses]uint64
}

// NewController creates a controller with an empty store
func NewController(api backend.API, settings config.Settings, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		api:      api,
		store:    NewStore(),
		notifier: NewNotifier(),
		log:      log.Named("session"),
		now:      time.Now,
		settings: settings,
	}
}

// Store gives read access to the sessions
func (c *Controller) Store() *Store {
	return c.store
}

// Notifier is where UI observers subscribe
func (c *Controller) Notifier() *Notifier {
	return c.notifier
}

// State returns a snapshot of the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.cur
}

// Settings returns a copy of the chatbot settings in use
func (c *Controller) Settings() config.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// UpdateSettings replaces the settings used for subsequent calls
func (c *Controller) UpdateSettings(s config.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.settings = s
	c.mu.Unlock()
	return nil
}

// StartSessionCreation prepares the UI for a brand-new session that will be
// created by its first message
func (c *Controller) StartSessionCreation() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.cur.Creation.busy() {
		c.log.Warn("session creation already in progress", zap.Stringer("creation", c.state.cur.Creation))
		return ErrCreationInProgress
	}

	c.cancelSwitch()
	c.store.ClearActive()
	if err := c.state.setSession(NoSession); err != nil {
		return err
	}
	return c.state.setCreation(CreationWaitingFirstMessage)
}

// CreateSession creates an empty session and adds it to the store. It does
// not make the session active.
func (c *Controller) CreateSession(ctx context.Context, name string) (*chat.Session, error) {
	sess, err := c.create(ctx, name, nil)
	if err != nil {
		return nil, err
	}
	c.markCreated()
	c.notifier.Publish(Event{Kind: SessionListUpdated})
	return sess, nil
}

// CreateSessionWithFiles creates a session backed by uploaded documents
func (c *Controller) CreateSessionWithFiles(ctx context.Context, name string, files []backend.Attachment) (*chat.Session, error) {
	if len(files) == 0 {
		return nil, ErrNoAttachments
	}
	sess, err := c.create(ctx, name, files)
	if err != nil {
		return nil, err
	}
	c.markCreated()
	c.notifier.Publish(Event{Kind: SessionListUpdated})
	return sess, nil
}

// markCreated records a finished standalone create, unless a session is open
func (c *Controller) markCreated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store.ActiveID() == "" {
		c.setCreationIfTracked(CreationCreated)
	}
}

// create issues the backend call shared by both create operations. The
// interaction state always ends idle; a failure is reported to the caller.
func (c *Controller) create(ctx context.Context, name string, files []backend.Attachment) (*chat.Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	c.mu.Lock()
	tok := c.nextToken(opCreate)
	// A session already open keeps its own creation progress.
	tracked := c.store.ActiveID() == ""
	if tracked {
		c.setCreationIfTracked(CreationCreating)
	}
	c.state.setInteraction(InteractionLoading)
	c.mu.Unlock()

	var (
		ws  *backend.Session
		err error
	)
	if len(files) > 0 {
		ws, err = c.api.CreateSessionWithFiles(ctx, name, files)
	} else {
		ws, err = c.api.CreateSession(ctx, name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	latest := c.isLatest(opCreate, tok)

	if err != nil {
		c.log.Error("failed to create session", zap.String("name", name), zap.Error(err))
		if latest {
			c.state.setInteraction(InteractionError)
			if tracked {
				c.setCreationIfTracked(CreationError)
			}
			c.state.setInteraction(InteractionIdle)
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	sess := chat.ToClientSession(*ws)
	if len(files) > 0 {
		sess.HasFiles = true
	}
	c.store.Add(sess)
	if latest {
		c.state.setInteraction(InteractionIdle)
	}
	c.log.Info("session created", zap.String("session_id", sess.ID), zap.Bool("has_files", sess.HasFiles))
	return &sess, nil
}

// SwitchSession makes id the active session, loading its full history.
// Switching to the session that is already active does nothing, unless an
// earlier switch away from it is pending or failed: that switch is abandoned
// and the state is restored from the active session.
//
// On failure the session state stays Transitioning until the next
// successful switch, a switch back to the active session, or a new session
// is started.
func (c *Controller) SwitchSession(ctx context.Context, id string) (*chat.Session, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}

	c.mu.Lock()
	if c.store.ActiveID() == id {
		active := c.store.Active()
		var err error
		if c.state.cur.Session == Transitioning {
			c.cancelSwitch()
			err = c.restoreActive(active)
		}
		c.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return active, nil
	}
	tok := c.nextToken(opSwitch)
	if err := c.state.setSession(Transitioning); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.state.setInteraction(InteractionLoading)
	c.mu.Unlock()

	ws, err := c.api.GetSession(ctx, id)

	c.mu.Lock()
	if !c.isLatest(opSwitch, tok) {
		c.mu.Unlock()
		c.log.Debug("dropping superseded session switch", zap.String("session_id", id))
		return nil, ErrStaleResponse
	}
	if err != nil {
		c.state.setInteraction(InteractionError)
		c.mu.Unlock()
		c.log.Error("failed to switch session", zap.String("session_id", id), zap.Error(err))
		return nil, fmt.Errorf("switch session: %w", err)
	}

	sess := chat.ToClientSessionWithMessages(*ws)
	c.store.SetActive(sess)
	err = c.restoreActive(&sess)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	c.notifier.Publish(Event{Kind: SessionChanged})
	return sess.Clone(), nil
}

// restoreActive derives the state of an installed session from its history.
// Must be called with the lock held.
func (c *Controller) restoreActive(sess *chat.Session) error {
	var err error
	if len(sess.Messages) > 0 {
		err = c.state.set(Active, CreationCreated)
	} else {
		// Exists on the backend but has no messages: still being created.
		err = c.state.set(Creating, CreationWaitingFirstMessageResponse)
	}
	c.state.setInteraction(InteractionIdle)
	return err
}

// SendMessage sends user input and returns the assistant's answer.
//
// Without an active session, or right after StartSessionCreation, it
// creates a session under a placeholder name, sends the text there and then
// renames the session from that first message. If only the final rename
// fails, the answer is returned together with the error.
func (c *Controller) SendMessage(ctx context.Context, text string) (*chat.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	activeID := c.store.ActiveID()
	first := activeID == "" || c.state.cur.Creation == CreationWaitingFirstMessage
	placeholder := c.settings.PlaceholderName()
	c.mu.Unlock()

	if first {
		return c.sendFirstMessage(ctx, placeholder, text)
	}
	return c.send(ctx, activeID, text)
}

func (c *Controller) sendFirstMessage(ctx context.Context, placeholder, text string) (*chat.Message, error) {
	sess, err := c.create(ctx, placeholder, nil)
	if err != nil {
		c.failCreation()
		return nil, err
	}

	c.mu.Lock()
	c.cancelSwitch()
	c.store.SetActive(*sess)
	err = c.state.set(Creating, CreationWaitingFirstMessageResponse)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	c.notifier.Publish(Event{Kind: SessionChanged})

	answer, err := c.send(ctx, sess.ID, text)
	if err != nil && answer == nil {
		c.failCreation()
	}
	return answer, err
}

// send appends the user message to sessionID, asks the backend for an
// answer and records both. A session still waiting for its first answer is
// renamed and marked created afterwards.
func (c *Controller) send(ctx context.Context, sessionID, text string) (*chat.Message, error) {
	idx, err := c.store.AppendMessage(sessionID, chat.NewUserMessage(text, c.now()))
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	tok := c.nextToken(opSend)
	c.state.setInteraction(InteractionLoading)
	req := backend.ChatRequest{
		SessionID: sessionID,
		Prompt:    text,
		Provider:  c.settings.Provider,
		Model:     c.settings.Model,
	}
	c.mu.Unlock()
	c.notifier.Publish(Event{Kind: PromptSent})

	resp, err := c.api.Chat(ctx, req)
	if err != nil {
		c.log.Error("chat request failed", zap.String("session_id", sessionID), zap.Error(err))
		c.mu.Lock()
		latest := c.isLatest(opSend, tok) && c.store.ActiveID() == sessionID
		if latest {
			c.state.setInteraction(InteractionError)
		}
		c.mu.Unlock()
		if latest {
			c.notifier.Publish(Event{Kind: AnswerReceived, Outcome: OutcomeError})
		}
		return nil, fmt.Errorf("send message: %w", err)
	}

	if id := resp.UserMessage.ID.String(); id != "" {
		if err := c.store.SetMessageID(sessionID, idx, id); err != nil {
			c.log.Warn("failed to confirm user message", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	answer := chat.ToAssistantMessage(*resp)
	if _, err := c.store.AppendMessage(sessionID, answer); err != nil {
		c.log.Warn("session gone before answer arrived", zap.String("session_id", sessionID), zap.Error(err))
	}

	c.mu.Lock()
	latest := c.isLatest(opSend, tok) && c.store.ActiveID() == sessionID
	finish := latest &&
		c.state.cur.Session == Creating &&
		c.state.cur.Creation == CreationWaitingFirstMessageResponse
	if latest {
		c.state.setInteraction(InteractionIdle)
	}
	c.mu.Unlock()
	if !latest {
		c.log.Debug("answer arrived for a superseded prompt or a session no longer open", zap.String("session_id", sessionID))
		return &answer, nil
	}
	c.notifier.Publish(Event{Kind: AnswerReceived, Outcome: OutcomeSuccess})

	if finish {
		if err := c.finishCreation(ctx, sessionID); err != nil {
			return &answer, err
		}
	}
	return &answer, nil
}

// finishCreation renames a new session after its first exchange and marks
// it created
func (c *Controller) finishCreation(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	err := c.state.setCreation(CreationRenaming)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	if _, err := c.RenameSessionBasedOnFirstMessage(ctx, sessionID); err != nil {
		c.failCreation()
		return err
	}

	c.mu.Lock()
	if c.store.ActiveID() == sessionID {
		err = c.state.set(Active, CreationCreated)
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.notifier.Publish(Event{Kind: AnswerReceived, Outcome: OutcomeComplete})
	return nil
}

// failCreation marks the first-message sequence as aborted
func (c *Controller) failCreation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.setInteraction(InteractionError)
	c.setCreationIfTracked(CreationError)
}

// RenameSession sets a new name. Failures are logged and returned but do
// not put the UI into the error state.
func (c *Controller) RenameSession(ctx context.Context, id, name string) (*chat.Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	ws, err := c.api.RenameSession(ctx, id, name)
	if err != nil {
		c.log.Warn("failed to rename session", zap.String("session_id", id), zap.Error(err))
		return nil, fmt.Errorf("rename session: %w", err)
	}
	if ws.Name == nil || *ws.Name == "" {
		ws.Name = &name
	}
	return c.applyRename(id, *ws), nil
}

// RenameSessionBasedOnFirstMessage lets the backend title the session from
// its first message. Failures are logged and returned only.
func (c *Controller) RenameSessionBasedOnFirstMessage(ctx context.Context, id string) (*chat.Session, error) {
	ws, err := c.api.RenameSessionFromFirstMessage(ctx, id)
	if err != nil {
		c.log.Warn("failed to rename session from first message", zap.String("session_id", id), zap.Error(err))
		return nil, fmt.Errorf("rename session from first message: %w", err)
	}
	return c.applyRename(id, *ws), nil
}

func (c *Controller) applyRename(id string, ws backend.Session) *chat.Session {
	name := chat.ToClientSession(ws).Name
	if err := c.store.Rename(id, name); err != nil {
		c.log.Debug("renamed session is not in the store", zap.String("session_id", id))
	}
	c.log.Info("session renamed", zap.String("session_id", id), zap.String("name", name))
	c.notifier.Publish(Event{Kind: SessionListUpdated})

	sess, ok := c.store.Get(id)
	if !ok {
		s := chat.ToClientSession(ws)
		return &s
	}
	return sess
}

// DeleteSession soft-deletes a session. Deleting the active session leaves
// the UI without one.
func (c *Controller) DeleteSession(ctx context.Context, id string) error {
	c.mu.Lock()
	tok := c.nextToken(opDelete)
	c.state.setInteraction(InteractionLoading)
	c.mu.Unlock()

	err := c.api.DeleteSession(ctx, id)

	c.mu.Lock()
	latest := c.isLatest(opDelete, tok)
	if err != nil {
		if latest {
			c.state.setInteraction(InteractionError)
		}
		c.mu.Unlock()
		c.log.Error("failed to delete session", zap.String("session_id", id), zap.Error(err))
		return fmt.Errorf("delete session: %w", err)
	}

	if wasActive := c.store.Remove(id); wasActive {
		c.cancelSwitch()
		err = c.state.setSession(NoSession)
	}
	if latest {
		c.state.setInteraction(InteractionIdle)
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}

	c.log.Info("session deleted", zap.String("session_id", id))
	c.notifier.Publish(Event{Kind: SessionListUpdated})
	return nil
}

// LoadSessions refreshes the session list from the backend
func (c *Controller) LoadSessions(ctx context.Context) ([]*chat.Session, error) {
	c.mu.Lock()
	tok := c.nextToken(opList)
	c.state.setInteraction(InteractionLoading)
	c.mu.Unlock()

	list, err := c.api.ListSessions(ctx)

	c.mu.Lock()
	if !c.isLatest(opList, tok) {
		c.mu.Unlock()
		return nil, ErrStaleResponse
	}
	if err != nil {
		c.state.setInteraction(InteractionError)
		c.mu.Unlock()
		c.log.Error("failed to load sessions", zap.Error(err))
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	sessions := make([]chat.Session, 0, len(list))
	for _, ws := range list {
		sessions = append(sessions, chat.ToClientSession(ws))
	}
	c.store.ReplaceAll(sessions)
	c.state.setInteraction(InteractionIdle)
	c.mu.Unlock()

	c.notifier.Publish(Event{Kind: SessionListUpdated})
	return c.store.List(), nil
}

// SendFeedback rates an assistant message. Pending or empty message ids and
// ratings outside 1-5 are rejected without calling the backend; backend
// failures are logged and returned.
func (c *Controller) SendFeedback(ctx context.Context, messageID string, rating int, comments string) (*backend.FeedbackResponse, error) {
	if messageID == "" || messageID == chat.PendingID || rating < 1 || rating > 5 {
		c.log.Debug("ignoring invalid feedback", zap.String("message_id", messageID), zap.Int("rating", rating))
		return nil, ErrInvalidFeedback
	}

	resp, err := c.api.SendFeedback(ctx, backend.FeedbackRequest{
		MessageID: messageID,
		Rating:    rating,
		Comments:  comments,
	})
	if err != nil {
		c.log.Warn("failed to send feedback", zap.String("message_id", messageID), zap.Error(err))
		return nil, fmt.Errorf("send feedback: %w", err)
	}

	fb := chat.Feedback{Rating: rating, Comments: comments, RaterUserID: resp.UserID.String()}
	if err := c.store.SetFeedback(messageID, fb); err != nil && !errors.Is(err, ErrMessageNotFound) {
		c.log.Warn("failed to record feedback", zap.String("message_id", messageID), zap.Error(err))
	}

	c.notifier.Publish(Event{Kind: FeedbackSent, Feedback: resp})
	return resp, nil
}

// SetTyping reflects the user typing in the prompt box. It never overrides
// an in-flight request.
func (c *Controller) SetTyping(on bool) {
	c.setAffordance(InteractionTyping, on)
}

// SetDragging reflects files being dragged over the chat
func (c *Controller) SetDragging(on bool) {
	c.setAffordance(InteractionDragging, on)
}

func (c *Controller) setAffordance(s InteractionState, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.state.cur.Interaction
	if cur == InteractionLoading {
		return
	}
	if on {
		c.state.setInteraction(s)
	} else if cur == s {
		c.state.setInteraction(InteractionIdle)
	}
}

// setCreationIfTracked updates the creation state when the session state
// gives it meaning (no session, or a session being created). Must be called
// with the lock held.
func (c *Controller) setCreationIfTracked(cs CreationState) {
	if s := c.state.cur.Session; s != NoSession && s != Creating {
		return
	}
	if err := c.state.setCreation(cs); err != nil {
		c.log.Warn("rejected creation state", zap.Stringer("creation", cs), zap.Error(err))
	}
}

// cancelSwitch makes any switch still in flight stale so it cannot
// reinstall its session later. Must be called with the lock held.
func (c *Controller) cancelSwitch() {
	c.nextToken(opSwitch)
	if c.state.cur.Session == Transitioning && c.state.cur.Interaction == InteractionLoading {
		c.state.setInteraction(InteractionIdle)
	}
}

// nextToken must be called with the lock held
func (c *Controller) nextToken(op opClass) uint64 {
	c.seq[op]++
	return c.seq[op]
}

// isLatest must be called with the lock held
func (c *Controller) isLatest(op opClass, tok uint64) bool {
	return c.seq[op] == tok
}
