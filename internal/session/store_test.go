package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatbot-client/internal/chat"
)

func TestStoreActiveIsAlwaysListed(t *testing.T) {
	s := NewStore()
	s.SetActive(chat.Session{ID: "a", Name: "A"})

	require.Len(t, s.List(), 1)
	assert.Equal(t, "A", s.Active().Name)

	// Listing from the backend that does not yet include the active session.
	s.ReplaceAll([]chat.Session{{ID: "b"}, {ID: "c"}})
	ids := []string{}
	for _, sess := range s.List() {
		ids = append(ids, sess.ID)
	}
	assert.Equal(t, []string{"b", "c", "a"}, ids)
	assert.Equal(t, "a", s.ActiveID())
}

func TestStoreReplaceAllKeepsActiveHistory(t *testing.T) {
	s := NewStore()
	s.SetActive(chat.Session{ID: "a", Messages: []chat.Message{{ID: "1", Content: "hi"}}})

	s.ReplaceAll([]chat.Session{{ID: "a", Name: "renamed"}})
	active := s.Active()
	assert.Equal(t, "renamed", active.Name)
	assert.Len(t, active.Messages, 1)
}

func TestStoreReadsAreCopies(t *testing.T) {
	s := NewStore()
	s.SetActive(chat.Session{ID: "a", Messages: []chat.Message{{ID: "1", Content: "hi"}}})

	got := s.Active()
	got.Name = "changed"
	got.Messages[0].Content = "changed"

	assert.Empty(t, s.Active().Name)
	assert.Equal(t, "hi", s.Active().Messages[0].Content)
}

func TestStoreAppendAndConfirmMessage(t *testing.T) {
	s := NewStore()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	s.Add(chat.Session{ID: "a"})

	idx, err := s.AppendMessage("a", chat.NewUserMessage("hello", time.Time{}))
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	sess, _ := s.Get("a")
	assert.True(t, sess.Messages[0].Pending())
	assert.Equal(t, fixed, sess.Messages[0].CreatedAt)
	assert.Equal(t, fixed, sess.UpdatedAt)

	require.NoError(t, s.SetMessageID("a", idx, "m-17"))
	sess, _ = s.Get("a")
	assert.Equal(t, "m-17", sess.Messages[0].ID)

	assert.Error(t, s.SetMessageID("a", 5, "x"))
	_, err = s.AppendMessage("missing", chat.Message{})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStoreRemove(t *testing.T) {
	s := NewStore()
	s.Add(chat.Session{ID: "a"})
	s.SetActive(chat.Session{ID: "b"})

	assert.False(t, s.Remove("a"))
	assert.Equal(t, "b", s.ActiveID())

	assert.True(t, s.Remove("b"))
	assert.Nil(t, s.Active())
	assert.Empty(t, s.List())
}

func TestStoreRenameAndFeedback(t *testing.T) {
	s := NewStore()
	s.Add(chat.Session{ID: "a", Messages: []chat.Message{{ID: "m1", Role: chat.RoleAssistant}}})

	require.NoError(t, s.Rename("a", "New name"))
	sess, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "New name", sess.Name)
	assert.ErrorIs(t, s.Rename("zzz", "x"), ErrSessionNotFound)

	require.NoError(t, s.SetFeedback("m1", chat.Feedback{Rating: 2}))
	sess, _ = s.Get("a")
	assert.Equal(t, 2, sess.Messages[0].Feedback.Rating)
	assert.ErrorIs(t, s.SetFeedback("m2", chat.Feedback{Rating: 2}), ErrMessageNotFound)
}
