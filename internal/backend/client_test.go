package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL + "/", Token: "secret", Timeout: 5 * time.Second})
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestCreateSession(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/sessions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var req CreateSessionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "New chat", req.Name)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id": 42, "name": "New chat", "user_id": 3}`)
	})

	sess, err := client.CreateSession(context.Background(), "New chat")
	require.NoError(t, err)
	assert.Equal(t, ID("42"), sess.ID)
	assert.Equal(t, ID("3"), sess.UserID)
	require.NotNil(t, sess.Name)
	assert.Equal(t, "New chat", *sess.Name)
}

func TestCreateSessionWithFiles(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sessions/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "docs", r.FormValue("name"))

		files := r.MultipartForm.File["files"]
		require.Len(t, files, 2)
		assert.Equal(t, "a.txt", files[0].Filename)

		f, err := files[1].Open()
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "second", string(data))

		writeJSON(t, w, http.StatusCreated, map[string]any{"id": "s1", "name": "docs"})
	})

	sess, err := client.CreateSessionWithFiles(context.Background(), "docs", []Attachment{
		{Name: "a.txt", Content: []byte("first")},
		{Name: "b.txt", Content: []byte("second")},
	})
	require.NoError(t, err)
	assert.True(t, sess.HasFiles)
}

func TestGetSessionEscapesID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sessions/a%2Fb", r.URL.RawPath)
		io.WriteString(w, `{"id": "a/b", "messages": [{"id": 1, "role": "user", "content": "hi"}]}`)
	})

	sess, err := client.GetSession(context.Background(), "a/b")
	require.NoError(t, err)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, ID("1"), sess.Messages[0].ID)
}

func TestRenameAndDelete(t *testing.T) {
	var seen []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodPatch:
			var req RenameSessionRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			writeJSON(t, w, http.StatusOK, map[string]any{"id": 1, "name": req.Name})
		case http.MethodPost:
			writeJSON(t, w, http.StatusOK, map[string]any{"id": 1, "name": "Derived title"})
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	ctx := context.Background()

	sess, err := client.RenameSession(ctx, "1", "Mine")
	require.NoError(t, err)
	assert.Equal(t, "Mine", *sess.Name)

	sess, err = client.RenameSessionFromFirstMessage(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Derived title", *sess.Name)

	require.NoError(t, client.DeleteSession(ctx, "1"))

	assert.Equal(t, []string{
		"PATCH /api/sessions/1",
		"POST /api/sessions/1/rename",
		"DELETE /api/sessions/1",
	}, seen)
}

func TestChat(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, ChatRequest{SessionID: "9", Prompt: "hi", Provider: "openai", Model: "gpt-4o-mini"}, req)

		io.WriteString(w, `{
			"user_message": {"id": 100, "role": "user", "content": "hi"},
			"assistant_message": {"id": 101, "role": "assistant", "content": "hello"},
			"references": [{"doc_id": 1, "doc_name": "a.pdf", "page": 2}]
		}`)
	})

	resp, err := client.Chat(context.Background(), ChatRequest{SessionID: "9", Prompt: "hi", Provider: "openai", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.Equal(t, ID("100"), resp.UserMessage.ID)
	assert.Equal(t, "hello", resp.AssistantMessage.Content)
	require.Len(t, resp.References, 1)
	assert.Equal(t, int64(1), *resp.References[0].DocID)
}

func TestAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such session", http.StatusNotFound)
	})

	_, err := client.GetSession(context.Background(), "404")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsUnauthorized(err))
	assert.Contains(t, err.Error(), "no such session")
}

func TestMalformedResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"id": `)
	})

	_, err := client.ListSessions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse response")
}

func TestSendFeedbackAndHealth(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/feedback":
			var req FeedbackRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			writeJSON(t, w, http.StatusOK, map[string]any{"id": 1, "message_id": req.MessageID, "rating": req.Rating})
		case "/api/health":
			w.WriteHeader(http.StatusOK)
		}
	})
	ctx := context.Background()

	resp, err := client.SendFeedback(ctx, FeedbackRequest{MessageID: "55", Rating: 5})
	require.NoError(t, err)
	assert.Equal(t, ID("55"), resp.MessageID)
	assert.Equal(t, 5, resp.Rating)

	require.NoError(t, client.HealthCheck(ctx))
}

func TestRateLimiterHonoursContext(t *testing.T) {
	client := NewClient(Options{BaseURL: "http://127.0.0.1:1", RequestsPerSecond: 0.001, Burst: 1})
	// Drain the single token.
	require.True(t, client.limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := client.ListSessions(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
}

func TestIDUnmarshal(t *testing.T) {
	tests := []struct {
		raw  string
		want ID
	}{
		{`12`, "12"},
		{`"abc"`, "abc"},
		{`null`, ""},
		{`1e3`, "1e3"},
		{`true`, "true"},
		{`"-1"`, "-1"},
		{` 7 `, "7"},
	}
	for _, tt := range tests {
		var id ID
		require.NoError(t, json.Unmarshal([]byte(tt.raw), &id), tt.raw)
		assert.Equal(t, tt.want, id, tt.raw)
	}
}
