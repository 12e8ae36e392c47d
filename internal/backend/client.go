package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// API is the set of backend operations the session controller depends on
type API interface {
	CreateSession(ctx context.Context, name string) (*Session, error)
	CreateSessionWithFiles(ctx context.Context, name string, files []Attachment) (*Session, error)
	ListSessions(ctx context.Context) ([]Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	RenameSession(ctx context.Context, id, name string) (*Session, error)
	RenameSessionFromFirstMessage(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	SendFeedback(ctx context.Context, req FeedbackRequest) (*FeedbackResponse, error)
}

// Options configures a Client
type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// RequestsPerSecond throttles outgoing calls; zero disables throttling.
	RequestsPerSecond float64
	Burst             int
	Logger            *zap.Logger
}

// Client handles communication with the chatbot backend
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *zap.Logger
}

var _ API = (*Client)(nil)

// NewClient creates a new backend client
func NewClient(opts Options) *Client {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter: limiter,
		log:     log.Named("backend"),
	}
}

// CreateSession creates an empty session with the given name
func (c *Client) CreateSession(ctx context.Context, name string) (*Session, error) {
	var session Session
	if err := c.doJSON(ctx, http.MethodPost, "/api/sessions", CreateSessionRequest{Name: name}, &session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &session, nil
}

// CreateSessionWithFiles creates a session and uploads documents for retrieval
func (c *Client) CreateSessionWithFiles(ctx context.Context, name string, files []Attachment) (*Session, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("name", name); err != nil {
		return nil, fmt.Errorf("failed to write name field: %w", err)
	}
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to create form file %s: %w", f.Name, err)
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, fmt.Errorf("failed to write form file %s: %w", f.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	var session Session
	if err := c.do(ctx, http.MethodPost, "/api/sessions/upload", &buf, mw.FormDataContentType(), &session); err != nil {
		return nil, fmt.Errorf("create session with files: %w", err)
	}
	session.HasFiles = true
	return &session, nil
}

// ListSessions returns session summaries without messages
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	var sessions []Session
	if err := c.doJSON(ctx, http.MethodGet, "/api/sessions", nil, &sessions); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// GetSession returns one session with its full message history
func (c *Client) GetSession(ctx context.Context, id string) (*Session, error) {
	var session Session
	if err := c.doJSON(ctx, http.MethodGet, sessionPath(id), nil, &session); err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return &session, nil
}

// RenameSession sets a new display name
func (c *Client) RenameSession(ctx context.Context, id, name string) (*Session, error) {
	var session Session
	if err := c.doJSON(ctx, http.MethodPatch, sessionPath(id), RenameSessionRequest{Name: name}, &session); err != nil {
		return nil, fmt.Errorf("rename session %s: %w", id, err)
	}
	return &session, nil
}

// RenameSessionFromFirstMessage asks the backend to derive a title from the
// first message of the session
func (c *Client) RenameSessionFromFirstMessage(ctx context.Context, id string) (*Session, error) {
	var session Session
	if err := c.doJSON(ctx, http.MethodPost, sessionPath(id)+"/rename", nil, &session); err != nil {
		return nil, fmt.Errorf("rename session %s from first message: %w", id, err)
	}
	return &session, nil
}

// DeleteSession soft-deletes a session
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, sessionPath(id), nil, nil); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// Chat submits a prompt and waits for the generated answer
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/chat", req, &resp); err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}
	return &resp, nil
}

// SendFeedback rates an assistant message
func (c *Client) SendFeedback(ctx context.Context, req FeedbackRequest) (*FeedbackResponse, error) {
	var resp FeedbackResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/feedback", req, &resp); err != nil {
		return nil, fmt.Errorf("send feedback: %w", err)
	}
	return &resp, nil
}

// HealthCheck verifies that the backend is reachable
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.doJSON(ctx, http.MethodGet, "/api/health", nil, nil); err != nil {
		return fmt.Errorf("backend is unreachable at %s: %w", c.baseURL, err)
	}
	return nil
}

func sessionPath(id string) string {
	return "/api/sessions/" + url.PathEscape(id)
}

// doJSON marshals in (when non-nil) as the request body and decodes the
// response into out (when non-nil)
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, body, contentType, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debug("backend call",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
