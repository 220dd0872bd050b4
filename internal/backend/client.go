// Package backend implements the client for the nova chat backend: session
// creation and turn submission over a streaming or single-shot transport.
package backend

import (
	"bufio"
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	apierrors "github.com/novahq/nova/internal/errors"
	"github.com/novahq/nova/internal/models"
	"github.com/novahq/nova/internal/stream"
)

// contextPartPrefix tags the hidden-context text part so the backend can
// tell ambient data apart from the user's literal instruction.
const contextPartPrefix = "Selection context:\n"

// Client talks to the nova backend. A session is created lazily, at most
// once; concurrent EnsureSession calls collapse into one underlying request.
type Client struct {
	http      *resty.Client
	appName   string
	userID    string
	sessionID string
	log       *zap.Logger

	group        singleflight.Group
	mu           sync.Mutex
	sessionReady bool
}

// Option configures the client.
type Option func(*Client)

// WithSessionID overrides the generated per-process session id.
func WithSessionID(id string) Option {
	return func(c *Client) {
		c.sessionID = id
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(d)
	}
}

// WithLogger sets the client's logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New creates a backend client for one app/user pair.
func New(baseURL, appName, userID string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(60 * time.Second).
			SetHeader("Content-Type", "application/json"),
		appName:   appName,
		userID:    userID,
		sessionID: uuid.NewString(),
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionID returns the backend conversation session identifier.
func (c *Client) SessionID() string { return c.sessionID }

// sessionState is the initial state document sent on session creation.
type sessionState struct {
	State map[string]any `json:"state"`
}

// EnsureSession creates the backend session if it does not exist yet. A 2xx
// or an already-exists conflict both count as success. Concurrent callers
// share a single in-flight creation request and its outcome.
func (c *Client) EnsureSession(ctx context.Context) error {
	c.mu.Lock()
	ready := c.sessionReady
	c.mu.Unlock()
	if ready {
		return nil
	}

	_, err, _ := c.group.Do("session", func() (any, error) {
		if err := c.createSession(ctx); err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.sessionReady = true
		c.mu.Unlock()
		return nil, nil
	})
	return err
}

func (c *Client) createSession(ctx context.Context) error {
	path := models.SessionPath(c.appName, c.userID, c.sessionID)

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(sessionState{State: map[string]any{}}).
		Post(path)
	if err != nil {
		return apierrors.NewConnectionError(path, err)
	}

	switch {
	case resp.StatusCode() >= 200 && resp.StatusCode() < 300:
		return nil
	case resp.StatusCode() == http.StatusConflict:
		// Session already exists: treated as success, not conflict
		return nil
	default:
		return apierrors.NewTransportError(resp.StatusCode(), path, "failed to create session")
	}
}

// Wire format for the turn endpoint.
type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type newMessage struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type turnPayload struct {
	AppName    string     `json:"appName"`
	UserID     string     `json:"userId"`
	SessionID  string     `json:"sessionId"`
	NewMessage newMessage `json:"newMessage"`
	Streaming  bool       `json:"streaming"`
}

func (c *Client) buildPayload(req models.TurnRequest, streaming bool) turnPayload {
	parts := []part{{Text: req.Text}}
	if req.HiddenContext != "" {
		parts = append(parts, part{Text: contextPartPrefix + req.HiddenContext})
	}
	if len(req.Image) > 0 && req.ImageMIME != "" {
		parts = append(parts, part{InlineData: &inlineData{
			MIMEType: req.ImageMIME,
			Data:     base64.StdEncoding.EncodeToString(req.Image),
		}})
	}
	return turnPayload{
		AppName:    c.appName,
		UserID:     c.userID,
		SessionID:  c.sessionID,
		NewMessage: newMessage{Role: "user", Parts: parts},
		Streaming:  streaming,
	}
}

// SendTurn submits one turn and returns the assistant text from the complete
// response body.
func (c *Client) SendTurn(ctx context.Context, req models.TurnRequest) (string, error) {
	if err := c.EnsureSession(ctx); err != nil {
		return "", err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(c.buildPayload(req, false)).
		Post(models.TurnPath)
	if err != nil {
		return "", apierrors.NewConnectionError(models.TurnPath, err)
	}
	if resp.IsError() {
		return "", apierrors.NewTransportError(resp.StatusCode(), models.TurnPath, "turn request failed")
	}

	c.log.Debug("backend: turn response received", zap.Int("bytes", len(resp.Body())))
	return stream.Extract(resp.Body())
}

// StreamTurn submits one turn with streaming enabled and invokes onDelta for
// each parsed frame's text as it arrives. The returned string is the final
// authoritative text under the same last-wins policy as SendTurn.
func (c *Client) StreamTurn(ctx context.Context, req models.TurnRequest, onDelta func(string)) (string, error) {
	if err := c.EnsureSession(ctx); err != nil {
		return "", err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetBody(c.buildPayload(req, true)).
		Post(models.TurnPath)
	if err != nil {
		return "", apierrors.NewConnectionError(models.TurnPath, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		return "", apierrors.NewTransportError(resp.StatusCode(), models.TurnPath, "turn request failed")
	}

	var (
		dec      stream.Decoder
		text     string
		found    bool
		firstErr error
		payloads int
	)
	consume := func(payload string) {
		payloads++
		t, perr := stream.Text(payload)
		if perr != nil {
			if firstErr == nil {
				firstErr = perr
			}
			return
		}
		found = true
		if t != "" {
			text = t
			if onDelta != nil {
				onDelta(t)
			}
		}
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if payload, ok := dec.Feed(scanner.Text()); ok {
			consume(payload)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", apierrors.NewConnectionError(models.TurnPath, err)
	}
	if payload, ok := dec.Flush(); ok {
		consume(payload)
	}

	if payloads == 0 {
		return "", apierrors.NewDecodeError("response contained no payloads", nil)
	}
	if !found && firstErr != nil {
		return "", firstErr
	}
	return text, nil
}
