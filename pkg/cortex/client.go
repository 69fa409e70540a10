// Package cortex is a client for the Cortex knowledge and callable service.
//
// Plain operations (documents, blocking callable runs) return decoded
// responses. Streaming operations return a *stream.Stream whose events are
// pulled by the caller. Every failure is reported as an *APIError.
package cortex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/papercomputeco/cortex/pkg/eventstream"
	"github.com/papercomputeco/cortex/pkg/logger"
)

const (
	// DefaultBaseURL is the Cortex SDK endpoint.
	DefaultBaseURL = "https://trycortex.ai/api/sdk"

	// DefaultTimeout bounds non-streaming requests.
	DefaultTimeout = 60 * time.Second
)

// Client talks to one Cortex project on behalf of one user.
type Client struct {
	apiKey     string
	userID     string
	baseURL    string
	copilotURL string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	publisher  eventstream.Publisher
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the key sent as a bearer token.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithUserID sets the user whose project the client addresses.
func WithUserID(id string) Option {
	return func(c *Client) {
		c.userID = id
	}
}

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithCopilotURL overrides the base URL of copilot requests, which otherwise
// follow the base URL.
func WithCopilotURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.copilotURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the HTTP client. Its Timeout should be zero:
// a client-level timeout would also cut off long-running streams.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds non-streaming requests. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPublisher forwards every observed run event to p.
func WithPublisher(p eventstream.Publisher) Option {
	return func(c *Client) {
		c.publisher = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a client. An API key and a user id are required.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    DefaultBaseURL,
		timeout:    DefaultTimeout,
		httpClient: &http.Client{},
		logger:     logger.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		return nil, errors.New("cortex API key is required")
	}
	if c.userID == "" {
		return nil, errors.New("cortex user id is required")
	}
	if c.copilotURL == "" {
		c.copilotURL = c.baseURL
	}

	return c, nil
}

// projectURL joins escaped path segments onto the user's project path.
func (c *Client) projectURL(segments ...string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	b.WriteString("/p/")
	b.WriteString(url.PathEscape(c.userID))
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

func (c *Client) newRequest(ctx context.Context, method, target string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		r = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, r)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// doJSON sends a non-streaming request and decodes a 2xx body into out.
func (c *Client) doJSON(ctx context.Context, method, target string, body, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := c.newRequest(ctx, method, target, body)
	if err != nil {
		return &APIError{Type: TypeAPIError, Code: CodeRequestError, Message: err.Error(), Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{
			Type:    TypeAPIError,
			Code:    CodeRequestError,
			Message: fmt.Sprintf("sending %s request: %v", method, err),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	c.logger.Debug("cortex request",
		"method", method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{
			Type:    TypeAPIError,
			Code:    CodeDecodeError,
			Message: fmt.Sprintf("decoding response: %v", err),
			Status:  resp.StatusCode,
			Err:     err,
		}
	}
	return nil
}

// responseError builds an APIError from a failed response. Cortex reports
// errors as {"error": {"type", "code", "message"}}; any other body is kept
// verbatim as the message.
func responseError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != nil && envelope.Error.Type != "" {
		envelope.Error.Status = resp.StatusCode
		return envelope.Error
	}

	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{
		Type:    TypeAPIError,
		Code:    CodeHTTPError,
		Message: fmt.Sprintf("status %d: %s", resp.StatusCode, msg),
		Status:  resp.StatusCode,
	}
}
