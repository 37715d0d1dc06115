// Package mcp drives a remote browser-automation (MCP) server over HTTP.
// A Client owns one browser session at a time and validates every URL it
// touches before any request leaves the process.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/c360studio/edgarbridge/metrics"
	"github.com/c360studio/edgarbridge/source/weburl"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Defaults for the MCP server connection.
const (
	DefaultServerURL   = "http://localhost:3000"
	ServerURLEnv       = "MCP_SERVER_URL"
	DefaultUserAgent   = "edgarbridge admin@example.com"
	DefaultBrowserType = "chromium"
	DefaultTimeout     = 60 * time.Second

	// DefaultRateLimit paces navigation to stay under the SEC fair-access
	// limit of ten requests per second.
	DefaultRateLimit = 5
	DefaultBurst     = 1
)

// Command names understood by the execute endpoint.
const (
	CommandNavigate = "navigate"
	CommandContent  = "content"
)

// maxResponseSize limits response bodies read from the MCP server.
const maxResponseSize = 32 * 1024 * 1024

// maxErrorBody limits how much of a failure body is kept in errors and logs.
const maxErrorBody = 2048

// Client manages one remote-browser session.
// Commands on a Client are serialized and run in submission order.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	validator   *weburl.Validator
	limiter     *rate.Limiter
	metrics     *metrics.Metrics
	logger      *slog.Logger
	userAgent   string
	browserType string
	timeout     time.Duration

	// mu serializes commands and guards sessionID.
	mu        sync.Mutex
	sessionID string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client. The loopback-only dialer is not
// installed on a custom client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

// WithValidator sets the URL validator, e.g. one with a fixed resolver.
func WithValidator(v *weburl.Validator) ClientOption {
	return func(client *Client) {
		client.validator = v
	}
}

// WithMetrics records validation and command metrics.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(client *Client) {
		client.metrics = m
	}
}

// WithUserAgent sets the User-Agent header sent to the MCP server.
func WithUserAgent(ua string) ClientOption {
	return func(client *Client) {
		if ua != "" {
			client.userAgent = ua
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(client *Client) {
		if d > 0 {
			client.timeout = d
		}
	}
}

// WithRateLimit paces navigation commands. A non-positive limit disables
// pacing.
func WithRateLimit(perSecond float64, burst int) ClientOption {
	return func(client *Client) {
		if perSecond <= 0 {
			client.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		client.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewClient creates a client for the MCP server at baseURL. The URL must pass
// the local-service policy; otherwise an *InvalidURLError is returned.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		userAgent:   DefaultUserAgent,
		browserType: DefaultBrowserType,
		timeout:     DefaultTimeout,
		limiter:     rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultBurst),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.validator == nil {
		c.validator = weburl.NewValidator(nil)
	}

	policy := weburl.LocalServicePolicy()
	res := c.validator.Validate(context.Background(), baseURL, policy)
	c.metrics.RecordValidation(policy.Name, string(res.Reason))
	if !res.OK() {
		return nil, newInvalidURLError(baseURL, res)
	}
	c.baseURL = res.Canonical

	if c.httpClient == nil {
		c.httpClient = newHTTPClient(c.timeout, c.validator)
	}

	c.logger.Debug("MCP client initialized", "server_url", c.baseURL)
	return c, nil
}

// BaseURL returns the canonical server URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SessionID returns the open session id, or "" when no session is open.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// EnsureSession opens a browser session if none is open and returns its id.
func (c *Client) EnsureSession(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureSessionLocked(ctx)
}

func (c *Client) ensureSessionLocked(ctx context.Context) (string, error) {
	if c.sessionID != "" {
		return c.sessionID, nil
	}

	id, err := c.createSession(ctx)
	if err != nil {
		return "", err
	}

	c.sessionID = id
	c.logger.Info("Browser session created", "session_id", id)
	return id, nil
}

type createSessionRequest struct {
	BrowserType string `json:"browserType"`
}

type createSessionResponse struct {
	SessionID string `json:"sessionId"`
}

// createSession asks the server for a new session without storing it.
func (c *Client) createSession(ctx context.Context) (string, error) {
	status, body, err := c.do(ctx, "create_session", http.MethodPost, createSessionRequest{BrowserType: c.browserType}, "session")
	if err != nil {
		return "", NewConnectionError(c.baseURL, err)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return "", NewConnectionError(c.baseURL, fmt.Errorf("status %d: %s", status, truncate(body)))
	}

	var resp createSessionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", NewConnectionError(c.baseURL, fmt.Errorf("decode session response: %w", err))
	}
	if resp.SessionID == "" {
		return "", NewConnectionError(c.baseURL, fmt.Errorf("no sessionId in response"))
	}
	return resp.SessionID, nil
}

type executeRequest struct {
	Command string         `json:"command"`
	Args    map[string]any `json:"args,omitempty"`
}

type contentResponse struct {
	Content *string `json:"content"`
}

// Navigate validates target against policy and tells the browser to open
// it. It returns false, without sending anything, when validation fails; it
// also returns false when the session cannot be opened or the server answers
// with a non-200 status. Navigate never panics on bad input.
func (c *Client) Navigate(ctx context.Context, target string, policy weburl.Policy) bool {
	res := c.validator.Validate(ctx, target, policy)
	c.metrics.RecordValidation(policy.Name, string(res.Reason))
	if !res.OK() {
		c.logger.Warn("Navigation blocked",
			"url", target,
			"policy", policy.Name,
			"reason", res.Reason,
			"detail", res.Detail)
		return false
	}

	if err := c.limiter.Wait(ctx); err != nil {
		c.logger.Warn("Navigation cancelled", "url", res.Canonical, "error", err)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.ensureSessionLocked(ctx)
	if err != nil {
		c.logger.Error("Navigation failed: no session", "url", res.Canonical, "error", err)
		return false
	}

	req := executeRequest{Command: CommandNavigate, Args: map[string]any{"url": res.Canonical}}
	status, body, err := c.do(ctx, CommandNavigate, http.MethodPost, req, "session", id, "execute")
	if err != nil {
		c.logger.Error("Navigation failed", "url", res.Canonical, "error", err)
		return false
	}
	if status != http.StatusOK {
		c.logger.Error("Navigation failed", "url", res.Canonical, "status", status, "body", truncate(body))
		return false
	}

	c.logger.Info("Navigated", "url", res.Canonical, "domain", weburl.ExtractDomain(res.Canonical))
	return true
}

// PageContent returns the current page content of the session. Failures are
// reported as *ContentRetrievalError and are not retried.
func (c *Client) PageContent(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.ensureSessionLocked(ctx)
	if err != nil {
		return "", err
	}

	status, body, err := c.do(ctx, CommandContent, http.MethodPost, executeRequest{Command: CommandContent}, "session", id, "execute")
	if err != nil {
		return "", &ContentRetrievalError{Err: err}
	}
	if status != http.StatusOK {
		c.logger.Error("Content retrieval failed", "status", status, "body", truncate(body))
		return "", &ContentRetrievalError{Status: status, Body: truncate(body)}
	}

	var resp contentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &ContentRetrievalError{Status: status, Body: truncate(body), Err: fmt.Errorf("decode content response: %w", err)}
	}
	if resp.Content == nil {
		return "", &ContentRetrievalError{Status: status, Body: truncate(body), Err: fmt.Errorf("no content in response")}
	}

	c.logger.Debug("Retrieved page content", "bytes", len(*resp.Content))
	return *resp.Content, nil
}

// CloseSession closes the open session, if any. Failures are logged and the
// session id is cleared regardless.
func (c *Client) CloseSession(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sessionID == "" {
		return
	}
	id := c.sessionID
	c.sessionID = ""
	c.deleteSession(ctx, id)
}

// Close closes the session and releases idle connections.
func (c *Client) Close(ctx context.Context) {
	c.CloseSession(ctx)
	c.httpClient.CloseIdleConnections()
}

func (c *Client) deleteSession(ctx context.Context, id string) {
	status, body, err := c.do(ctx, "close_session", http.MethodDelete, nil, "session", id)
	switch {
	case err != nil:
		c.logger.Warn("Error closing browser session", "session_id", id, "error", err)
	case status != http.StatusOK && status != http.StatusNoContent:
		c.logger.Warn("Session close returned unexpected status", "session_id", id, "status", status, "body", truncate(body))
	default:
		c.logger.Info("Browser session closed", "session_id", id)
	}
}

// endpoint joins path-escaped segments onto the base URL and validates the
// result under the local-service policy.
func (c *Client) endpoint(ctx context.Context, segments ...string) (string, error) {
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	raw := c.baseURL
	if len(escaped) > 0 {
		raw += "/" + strings.Join(escaped, "/")
	}

	res := c.validator.Validate(ctx, raw, weburl.LocalServicePolicy())
	if !res.OK() {
		return "", newInvalidURLError(raw, res)
	}
	return raw, nil
}

// do sends one request and returns the status and a bounded body.
func (c *Client) do(ctx context.Context, command, method string, payload any, segments ...string) (int, []byte, error) {
	start := time.Now()
	status, body, err := c.send(ctx, method, payload, segments...)

	label := "error"
	if err == nil {
		label = strconv.Itoa(status)
	}
	c.metrics.RecordCommand(command, label, time.Since(start))
	return status, body, err
}

func (c *Client) send(ctx context.Context, method string, payload any, segments ...string) (int, []byte, error) {
	target, err := c.endpoint(ctx, segments...)
	if err != nil {
		return 0, nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}
