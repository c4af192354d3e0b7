package api

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
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	DefaultTimeout = 30 * time.Second
	userAgent      = "coinvest/1.0"
)

var ErrInvalidEndpoint = errors.New("invalid endpoint path")

// Client talks to the investment platform backend. The bearer token is set by the
// session store and attached to every request while present.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	Logger     *slog.Logger

	mu    sync.RWMutex
	token string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		BaseURL: strings.TrimRight(baseURL, "/"),
		Logger:  slog.Default(),
	}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) ClearToken() {
	c.SetToken("")
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// endpointURL joins an endpoint path onto the base URL. Paths must be absolute and free of
// quotes, whitespace and schemes, so a typo such as `'/transactions/...` fails here instead
// of reaching the server as a different route.
func (c *Client) endpointURL(endpoint string) (string, error) {
	if !strings.HasPrefix(endpoint, "/") || strings.HasPrefix(endpoint, "//") {
		return "", fmt.Errorf("%w: %q must start with a single /", ErrInvalidEndpoint, endpoint)
	}
	if strings.ContainsAny(endpoint, "'\"` \t\r\n\\") {
		return "", fmt.Errorf("%w: %q contains illegal characters", ErrInvalidEndpoint, endpoint)
	}
	if strings.Contains(endpoint, "://") {
		return "", fmt.Errorf("%w: %q must be a path, not a URL", ErrInvalidEndpoint, endpoint)
	}

	base, err := url.Parse(c.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("%w: base URL %q is not absolute", ErrInvalidEndpoint, c.BaseURL)
	}

	ref, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}

	full := *base
	full.Path = strings.TrimRight(base.Path, "/") + ref.Path
	full.RawQuery = ref.RawQuery
	return full.String(), nil
}

func (c *Client) makeRequest(ctx context.Context, method, endpoint string, body interface{}) (*http.Response, string, error) {
	fullURL, err := c.endpointURL(endpoint)
	if err != nil {
		return nil, "", err
	}

	var reqBody io.Reader
	if body != nil {
		bodyContent, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(bodyContent)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-Id", requestID)

	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, requestID, err
	}
	return resp, requestID, nil
}

// do performs a request and decodes a 2xx JSON body into out (when out is non-nil).
// Failures are classified into *TransportError, *ValidationError and *UnknownError.
func (c *Client) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	resp, requestID, err := c.makeRequest(ctx, method, endpoint, body)
	if err != nil {
		var urlErr *url.Error
		if !errors.As(err, &urlErr) {
			c.logger().Error("api request not sent", "method", method, "path", endpoint, "error", err)
			return &UnknownError{Err: err}
		}
		c.logger().Warn("api request failed", "method", method, "path", endpoint, "request_id", requestID, "error", err)
		return &TransportError{Method: method, Path: endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: method, Path: endpoint, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	c.logger().Debug("api request", "method", method, "path", endpoint, "status", resp.StatusCode, "request_id", requestID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyStatus(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		if out != nil {
			return &UnknownError{Status: resp.StatusCode, Body: "", Err: errors.New("empty response from server")}
		}
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &UnknownError{Status: resp.StatusCode, Body: truncate(string(data)), Err: err}
	}

	if v, ok := out.(validatable); ok {
		if err := v.validate(); err != nil {
			return &UnknownError{Status: resp.StatusCode, Body: truncate(string(data)), Err: err}
		}
	}

	return nil
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// validatable records check their own shape after decoding.
type validatable interface {
	validate() error
}

// truncate cuts s to at most 512 bytes on a rune boundary.
func truncate(s string) string {
	const limit = 512
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
