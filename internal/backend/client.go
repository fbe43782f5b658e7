// Package backend is the REST client for the text-analysis backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// TokenSource supplies the bearer token at call time and is told which
// token the backend rejected.
type TokenSource interface {
	CurrentToken() string
	Expire(token string)
}

// Paths are the endpoint paths relative to the base URL.
type Paths struct {
	Login    string
	Register string
	Analyze  string
	Batch    string
	History  string
	Export   string
}

// DefaultPaths match the reference backend deployment.
func DefaultPaths() Paths {
	return Paths{
		Login:    "/api/auth/login",
		Register: "/api/auth/register",
		Analyze:  "/api/analyze",
		Batch:    "/api/analyze/batch-analyze",
		History:  "/api/analyze/history",
		Export:   "/api/analyze/export/excel",
	}
}

// Client handles backend API interactions.
type Client struct {
	baseURL    string
	httpClient *http.Client
	paths      Paths
	tokens     TokenSource
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithPaths overrides endpoint paths. Empty fields keep their defaults.
func WithPaths(p Paths) Option {
	return func(c *Client) {
		def := c.paths
		c.paths = Paths{
			Login:    firstNonEmpty(p.Login, def.Login),
			Register: firstNonEmpty(p.Register, def.Register),
			Analyze:  firstNonEmpty(p.Analyze, def.Analyze),
			Batch:    firstNonEmpty(p.Batch, def.Batch),
			History:  firstNonEmpty(p.History, def.History),
			Export:   firstNonEmpty(p.Export, def.Export),
		}
	}
}

// WithRateLimit caps outbound requests per second. A zero limit disables it.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a backend client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		paths:      DefaultPaths(),
		limiter:    rate.NewLimiter(rate.Inf, 1),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTokens returns a copy of the client that authenticates protected
// requests with ts.
func (c *Client) WithTokens(ts TokenSource) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

// BaseURL returns the backend origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type request struct {
	method      string
	path        string
	body        io.Reader
	contentType string
	protected   bool
	accept      string
}

func jsonRequest(method, path string, payload any, protected bool) (request, error) {
	r := request{method: method, path: path, protected: protected, accept: "application/json"}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return r, fmt.Errorf("failed to encode request: %w", err)
		}
		r.body = bytes.NewReader(data)
		r.contentType = "application/json"
	}
	return r, nil
}

// do sends r and returns the response body for 2xx responses.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	var token string
	if r.protected {
		if c.tokens != nil {
			token = c.tokens.CurrentToken()
		}
		if token == "" {
			return nil, ErrNoToken
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.accept != "" {
		req.Header.Set("Accept", r.accept)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("backend request",
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp, body)
		if resp.StatusCode == http.StatusUnauthorized && r.protected && c.tokens != nil {
			c.tokens.Expire(token)
		}
		return nil, apiErr
	}

	return body, nil
}

func (c *Client) doJSON(ctx context.Context, r request, result any) error {
	body, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	if result == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func (c *Client) recordPath(id string) string {
	return c.paths.History + "/" + url.PathEscape(id)
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
