// Package apiclient sends JSON requests to the remote task API.
//
// The client never turns a non-2xx status into an error; classification is
// left to the caller. Only transport failures are errors.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"taskctl/internal/apperr"
	"taskctl/internal/logging"
)

// DefaultTimeout bounds a single request when Options.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Options configures a Client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
	RateBurst int

	// HTTPClient defaults to a plain http.Client.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client is the HTTP adapter.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	timeout time.Duration
	log     *slog.Logger
}

// New creates a Client for the API rooted at opts.BaseURL.
func New(opts Options) (*Client, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", opts.BaseURL)
	}
	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    opts.HTTPClient,
		timeout: opts.Timeout,
		log:     logging.OrDiscard(opts.Logger),
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return c, nil
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Send performs req. A non-2xx status is returned as a normal Response.
// Transport failures return *apperr.NetworkError.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	op := req.Method + " " + req.Path

	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &apperr.NetworkError{Op: op, Err: err}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	httpReq = httpReq.WithContext(ctx)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Debug("request failed", "op", op, "request_id", httpReq.Header.Get(RequestIDHeader), "error", err)
		return nil, &apperr.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperr.NetworkError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}

	c.log.Debug("request",
		"op", op,
		"status", resp.StatusCode,
		"request_id", httpReq.Header.Get(RequestIDHeader),
		"duration", time.Since(start))

	return &Response{
		Status: resp.StatusCode,
		Body:   normalizeBody(resp.Header.Get("Content-Type"), raw),
	}, nil
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", method, req.Path, err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, req.Path, err)
	}
	for k, vs := range req.Headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get(RequestIDHeader) == "" {
		httpReq.Header.Set(RequestIDHeader, uuid.NewString())
	}
	if req.Token != "" {
		(&oauth2.Token{AccessToken: req.Token, TokenType: "Bearer"}).SetAuthHeader(httpReq)
	}
	return httpReq, nil
}

// normalizeBody keeps JSON bodies as-is and wraps anything else as
// {"message": text}. An empty JSON body becomes null.
func normalizeBody(contentType string, raw []byte) json.RawMessage {
	if isJSON(contentType) {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 {
			return json.RawMessage("null")
		}
		if json.Valid(trimmed) {
			return json.RawMessage(trimmed)
		}
	}
	wrapped, _ := json.Marshal(map[string]string{"message": string(raw)})
	return wrapped
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
