package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/theoremus-urban-solutions/etl-strato/config"
	"github.com/theoremus-urban-solutions/etl-strato/internal/logging"
)

// Response is the raw upstream payload together with the URL it came from
type Response struct {
	URL        *url.URL
	StatusCode int
	Body       []byte
}

// Client is a simple HTTP client for fetching the upstream feed
type Client struct {
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient creates a new client; a zero timeout disables the deadline
func NewClient(timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		log:        logging.OrNop(log),
	}
}

// NewClientWithHTTP wraps an existing http.Client
func NewClientWithHTTP(hc *http.Client, log *zap.Logger) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{httpClient: hc, log: logging.OrNop(log)}
}

// BuildURL appends params to raw, keeping any query string already present
// and the order the params were configured in.
func BuildURL(raw string, params []config.KeyValue) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", raw, err)
	}
	if len(params) == 0 {
		return u, nil
	}
	var b strings.Builder
	b.WriteString(u.RawQuery)
	for _, p := range params {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	u.RawQuery = b.String()
	return u, nil
}

// BuildHeaders turns the configured headers into a header map; a later
// duplicate key replaces an earlier one
func BuildHeaders(headers []config.KeyValue) http.Header {
	h := http.Header{}
	for _, kv := range headers {
		h.Set(kv.Key, kv.Value)
	}
	return h
}

// Fetch issues one GET for the environment and returns the raw body
func (c *Client) Fetch(ctx context.Context, env config.Environment) (*Response, error) {
	u, err := BuildURL(env.URL, env.QueryParams)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range BuildHeaders(env.Headers) {
		req.Header[k] = v
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", redact(u), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, redact(u))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body from %s: %w", redact(u), err)
	}

	c.log.Debug("fetched upstream feed",
		zap.String("url", redact(u)),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Response{URL: u, StatusCode: resp.StatusCode, Body: body}, nil
}

// redact drops the query string, which commonly carries API keys
func redact(u *url.URL) string {
	c := *u
	c.RawQuery = ""
	c.User = nil
	return c.String()
}
