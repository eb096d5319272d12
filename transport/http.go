package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds a single request when no http.Client is supplied.
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "cosyncjwt-go"
	// MaxResponseBytes caps the payload read from the backend.
	MaxResponseBytes = 1 << 20
)

// HTTP is a Transport backed by net/http.
type HTTP struct {
	client    *http.Client
	userAgent string
}

// HTTPOption configures an HTTP transport.
type HTTPOption func(*HTTP)

// WithHTTPClient replaces the underlying client. Middleware added later wraps
// its Transport.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) {
		if c != nil {
			h.client = c
		}
	}
}

// WithTimeout sets the per-request timeout. A client supplied through
// WithHTTPClient is copied, never modified.
func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTP) {
		cloned := *h.client
		cloned.Timeout = d
		h.client = &cloned
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(h *HTTP) {
		if ua != "" {
			h.userAgent = ua
		}
	}
}

// WithMiddleware wraps the client's RoundTripper. The first middleware is the
// outermost.
func WithMiddleware(mw ...Middleware) HTTPOption {
	return func(h *HTTP) {
		base := h.client.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		cloned := *h.client
		cloned.Transport = Chain(base, mw...)
		h.client = &cloned
	}
}

// NewHTTP returns an HTTP transport with the given options applied in order.
func NewHTTP(opts ...HTTPOption) *HTTP {
	h := &HTTP{
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Send implements Transport.
func (h *HTTP) Send(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("transport: nil request")
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("transport: encode body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, buildURL(req), body)
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("User-Agent", h.userAgent)
	if req.Credential.Header != "" {
		httpReq.Header.Set(req.Credential.Header, req.Credential.Token)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("transport: read body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: payload}, nil
}

func buildURL(req *Request) string {
	u := strings.TrimRight(req.BaseURL, "/") + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	return u
}
