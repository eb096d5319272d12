package transport

import (
	"context"
	"net/url"
)

// Transport sends a single request and returns the raw response.
//
// Implementations return a non-nil error only when no HTTP response was
// obtained (dial failure, cancellation, malformed request). Non-2xx statuses
// are returned as a Response, not an error.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// Credential is the header-based credential attached to a request.
type Credential struct {
	Header string
	Token  string
}

// Request describes one call to the backend.
type Request struct {
	Method     string
	BaseURL    string
	Path       string
	Query      url.Values
	Credential Credential
	// Body is JSON-encoded when non-nil.
	Body any
}

// Response is the status and payload of a completed call.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Func adapts an ordinary function to the Transport interface.
type Func func(ctx context.Context, req *Request) (*Response, error)

// Send calls f(ctx, req).
func (f Func) Send(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
