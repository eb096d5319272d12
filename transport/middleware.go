package transport

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HeaderRequestID is the header carrying the per-request correlation ID.
const HeaderRequestID = "X-Request-ID"

// Middleware decorates a RoundTripper.
type Middleware func(next http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip calls f(req).
func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Chain wraps base with mw so that mw[0] runs first.
func Chain(base http.RoundTripper, mw ...Middleware) http.RoundTripper {
	rt := base
	for i := len(mw) - 1; i >= 0; i-- {
		if mw[i] != nil {
			rt = mw[i](rt)
		}
	}
	return rt
}

// RequestID sets X-Request-ID from the request context, or a new UUID when the
// context carries none. An ID already present on the request is kept.
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get(HeaderRequestID) != "" {
				return next.RoundTrip(req)
			}
			id := RequestIDFromContext(req.Context())
			if id == "" {
				id = uuid.NewString()
			}
			out := req.Clone(req.Context())
			out.Header.Set(HeaderRequestID, id)
			return next.RoundTrip(out)
		})
	}
}

// Logging records method, path, status and latency of every request.
// Headers, query strings and bodies are never logged.
func Logging(logger zerolog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)

			var ev *zerolog.Event
			switch {
			case err != nil:
				ev = logger.Warn().Err(err)
			case resp.StatusCode >= 400:
				ev = logger.Warn().Int("status", resp.StatusCode)
			default:
				ev = logger.Debug().Int("status", resp.StatusCode)
			}
			ev.Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("request_id", req.Header.Get(HeaderRequestID)).
				Dur("duration", time.Since(start)).
				Msg("cosyncjwt request")

			return resp, err
		})
	}
}
