package transport

import "context"

type ctxKey int

const requestIDKey ctxKey = iota

// WithRequestID returns a context carrying id. The RequestID middleware sends
// it as the X-Request-ID header instead of generating a fresh one.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request ID stored by WithRequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
