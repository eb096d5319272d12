package cosyncjwt

import (
	"context"

	"github.com/cosync/cosyncjwt/transport"
	"github.com/google/uuid"
)

// WithRequestID attaches a correlation ID to ctx. Client operations send it as
// X-Request-ID and record it on audit events. Without one, each operation
// generates a UUID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return transport.WithRequestID(ctx, id)
}

// RequestIDFromContext returns the correlation ID attached to ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	return transport.RequestIDFromContext(ctx)
}

func ensureRequestID(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if transport.RequestIDFromContext(ctx) != "" {
		return ctx
	}
	return transport.WithRequestID(ctx, uuid.NewString())
}
