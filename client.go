package cosyncjwt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cosync/cosyncjwt/internal/api"
	"github.com/cosync/cosyncjwt/transport"
	"github.com/rs/zerolog"
)

// metricNone marks operations without a dedicated counter. Metrics ignores it.
const metricNone = metricIDCount

// Client runs CosyncJWT flows against the REST backend and keeps the
// resulting Session.
//
// Client methods are safe to call from multiple goroutines. See the package
// documentation for the flow-level ordering caveat.
type Client struct {
	mu          sync.RWMutex
	appToken    string
	restAddress string

	transport transport.Transport
	session   *Session
	logger    zerolog.Logger
	audit     *auditDispatcher
	metrics   *Metrics
}

// Configure sets the app token and REST address. An empty restAddress selects
// DefaultRestAddress.
func (c *Client) Configure(appToken, restAddress string) {
	if restAddress == "" {
		restAddress = DefaultRestAddress
	}

	c.mu.Lock()
	c.appToken = appToken
	c.restAddress = restAddress
	c.mu.Unlock()
}

func (c *Client) configuration() (appToken, restAddress string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.appToken, c.restAddress
}

func (c *Client) requireConfigured() (appToken, restAddress string, err error) {
	appToken, restAddress = c.configuration()
	if appToken == "" || restAddress == "" {
		return "", "", ErrNotConfigured
	}
	return appToken, restAddress, nil
}

func (c *Client) ready() error {
	if c == nil || c.transport == nil || c.session == nil {
		return ErrClientNotReady
	}
	return nil
}

// Session returns the Session this Client mutates.
func (c *Client) Session() *Session {
	if c == nil {
		return nil
	}
	return c.session
}

// IsLoggedIn reports whether the Session holds both a JWT and an access token.
func (c *Client) IsLoggedIn() bool {
	if c == nil || c.session == nil {
		return false
	}
	return c.session.IsLoggedIn()
}

// Close flushes and stops the audit dispatcher. The Client must not be used
// afterwards.
func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.audit != nil {
		c.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped because the buffer was full.
func (c *Client) AuditDropped() uint64 {
	if c == nil || c.audit == nil {
		return 0
	}
	return c.audit.Dropped()
}

// AuditStats reports audit delivery counts. It is zero when audit is disabled.
func (c *Client) AuditStats() AuditStats {
	if c == nil {
		return AuditStats{DroppedByEvent: map[string]uint64{}}
	}
	return c.audit.Stats()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot returns empty maps when metrics are disabled.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

func appCredential(token string) transport.Credential {
	return transport.Credential{Header: api.HeaderAppToken, Token: token}
}

func accessCredential(token string) transport.Credential {
	return transport.Credential{Header: api.HeaderAccessToken, Token: token}
}

// do sends req and converts a non-2xx status into an APIError. A panic inside
// the Transport is recovered and reported as ErrSomethingWentWrong.
func (c *Client) do(ctx context.Context, req *transport.Request) (resp *transport.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().
				Str("path", req.Path).
				Str("panic", fmt.Sprint(r)).
				Msg("transport panic recovered")
			resp, err = nil, fmt.Errorf("%w: transport panic", ErrSomethingWentWrong)
		}
	}()

	start := time.Now()
	resp, err = c.transport.Send(ctx, req)
	c.metrics.Observe(MetricRequestLatency, time.Since(start))
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: nil response", ErrSomethingWentWrong)
	}
	if !resp.OK() {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if body, ok := api.ParseError(resp.Body); ok {
			apiErr.Code = body.Code
			apiErr.Message = body.Message
		}
		return nil, apiErr
	}
	return resp, nil
}

// send is do plus the rule that a successful response must carry a body.
func (c *Client) send(ctx context.Context, req *transport.Request) ([]byte, error) {
	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil, fmt.Errorf("%w: empty response body", ErrSomethingWentWrong)
	}
	return resp.Body, nil
}

func decodeAuthResult(body []byte) (*AuthResult, error) {
	var out AuthResult
	if err := api.DecodeJSON(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode auth response: %v", ErrSomethingWentWrong, err)
	}
	return &out, nil
}

func decodeBool(body []byte) (bool, error) {
	ok, err := api.ParseBoolString(body)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrSomethingWentWrong, err)
	}
	return ok, nil
}

// fail records a failed operation and returns err unchanged.
func (c *Client) fail(ctx context.Context, op, handle string, metric MetricID, event string, err error) error {
	c.metrics.Inc(metric)
	switch {
	case errors.Is(err, ErrNotConfigured):
		c.metrics.Inc(MetricNotConfigured)
	case errors.Is(err, ErrNoAccessToken):
		c.metrics.Inc(MetricNoAccessToken)
	case errors.Is(err, ErrPasswordInvalid):
		c.metrics.Inc(MetricPasswordPolicyRejected)
	}

	c.logger.Warn().
		Str("op", op).
		Str("handle", handle).
		Str("request_id", transport.RequestIDFromContext(ctx)).
		Err(err).
		Msg("operation failed")

	if event != "" {
		c.emitAudit(ctx, event, false, handle, err, auditFailureMetadata(op, err))
	}
	return err
}

// succeed records a successful operation.
func (c *Client) succeed(ctx context.Context, op, handle string, metric MetricID, event string) {
	c.metrics.Inc(metric)
	c.logger.Debug().
		Str("op", op).
		Str("handle", handle).
		Msg("operation succeeded")
	if event != "" {
		c.emitAudit(ctx, event, true, handle, nil, func() map[string]string {
			return map[string]string{"op": op}
		})
	}
}

// sessionChanged logs a successful session mutation.
func (c *Client) sessionChanged(op, handle string) {
	c.logger.Info().
		Str("op", op).
		Str("handle", handle).
		Bool("logged_in", c.session.IsLoggedIn()).
		Msg("session updated")
}
