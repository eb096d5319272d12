package auditredis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cosync/cosyncjwt"
)

const (
	DefaultStream  = "cosyncjwt:audit"
	DefaultMaxLen  = 10000
	DefaultTimeout = 2 * time.Second
)

// ErrRedisUnavailable wraps Redis failures returned by Recent.
var ErrRedisUnavailable = errors.New("audit redis unavailable")

// StreamSink appends audit events to a Redis stream.
type StreamSink struct {
	redis   redis.UniversalClient
	stream  string
	maxLen  int64
	timeout time.Duration

	failures atomic.Uint64
}

// Option configures a StreamSink.
type Option func(*StreamSink)

// WithStream sets the stream key.
func WithStream(name string) Option {
	return func(s *StreamSink) {
		if name != "" {
			s.stream = name
		}
	}
}

// WithMaxLen caps the stream at roughly n entries. n <= 0 disables trimming.
func WithMaxLen(n int64) Option {
	return func(s *StreamSink) {
		s.maxLen = n
	}
}

// WithTimeout bounds each XADD.
func WithTimeout(d time.Duration) Option {
	return func(s *StreamSink) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewStreamSink returns a sink writing to client.
func NewStreamSink(client redis.UniversalClient, opts ...Option) *StreamSink {
	s := &StreamSink{
		redis:   client,
		stream:  DefaultStream,
		maxLen:  DefaultMaxLen,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Emit writes event to the stream. Failures are counted, never returned.
func (s *StreamSink) Emit(ctx context.Context, event cosyncjwt.AuditEvent) {
	if s == nil || s.redis == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	values, err := encodeEvent(event)
	if err != nil {
		s.failures.Add(1)
		return
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: values,
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.redis.XAdd(ctx, args).Err(); err != nil {
		s.failures.Add(1)
	}
}

// Failures returns the number of events that could not be written.
func (s *StreamSink) Failures() uint64 {
	if s == nil {
		return 0
	}
	return s.failures.Load()
}

// Recent returns up to n events, newest first.
func (s *StreamSink) Recent(ctx context.Context, n int64) ([]cosyncjwt.AuditEvent, error) {
	msgs, err := s.redis.XRevRangeN(ctx, s.stream, "+", "-", n).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	out := make([]cosyncjwt.AuditEvent, 0, len(msgs))
	for _, msg := range msgs {
		ev, err := decodeEvent(msg.Values)
		if err != nil {
			return nil, fmt.Errorf("decode entry %s: %w", msg.ID, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

func encodeEvent(event cosyncjwt.AuditEvent) (map[string]any, error) {
	values := map[string]any{
		"timestamp":  event.Timestamp.UTC().Format(time.RFC3339Nano),
		"event_type": event.EventType,
		"handle":     event.Handle,
		"request_id": event.RequestID,
		"success":    strconv.FormatBool(event.Success),
		"error":      event.Error,
	}
	if len(event.Metadata) > 0 {
		md, err := json.Marshal(event.Metadata)
		if err != nil {
			return nil, err
		}
		values["metadata"] = string(md)
	}
	return values, nil
}

func decodeEvent(values map[string]any) (cosyncjwt.AuditEvent, error) {
	str := func(k string) string {
		v, _ := values[k].(string)
		return v
	}

	var ev cosyncjwt.AuditEvent
	if ts := str("timestamp"); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return ev, err
		}
		ev.Timestamp = t
	}
	ev.EventType = str("event_type")
	ev.Handle = str("handle")
	ev.RequestID = str("request_id")
	ev.Success = str("success") == "true"
	ev.Error = str("error")
	if md := str("metadata"); md != "" {
		if err := json.Unmarshal([]byte(md), &ev.Metadata); err != nil {
			return ev, err
		}
	}
	return ev, nil
}
