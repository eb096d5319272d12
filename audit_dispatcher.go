package cosyncjwt

import (
	"context"
	"sync"
	"sync/atomic"
)

// AuditStats is a point-in-time view of audit delivery.
type AuditStats struct {
	// Delivered counts events handed to the sink without panicking.
	Delivered uint64
	// Dropped counts events lost to a full buffer or a canceled blocking Emit.
	Dropped uint64
	// SinkPanics counts events whose sink Emit panicked.
	SinkPanics uint64
	// DroppedByEvent breaks Dropped down by AuditEvent.EventType.
	DroppedByEvent map[string]uint64
}

// auditDispatcher moves events off the calling goroutine. Emit enqueues on a
// bounded channel; a single worker ranges over it until Close closes it.
type auditDispatcher struct {
	sink     AuditSink
	queue    chan AuditEvent
	blocking bool
	stopped  chan struct{}

	// mu guards closed and the send side of queue. Emit holds it shared.
	mu     sync.RWMutex
	closed bool

	delivered  atomic.Uint64
	sinkPanics atomic.Uint64

	dropMu  sync.Mutex
	dropped map[string]uint64
	total   uint64
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		sink:     sink,
		queue:    make(chan AuditEvent, size),
		blocking: !cfg.DropIfFull,
		stopped:  make(chan struct{}),
		dropped:  make(map[string]uint64),
	}
	go d.run()
	return d
}

func (d *auditDispatcher) run() {
	defer close(d.stopped)
	for event := range d.queue {
		d.deliver(event)
	}
}

// deliver isolates the worker from a misbehaving sink.
func (d *auditDispatcher) deliver(event AuditEvent) {
	defer func() {
		if recover() != nil {
			d.sinkPanics.Add(1)
		}
	}()
	d.sink.Emit(context.Background(), event)
	d.delivered.Add(1)
}

// Emit queues event. With DropIfFull a full buffer drops the event; otherwise
// Emit waits for space or ctx. Events emitted after Close are ignored.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if !d.blocking {
		select {
		case d.queue <- event:
		default:
			d.drop(event.EventType)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.drop(event.EventType)
	}
}

func (d *auditDispatcher) drop(eventType string) {
	d.dropMu.Lock()
	d.dropped[eventType]++
	d.total++
	d.dropMu.Unlock()
}

// Close stops intake, lets the worker drain the queue and waits for it.
// Repeated calls wait for the same drain.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.stopped
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	d.dropMu.Lock()
	defer d.dropMu.Unlock()
	return d.total
}

func (d *auditDispatcher) Stats() AuditStats {
	if d == nil {
		return AuditStats{DroppedByEvent: map[string]uint64{}}
	}
	d.dropMu.Lock()
	byEvent := make(map[string]uint64, len(d.dropped))
	for k, v := range d.dropped {
		byEvent[k] = v
	}
	total := d.total
	d.dropMu.Unlock()

	return AuditStats{
		Delivered:      d.delivered.Load(),
		Dropped:        total,
		SinkPanics:     d.sinkPanics.Load(),
		DroppedByEvent: byEvent,
	}
}
