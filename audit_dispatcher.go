package gateAuth

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditEventKinds fixes the order of the per-event drop counters. Event
// types outside this list are counted under "other".
var auditEventKinds = [...]string{
	auditEventLoginSuccess,
	auditEventLoginFailure,
	auditEventLoginRateLimited,
	auditEventCSRFRejected,
	auditEventSessionCreateFailed,
	auditEventLogoutSession,
	auditEventLogoutFailed,
}

const auditEventOther = "other"

func auditKindIndex(eventType string) int {
	for i, k := range auditEventKinds {
		if k == eventType {
			return i
		}
	}
	return len(auditEventKinds)
}

// auditDispatcher hands login and session events to the sink on its own
// goroutine so a slow sink never delays a login response.
type auditDispatcher struct {
	cfg  AuditConfig
	sink AuditSink
	ch   chan AuditEvent
	done chan struct{}
	wg   sync.WaitGroup

	dropped       atomic.Uint64
	droppedByKind [len(auditEventKinds) + 1]atomic.Uint64

	closed    atomic.Bool
	closeOnce sync.Once
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		cfg:  cfg,
		sink: sink,
		ch:   make(chan AuditEvent, cfg.BufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *auditDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.sink.Emit(context.Background(), event)
		case <-d.done:
			// drain what was accepted before Close
			for {
				select {
				case event := <-d.ch:
					d.sink.Emit(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

// Emit queues event. With DropIfFull a full buffer drops the event;
// otherwise Emit waits for room, and an event abandoned because the request
// context ended is dropped as well. Every drop is counted per event type.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		case <-d.done:
		default:
			d.drop(event.EventType)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
		d.drop(event.EventType)
	case <-d.done:
	}
}

func (d *auditDispatcher) drop(eventType string) {
	d.dropped.Add(1)
	d.droppedByKind[auditKindIndex(eventType)].Add(1)
}

// Close stops accepting events and waits for queued ones to reach the sink.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// DroppedByEvent returns the drop count of every known event type plus
// "other". A nil dispatcher reports zeros.
func (d *auditDispatcher) DroppedByEvent() map[string]uint64 {
	out := make(map[string]uint64, len(auditEventKinds)+1)
	for i := 0; i <= len(auditEventKinds); i++ {
		kind := auditEventOther
		if i < len(auditEventKinds) {
			kind = auditEventKinds[i]
		}
		var n uint64
		if d != nil {
			n = d.droppedByKind[i].Load()
		}
		out[kind] = n
	}
	return out
}
