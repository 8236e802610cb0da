package reliability

import (
	"math/rand"
	"time"

	"github.com/oakmoss/coapcore/coap"
	"github.com/oakmoss/coapcore/coap/events"
	"github.com/oakmoss/coapcore/coap/idalloc"
	"github.com/oakmoss/coapcore/coap/scheduler"
	"github.com/oakmoss/coapcore/logx"
)

// Decision is the pipeline continuation signal handle_outbound/handle_inbound
// return to their caller (spec §4.3).
type Decision int

const (
	// Continue means the caller should proceed (write the bytes to the
	// wire, or dispatch the inbound response to the callback manager).
	Continue Decision = iota
	// Drop means the engine has fully handled this message; the caller
	// does nothing further with it.
	Drop
)

// Engine is the Outbound Reliability Engine (C3). Grounded on the
// teacher's transport/udp/reliability.go: a table of pending messages, a
// shared scheduler driving retransmit/timeout tasks, and typed event
// emission in place of the teacher's direct callback-struct calls.
type Engine struct {
	tbl     *table
	ids     *idalloc.Factory
	writer  coap.Writer
	sched   scheduler.Scheduler
	sink    events.Sink
	logger  logx.Logger
	metrics Metrics

	ackTimeout      time.Duration
	ackRandomFactor float64
	maxRetransmit   int
	rng             func() float64
	now             func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger; nil installs logx.NewDefaultLogger.
func WithLogger(l logx.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithAckTimeout overrides ACK_TIMEOUT.
func WithAckTimeout(d time.Duration) Option { return func(e *Engine) { e.ackTimeout = d } }

// WithAckRandomFactor overrides ACK_RANDOM_FACTOR.
func WithAckRandomFactor(f float64) Option { return func(e *Engine) { e.ackRandomFactor = f } }

// WithMaxRetransmit overrides MAX_RETRANSMIT.
func WithMaxRetransmit(n int) Option { return func(e *Engine) { e.maxRetransmit = n } }

// WithJitterSource installs a deterministic jitter source in [0,1) for
// tests; nil uses math/rand.
func WithJitterSource(rng func() float64) Option { return func(e *Engine) { e.rng = rng } }

// WithClock installs a deterministic clock for tests (mirrors
// idalloc.Factory's WithClock); nil uses time.Now.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// New creates an Engine. writer is the narrow wire-facing seam (spec §6);
// ids is the Message-ID Factory (C1); sched is the shared scheduler (spec
// §5); sink receives every emitted event — in production this is the
// Client Callback Manager (C4).
func New(writer coap.Writer, ids *idalloc.Factory, sched scheduler.Scheduler, sink events.Sink, opts ...Option) *Engine {
	e := &Engine{
		tbl:             newTable(),
		ids:             ids,
		writer:          writer,
		sched:           sched,
		sink:            sink,
		ackTimeout:      coap.AckTimeout,
		ackRandomFactor: coap.AckRandomFactor,
		maxRetransmit:   coap.MaxRetransmit,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logx.OrDefault(e.logger)
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Metrics returns a snapshot of the engine's counters (spec §12).
func (e *Engine) Metrics() Snapshot {
	return e.metrics.Snapshot()
}

// HandleOutbound implements spec §4.3's handle_outbound pipeline step.
func (e *Engine) HandleOutbound(msg coap.Message, remote coap.Remote) Decision {
	if msg.IsUpdateNotification() {
		if t, ok := e.tbl.lookupByToken(remote, msg.Token()); ok && t.reliable && !t.isConfirmed() {
			t.fold(msg)
			e.logger.Debug("trace=%s folded update notification into live transfer token=%s remote=%s", t.traceID, msg.Token(), remote)
			return Drop
		}
		msg.SetMessageID(coap.UndefinedID)
	}

	if msg.MessageID() == coap.UndefinedID {
		id := e.ids.NextID(remote)
		if id == coap.UndefinedID {
			e.logger.Error("message id space saturated for remote=%s", remote)
			e.sink.OnMiscError(events.MiscError{Remote: remote, Token: msg.Token(), Desc: "no message id available"})
			return Drop
		}
		msg.SetMessageID(id)
		e.sink.OnMessageIDAssigned(events.MessageIDAssigned{Remote: remote, Token: msg.Token(), ID: id})
	}

	switch {
	case msg.Type() == coap.CON:
		t := newReliableTransfer(remote, msg.MessageID(), msg.Token(), msg, e.now())
		e.tbl.insert(t)
		e.scheduleRetransmit(t)
	case msg.IsRequest():
		t := newNonTransfer(remote, msg.MessageID(), msg.Token(), msg)
		e.tbl.insert(t)
	}

	e.metrics.recordSent()
	return Continue
}

// HandleInbound implements spec §4.3's handle_inbound pipeline step.
func (e *Engine) HandleInbound(msg coap.Message, remote coap.Remote) Decision {
	if msg.Code() == coap.CodeContinue {
		// A block-wise interim response may arrive piggybacked in the ACK
		// that also closes out the CON's reliability bookkeeping, or as a
		// separate CON/NON carrying a server-assigned id of its own — only
		// the former has a live transfer to confirm and remove.
		if msg.Type() == coap.ACK {
			if t, ok := e.tbl.lookupByID(remote, msg.MessageID()); ok {
				t.markConfirmed()
				e.tbl.remove(remote, msg.MessageID())
			}
		}
		e.sink.OnPartialContentReceived(events.PartialContentReceived{
			Remote: remote, Token: msg.Token(), ID: msg.MessageID(), Payload: msg.Payload(),
		})
		return Drop
	}

	if msg.Type() != coap.ACK && msg.Type() != coap.RST {
		return Continue
	}

	t, ok := e.tbl.lookupByID(remote, msg.MessageID())
	if !ok {
		e.logger.Warn("no pending transfer for ack/rst id=%d remote=%s", msg.MessageID(), remote)
		return Drop
	}

	t.markConfirmed()
	e.tbl.remove(remote, msg.MessageID())

	// RTT is only meaningful for a CON's own ACK/RST pair, measured against
	// the transfer's first-send time (teacher's HandleAck: rtt :=
	// now.Sub(pm.FirstSentTime), ACK only).
	if t.reliable && msg.Type() == coap.ACK {
		e.metrics.recordRTT(e.now().Sub(t.sentAt))
	}

	if msg.Code() == coap.CodeEmpty {
		if msg.Type() == coap.ACK {
			e.sink.OnEmptyAckReceived(events.EmptyAckReceived{Remote: remote, Token: t.token, ID: msg.MessageID()})
		} else {
			e.sink.OnResetReceived(events.ResetReceived{Remote: remote, Token: t.token, ID: msg.MessageID()})
		}
		return Drop
	}

	return Continue
}

func (e *Engine) scheduleRetransmit(t *transfer) {
	delay := t.nextDelay(e.ackTimeout, e.ackRandomFactor, e.rngOrDefault())
	t.mu.Lock()
	t.cancel = e.sched.Schedule(delay, func() { e.fireRetransmit(t) })
	t.mu.Unlock()
}

func (e *Engine) rngOrDefault() func() float64 {
	if e.rng != nil {
		return e.rng
	}
	return rand.Float64
}

// fireRetransmit is the retransmit task (spec §4.3/§9): re-checks
// confirmed under the transfer's lock before doing anything, since
// cancellation is a performance hint rather than a correctness guarantee.
func (e *Engine) fireRetransmit(t *transfer) {
	t.mu.Lock()
	if t.confirmed {
		t.mu.Unlock()
		return
	}
	t.st = stateWriting
	msg := t.payload
	remote := t.remote
	t.mu.Unlock()

	if msg.IsUpdateNotification() {
		seq, _ := msg.Observe()
		msg.SetObserve(seq + 1)
	}

	err := e.writer.WriteMessage(remote, msg)

	t.mu.Lock()
	if t.confirmed {
		t.mu.Unlock()
		return
	}
	if err != nil {
		t.st = stateMiscError
		t.mu.Unlock()
		e.tbl.remove(remote, t.id)
		e.logger.Error("trace=%s retransmit write failed token=%s remote=%s: %v", t.traceID, t.token, remote, err)
		e.sink.OnMiscError(events.MiscError{Remote: remote, Token: t.token, Desc: "retransmit write failed", Err: err})
		return
	}
	t.retransmitCount++
	count := t.retransmitCount
	t.st = stateScheduled
	t.mu.Unlock()

	e.metrics.recordRetransmit()
	e.logger.Debug("trace=%s retransmit %d token=%s remote=%s", t.traceID, count, t.token, remote)
	e.sink.OnMessageRetransmitted(events.MessageRetransmitted{Remote: remote, Token: t.token, ID: t.id, Count: count})

	if count >= e.maxRetransmit {
		e.scheduleFinalWait(t)
		return
	}
	e.scheduleRetransmit(t)
}

// scheduleFinalWait arranges the 5th (post-MAX_RETRANSMIT) delay; its
// expiry with no confirmation is the TransmissionTimeout trigger (spec §8
// I5/I6).
func (e *Engine) scheduleFinalWait(t *transfer) {
	delay := t.finalWaitDelay(e.ackTimeout, e.ackRandomFactor, e.rngOrDefault())
	t.mu.Lock()
	t.cancel = e.sched.Schedule(delay, func() { e.fireTimeoutCheck(t) })
	t.mu.Unlock()
}

func (e *Engine) fireTimeoutCheck(t *transfer) {
	if t.isConfirmed() {
		return
	}
	t.mu.Lock()
	t.st = stateTimedOut
	t.mu.Unlock()

	e.tbl.remove(t.remote, t.id)
	e.metrics.recordTimeout()
	e.logger.Warn("trace=%s transmission timeout token=%s remote=%s", t.traceID, t.token, t.remote)
	e.sink.OnTransmissionTimeout(events.TransmissionTimeout{Remote: t.remote, Token: t.token, ID: t.id})
}

// HandleSocketChange implements the RemoteSocketChanged trigger (spec
// §14.2): the caller (the transport layer, external to this core)
// detected that a live exchange's peer address changed. The transfer is
// re-keyed from old to new in both indices under one hold of the table's
// write-lock.
func (e *Engine) HandleSocketChange(old, updated coap.Remote, token coap.Token) {
	oldTokKey := byTokenKey{old, token.Key()}
	e.tbl.mu.Lock()
	id, ok := e.tbl.byToken[oldTokKey]
	t := e.tbl.byID[byIDKey{old, id}]
	if !ok || t == nil {
		e.tbl.mu.Unlock()
		e.logger.Warn("socket-change re-key miss for token=%s old=%s", token, old)
		return
	}
	delete(e.tbl.byID, byIDKey{old, id})
	delete(e.tbl.byToken, oldTokKey)
	t.mu.Lock()
	t.remote = updated
	t.mu.Unlock()
	e.tbl.byID[byIDKey{updated, id}] = t
	e.tbl.byToken[byTokenKey{updated, token.Key()}] = id
	e.tbl.mu.Unlock()
	e.logger.Debug("trace=%s socket change token=%s old=%s new=%s", t.traceID, token, old, updated)
	e.sink.OnRemoteSocketChanged(events.RemoteSocketChanged{Old: old, New: updated, Token: token})
}

// PendingCount reports the number of live table entries, for tests and
// diagnostics.
func (e *Engine) PendingCount() int {
	return e.tbl.len()
}
