package client

import (
	"sync"

	"github.com/oakmoss/coapcore/coap"
	"github.com/oakmoss/coapcore/coap/coaperr"
	"github.com/oakmoss/coapcore/coap/events"
	"github.com/oakmoss/coapcore/coap/reliability"
	"github.com/oakmoss/coapcore/coap/tokenpool"
	"github.com/oakmoss/coapcore/logx"
)

// Manager is the Client Callback Manager (C4): it owns the callback
// table, drives requests through the reliability engine (C3), and
// implements events.Sink to consume every event C3 emits (spec §4.4).
type Manager struct {
	tbl    *callbackTable
	tokens *tokenpool.Pool
	engine *reliability.Engine
	writer coap.Writer
	logger logx.Logger

	pingMu  sync.Mutex
	pinging map[coap.Remote]struct{}
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger; nil installs logx.NewDefaultLogger.
func WithLogger(l logx.Logger) Option { return func(m *Manager) { m.logger = l } }

// New creates a Manager with no engine attached yet. writer is the same
// wire-facing seam handed to the reliability engine; tokens is the Token
// Factory (C2). Because the Outbound Reliability Engine (C3) takes this
// Manager as its events.Sink at its own construction time, the wiring
// order is: New the Manager, reliability.New the engine with it as the
// sink, then AttachEngine to close the loop.
func New(writer coap.Writer, tokens *tokenpool.Pool, opts ...Option) *Manager {
	m := &Manager{
		tbl:     newCallbackTable(),
		tokens:  tokens,
		writer:  writer,
		pinging: make(map[coap.Remote]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logx.OrDefault(m.logger)
	return m
}

// AttachEngine completes the wiring between Manager and the reliability
// Engine built with this Manager as its sink. SendRequest panics if called
// before AttachEngine — that is a wiring bug, not a runtime condition.
func (m *Manager) AttachEngine(engine *reliability.Engine) {
	m.engine = engine
}

func isObservationCancel(msg coap.Message) bool {
	seq, ok := msg.Observe()
	return msg.IsRequest() && ok && seq == 1
}

func (m *Manager) markPingLive(remote coap.Remote) bool {
	m.pingMu.Lock()
	defer m.pingMu.Unlock()
	if _, live := m.pinging[remote]; live {
		return false
	}
	m.pinging[remote] = struct{}{}
	return true
}

func (m *Manager) clearPingLive(remote coap.Remote) {
	m.pingMu.Lock()
	defer m.pingMu.Unlock()
	delete(m.pinging, remote)
}

// SendRequest implements spec §4.4's send_request operation.
func (m *Manager) SendRequest(msg coap.Message, remote coap.Remote, cb Callback) error {
	var token coap.Token
	var releaseOnFailure bool

	switch {
	case msg.IsPing():
		if !m.markPingLive(remote) {
			err := coaperr.DuplicatePing(remote.String())
			cb.OnMiscError(err.Message, err)
			return err
		}
		token = coap.Token{}

	case isObservationCancel(msg):
		if _, ok := m.tbl.lookup(remote, msg.Token()); !ok {
			err := coaperr.NoObservation()
			cb.OnMiscError(err.Message, err)
			return err
		}
		token = msg.Token()

	default:
		tok, ok := m.tokens.Acquire()
		if !ok {
			err := coaperr.NoToken()
			cb.OnMiscError(err.Message, err)
			return err
		}
		token = tok
		releaseOnFailure = true
	}

	msg.SetToken(token)

	if !m.tbl.insert(remote, token, cb) {
		if releaseOnFailure {
			m.tokens.Release(token)
		}
		if msg.IsPing() {
			m.clearPingLive(remote)
		}
		err := coaperr.TokenCollision(remote.String(), token.String())
		cb.OnMiscError(err.Message, err)
		return err
	}

	decision := m.engine.HandleOutbound(msg, remote)
	if decision == reliability.Drop {
		// The engine already emitted a MiscError (or folded a notification,
		// which cannot happen for a fresh request); Manager.OnMiscError
		// (dispatch.go) will have cleaned up the callback and token via the
		// event path.
		return nil
	}

	if err := m.writer.WriteMessage(remote, msg); err != nil {
		m.tbl.remove(remote, token)
		if releaseOnFailure {
			m.tokens.Release(token)
		}
		if msg.IsPing() {
			m.clearPingLive(remote)
		}
		wrapped := coaperr.WriteFailure(err)
		cb.OnMiscError(wrapped.Message, wrapped)
		return wrapped
	}

	return nil
}

// SendPing is the convenience constructor for a zero-payload CON ping
// (spec §12, grounded on the teacher's NewXxxClient convenience
// constructors).
func (m *Manager) SendPing(remote coap.Remote, cb Callback) error {
	ping := &coap.SimpleMessage{ID: coap.UndefinedID, Typ: coap.CON, Cod: coap.CodeEmpty}
	return m.SendRequest(ping, remote, cb)
}

var _ events.Sink = (*Manager)(nil)
