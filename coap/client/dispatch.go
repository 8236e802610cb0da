package client

import (
	"github.com/oakmoss/coapcore/coap"
	"github.com/oakmoss/coapcore/coap/events"
)

// DispatchResponse implements spec §4.4's inbound response dispatch: it is
// invoked by the caller (the pipeline wiring the reliability engine's
// HandleInbound output to this manager) whenever HandleInbound returns
// reliability.Continue for a response message.
func (m *Manager) DispatchResponse(resp coap.Message, remote coap.Remote) {
	cb, ok := m.tbl.lookup(remote, resp.Token())
	if !ok {
		m.logger.Warn("no callback for response token=%s remote=%s", resp.Token(), remote)
		return
	}

	terminal := resp.IsErrorResponse() || !resp.IsUpdateNotification()
	if terminal {
		m.tbl.remove(remote, resp.Token())
		m.tokens.Release(resp.Token())
		if resp.Token().IsPing() {
			m.clearPingLive(remote)
		}
	} else if !cb.ContinueObservation() {
		m.OnLazyObservationTermination(events.LazyObservationTermination{Remote: remote, Token: resp.Token()})
	}

	cb.OnResponse(resp)
}

// OnMessageIDAssigned implements events.Sink.
func (m *Manager) OnMessageIDAssigned(e events.MessageIDAssigned) {
	if cb, ok := m.tbl.lookup(e.Remote, e.Token); ok {
		cb.OnMessageIDAssigned(e.ID)
	}
}

// OnMessageRetransmitted implements events.Sink.
func (m *Manager) OnMessageRetransmitted(e events.MessageRetransmitted) {
	if cb, ok := m.tbl.lookup(e.Remote, e.Token); ok {
		cb.OnRetransmission()
	}
}

// OnEmptyAckReceived implements events.Sink. The callback stays registered
// since a separate response is still expected on the same token.
func (m *Manager) OnEmptyAckReceived(e events.EmptyAckReceived) {
	if cb, ok := m.tbl.lookup(e.Remote, e.Token); ok {
		cb.OnEmptyAck()
	}
}

// OnResetReceived implements events.Sink. Terminal: removes the callback
// and releases the token.
func (m *Manager) OnResetReceived(e events.ResetReceived) {
	cb, ok := m.tbl.remove(e.Remote, e.Token)
	if !ok {
		return
	}
	m.tokens.Release(e.Token)
	if e.Token.IsPing() {
		m.clearPingLive(e.Remote)
	}
	cb.OnReset()
}

// OnTransmissionTimeout implements events.Sink. Terminal.
func (m *Manager) OnTransmissionTimeout(e events.TransmissionTimeout) {
	cb, ok := m.tbl.remove(e.Remote, e.Token)
	if !ok {
		return
	}
	m.tokens.Release(e.Token)
	if e.Token.IsPing() {
		m.clearPingLive(e.Remote)
	}
	cb.OnTimeout()
}

// OnMiscError implements events.Sink. Terminal.
func (m *Manager) OnMiscError(e events.MiscError) {
	cb, ok := m.tbl.remove(e.Remote, e.Token)
	if e.Token.IsPing() {
		m.clearPingLive(e.Remote)
	}
	if !ok {
		m.logger.Warn("misc error for unregistered token=%s remote=%s: %s", e.Token, e.Remote, e.Desc)
		return
	}
	m.tokens.Release(e.Token)
	cb.OnMiscError(e.Desc, e.Err)
}

// OnPartialContentReceived implements events.Sink. Distinct from
// OnResetReceived on purpose (spec §14.1).
func (m *Manager) OnPartialContentReceived(e events.PartialContentReceived) {
	if cb, ok := m.tbl.lookup(e.Remote, e.Token); ok {
		cb.OnPartialContent(e.Payload)
	}
}

// OnRemoteSocketChanged implements events.Sink: re-keys the callback table
// (spec §14.2) and notifies the callback.
func (m *Manager) OnRemoteSocketChanged(e events.RemoteSocketChanged) {
	cb, ok := m.tbl.rekey(e.Old, e.New, e.Token)
	if !ok {
		m.logger.Warn("socket-change re-key miss for token=%s old=%s", e.Token, e.Old)
		return
	}
	cb.OnRemoteSocketChanged(e.New, e.Old)
}

// OnLazyObservationTermination implements events.Sink. The actual
// cancellation send and callback teardown belong to the observation-
// termination subsystem, external to this core (spec §4.4); this hook
// only surfaces the request.
func (m *Manager) OnLazyObservationTermination(e events.LazyObservationTermination) {
	m.logger.Debug("observation lazily terminated token=%s remote=%s", e.Token, e.Remote)
}
