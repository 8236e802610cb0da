// Package events defines the typed protocol events the Outbound
// Reliability Engine (C3) emits and the Client Callback Manager (C4)
// consumes (spec §6, §4.4). Every event carries the (remote, token) pair
// that identifies which pending exchange it belongs to, plus whatever
// message ID and payload the event itself needs.
package events

import (
	"github.com/oakmoss/coapcore/coap"
)

// MessageIDAssigned fires once, synchronously with handle_outbound,
// reporting the ID C1 handed the transfer. Non-terminal.
type MessageIDAssigned struct {
	Remote coap.Remote
	Token  coap.Token
	ID     coap.MessageID
}

// MessageRetransmitted fires each time the retransmit task successfully
// rewrites a CON to the wire. Non-terminal.
type MessageRetransmitted struct {
	Remote coap.Remote
	Token  coap.Token
	ID     coap.MessageID
	Count  int // retransmit_count after this attempt, in [1, MAX_RETRANSMIT]
}

// EmptyAckReceived fires when an ACK with CodeEmpty matches a live CON,
// signalling a separate (non-piggybacked) response will follow later on
// the same token. Non-terminal: the callback stays registered.
type EmptyAckReceived struct {
	Remote coap.Remote
	Token  coap.Token
	ID     coap.MessageID
}

// ResetReceived fires when an RST matches a live CON. Terminal.
type ResetReceived struct {
	Remote coap.Remote
	Token  coap.Token
	ID     coap.MessageID
}

// TransmissionTimeout fires when a CON exhausts MAX_RETRANSMIT
// retransmissions without an ACK or RST. Terminal.
type TransmissionTimeout struct {
	Remote coap.Remote
	Token  coap.Token
	ID     coap.MessageID
}

// MiscError fires for every failure kind in spec §7 that is not one of
// the more specific events above (saturated ID space, exhausted token
// pool, transport write failure, ...). Terminal for every trigger except
// DuplicatePing and NoObservation (spec §7 table).
type MiscError struct {
	Remote coap.Remote
	Token  coap.Token
	Desc   string
	Err    error
}

// PartialContentReceived fires on a 2.31 (Continue) block-wise interim
// response. Distinct from ResetReceived on purpose: routing it through
// on_reset was a copy-paste bug in the reference implementation this core
// is modeled on (spec §9/§14); here it gets its own callback hook.
type PartialContentReceived struct {
	Remote  coap.Remote
	Token   coap.Token
	ID      coap.MessageID
	Payload []byte
}

// RemoteSocketChanged fires when the transport layer detects that an
// in-flight exchange's peer address changed (e.g. a NAT rebind). The
// callback manager re-keys the callback table from Old to New atomically.
type RemoteSocketChanged struct {
	Old   coap.Remote
	New   coap.Remote
	Token coap.Token
}

// LazyObservationTermination fires when a callback's ContinueObservation
// returns false on an inbound notification. It is a request to the
// (external, out-of-core) observation-termination subsystem to send the
// actual cancellation and, once that completes, tear the callback down.
type LazyObservationTermination struct {
	Remote coap.Remote
	Token  coap.Token
}

// Sink is the capability set the Client Callback Manager (C4) implements
// to consume every event the Outbound Reliability Engine (C3) emits (spec
// §4.4's event-handler table). The reliability engine calls these
// directly rather than through a generic publish/subscribe bus: there is
// exactly one subscriber by design (§4, §9 "no global state").
type Sink interface {
	OnMessageIDAssigned(MessageIDAssigned)
	OnMessageRetransmitted(MessageRetransmitted)
	OnEmptyAckReceived(EmptyAckReceived)
	OnResetReceived(ResetReceived)
	OnTransmissionTimeout(TransmissionTimeout)
	OnMiscError(MiscError)
	OnPartialContentReceived(PartialContentReceived)
	OnRemoteSocketChanged(RemoteSocketChanged)
	OnLazyObservationTermination(LazyObservationTermination)
}
