// Package client implements the Client Callback Manager (C4): the
// (remote, token) -> Callback table, consumption of every event the
// reliability engine (C3) emits, and inbound response dispatch (spec
// §4.4). Grounded on the teacher's client/client_impl.go request/response
// correlation and client/notifications.go's observation bookkeeping.
package client

import "github.com/oakmoss/coapcore/coap"

// Callback is the capability set delivered on scheduler threads for one
// outstanding exchange (spec §6). A flat interface, not an inheritance
// chain (spec §9 design note).
type Callback interface {
	// OnMessageIDAssigned fires once, as soon as C3 allocates the message
	// id for this exchange's first outbound copy. Non-terminal.
	OnMessageIDAssigned(id coap.MessageID)

	// OnRetransmission fires once per retransmit copy written to the wire.
	OnRetransmission()

	// OnEmptyAck fires when an empty ACK matches a live CON, meaning a
	// separate (non-piggybacked) response will follow later. Non-terminal.
	OnEmptyAck()

	// OnResponse delivers an inbound response. For a non-observation
	// exchange this is always the terminal event. For an observation, it
	// may be called repeatedly — see ContinueObservation.
	OnResponse(resp coap.Message)

	// OnPartialContent delivers a 2.31 (Continue) block-wise interim
	// response body fragment. Distinct from OnReset (spec §14.1).
	OnPartialContent(payload []byte)

	// OnReset fires when the server RSTs a live CON. Terminal.
	OnReset()

	// OnTimeout fires when a CON exhausts MAX_RETRANSMIT retransmissions
	// without an ACK or RST. Terminal.
	OnTimeout()

	// OnMiscError fires for every failure kind in §7 not covered by a more
	// specific method above.
	OnMiscError(desc string, err error)

	// OnRemoteSocketChanged notifies the callback that its exchange's peer
	// address was re-keyed (e.g. a NAT rebind). Non-terminal.
	OnRemoteSocketChanged(newRemote, oldRemote coap.Remote)

	// ContinueObservation is consulted on every non-terminal observe
	// notification; returning false requests that the observation be
	// cancelled and the callback torn down.
	ContinueObservation() bool
}
