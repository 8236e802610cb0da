// Package trace mints correlation identifiers for log lines that span an
// exchange's whole retransmit lifecycle (spec §11 domain wiring). A TraceID
// plays no role in token or message-ID semantics; it exists purely so a
// DefaultLogger line from handle_outbound can be matched up with the
// MessageRetransmitted / terminal-event lines that follow it, minutes
// later, for the same exchange.
package trace

import "github.com/google/uuid"

// ID is a log-correlation identifier, minted once per outbound transfer.
type ID = uuid.UUID

// New mints a fresh TraceID.
func New() ID {
	return uuid.New()
}
