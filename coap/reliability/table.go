package reliability

import (
	"sync"

	"github.com/oakmoss/coapcore/coap"
)

type byIDKey struct {
	remote coap.Remote
	id     coap.MessageID
}

type byTokenKey struct {
	remote coap.Remote
	token  string
}

// table is the double-indexed reliability table (spec §3): by_id owns the
// transfer, by_token stores only the message id, a lookup key back into
// by_id, avoiding aliasing (spec §9 design note).
type table struct {
	mu      sync.RWMutex
	byID    map[byIDKey]*transfer
	byToken map[byTokenKey]coap.MessageID
}

func newTable() *table {
	return &table{
		byID:    make(map[byIDKey]*transfer),
		byToken: make(map[byTokenKey]coap.MessageID),
	}
}

// insert adds t to both indices. Called once per transfer, under the
// engine's own serialization (handle_outbound runs the allocation and the
// insert back-to-back), so no collision check is needed here — C1/C2
// guarantee uniqueness.
func (tb *table) insert(t *transfer) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.byID[byIDKey{t.remote, t.id}] = t
	tb.byToken[byTokenKey{t.remote, t.token.Key()}] = t.id
}

// lookupByID finds the transfer for (remote, id) under the read-lock only
// (spec §5), since lookups vastly outnumber mutations.
func (tb *table) lookupByID(remote coap.Remote, id coap.MessageID) (*transfer, bool) {
	tb.mu.RLock()
	t, ok := tb.byID[byIDKey{remote, id}]
	tb.mu.RUnlock()
	return t, ok
}

// lookupByToken finds the live transfer, if any, registered under
// (remote, token) — used by notification folding.
func (tb *table) lookupByToken(remote coap.Remote, token coap.Token) (*transfer, bool) {
	tb.mu.RLock()
	id, ok := tb.byToken[byTokenKey{remote, token.Key()}]
	if !ok {
		tb.mu.RUnlock()
		return nil, false
	}
	t, ok := tb.byID[byIDKey{remote, id}]
	tb.mu.RUnlock()
	return t, ok
}

// remove deletes the transfer for (remote, id) from both indices exactly
// once, re-verifying existence under the write-lock (double-checked
// pattern) since a terminal event (ACK, RST, timeout, misc-error) races
// with other terminal events for the same transfer.
func (tb *table) remove(remote coap.Remote, id coap.MessageID) (*transfer, bool) {
	tb.mu.RLock()
	_, present := tb.byID[byIDKey{remote, id}]
	tb.mu.RUnlock()
	if !present {
		return nil, false
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()
	t, ok := tb.byID[byIDKey{remote, id}]
	if !ok {
		return nil, false
	}
	delete(tb.byID, byIDKey{remote, id})
	delete(tb.byToken, byTokenKey{remote, t.token.Key()})
	return t, true
}

// removeByToken removes whatever transfer is currently registered under
// (remote, token), if any.
func (tb *table) removeByToken(remote coap.Remote, token coap.Token) (*transfer, bool) {
	tb.mu.RLock()
	id, present := tb.byToken[byTokenKey{remote, token.Key()}]
	tb.mu.RUnlock()
	if !present {
		return nil, false
	}
	return tb.remove(remote, id)
}

// len reports the number of live by_id entries, for metrics/tests.
func (tb *table) len() int {
	tb.mu.RLock()
	defer tb.mu.RUnlock()
	return len(tb.byID)
}
