package client

import (
	"sync"

	"github.com/oakmoss/coapcore/coap"
)

type callbackKey struct {
	remote coap.Remote
	token  string
}

// callbackTable is the (remote, token) -> Callback map (spec §3), enforcing
// invariant C1 (at most one callback per key) via insert's collision
// return value and the double-checked locking pattern spec §5 mandates.
type callbackTable struct {
	mu    sync.RWMutex
	byKey map[callbackKey]Callback
}

func newCallbackTable() *callbackTable {
	return &callbackTable{byKey: make(map[callbackKey]Callback)}
}

// insert registers cb under (remote, token). It returns false if a
// callback is already registered there (spec §14.3: a distinguishable
// status rather than a silent log-and-skip), using the double-checked
// pattern since lookups vastly outnumber writes.
func (t *callbackTable) insert(remote coap.Remote, token coap.Token, cb Callback) bool {
	key := callbackKey{remote, token.Key()}

	t.mu.RLock()
	_, exists := t.byKey[key]
	t.mu.RUnlock()
	if exists {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.byKey[key]; exists {
		return false
	}
	t.byKey[key] = cb
	return true
}

func (t *callbackTable) lookup(remote coap.Remote, token coap.Token) (Callback, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cb, ok := t.byKey[callbackKey{remote, token.Key()}]
	return cb, ok
}

// remove deletes the callback at (remote, token), returning it if present.
func (t *callbackTable) remove(remote coap.Remote, token coap.Token) (Callback, bool) {
	key := callbackKey{remote, token.Key()}

	t.mu.RLock()
	_, exists := t.byKey[key]
	t.mu.RUnlock()
	if !exists {
		return nil, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	cb, ok := t.byKey[key]
	if !ok {
		return nil, false
	}
	delete(t.byKey, key)
	return cb, true
}

// rekey atomically moves the callback from (old, token) to (new, token)
// under a single write-lock critical section (spec §14.2), satisfying
// invariant C1 throughout — no window exists where both or neither key is
// populated from an external reader's perspective.
func (t *callbackTable) rekey(old, updated coap.Remote, token coap.Token) (Callback, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	oldKey := callbackKey{old, token.Key()}
	cb, ok := t.byKey[oldKey]
	if !ok {
		return nil, false
	}
	delete(t.byKey, oldKey)
	t.byKey[callbackKey{updated, token.Key()}] = cb
	return cb, true
}

func (t *callbackTable) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byKey)
}
