// Package idalloc implements the Message-ID Factory (spec §4.1): per-remote
// allocation of the CoAP 16-bit message ID space, with automatic retirement
// after EXCHANGE_LIFETIME so IDs are never reused too soon.
package idalloc

import (
	"sync"
	"time"

	"github.com/oakmoss/coapcore/coap"
	"github.com/oakmoss/coapcore/logx"
)

const idSpace = 1 << 16

// reservation records when a reserved ID becomes eligible for reuse.
type reservation struct {
	id       uint16
	retireAt time.Time
}

// remoteState is the per-remote allocator: a rolling cursor plus a FIFO of
// outstanding reservations. Because every reservation holds for the same
// ExchangeLifetime, retireAt is monotonically increasing along the FIFO, so
// expiry is a cheap pop-from-front sweep rather than a full scan.
type remoteState struct {
	reserved map[uint16]struct{}
	queue    []reservation
	cursor   uint16
}

func newRemoteState() *remoteState {
	return &remoteState{reserved: make(map[uint16]struct{})}
}

// Factory allocates message IDs for many remotes concurrently.
type Factory struct {
	mu               sync.Mutex
	remotes          map[coap.Remote]*remoteState
	exchangeLifetime time.Duration
	now              func() time.Time
	logger           logx.Logger
}

// Option configures a Factory.
type Option func(*Factory)

// WithExchangeLifetime overrides the default RFC 7252 §4.8.2 retirement hold-time.
func WithExchangeLifetime(d time.Duration) Option {
	return func(f *Factory) { f.exchangeLifetime = d }
}

// WithClock overrides the time source; used by tests to control retirement
// deterministically without sleeping.
func WithClock(now func() time.Time) Option {
	return func(f *Factory) { f.now = now }
}

// WithLogger sets the logger; a nil logger installs logx.NewDefaultLogger.
func WithLogger(l logx.Logger) Option {
	return func(f *Factory) { f.logger = l }
}

// New creates a Message-ID Factory.
func New(opts ...Option) *Factory {
	f := &Factory{
		remotes:          make(map[coap.Remote]*remoteState),
		exchangeLifetime: coap.ExchangeLifetime,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = logx.OrDefault(f.logger)
	return f
}

// NextID returns the smallest message ID, starting from the remote's
// rolling cursor and wrapping, that is not currently reserved. It returns
// coap.UndefinedID iff the full 65536-entry space for remote is reserved.
func (f *Factory) NextID(remote coap.Remote) coap.MessageID {
	f.mu.Lock()
	defer f.mu.Unlock()

	st, ok := f.remotes[remote]
	if !ok {
		st = newRemoteState()
		f.remotes[remote] = st
	}

	f.sweepExpired(st)

	if len(st.reserved) >= idSpace {
		f.logger.Error("message id space saturated for %s", remote)
		return coap.UndefinedID
	}

	for i := 0; i < idSpace; i++ {
		candidate := st.cursor
		st.cursor++ // wraps naturally: uint16 overflow
		if _, taken := st.reserved[candidate]; !taken {
			st.reserved[candidate] = struct{}{}
			st.queue = append(st.queue, reservation{
				id:       candidate,
				retireAt: f.now().Add(f.exchangeLifetime),
			})
			f.logger.Debug("assigned message id %d to %s", candidate, remote)
			return coap.MessageID(candidate)
		}
	}

	// Unreachable given the len(reserved) check above, but kept as a
	// defensive fallback against a miscounted reserved set.
	return coap.UndefinedID
}

// sweepExpired releases reservations whose EXCHANGE_LIFETIME has elapsed.
// Callers holding the natural retirement path never need to call Release
// explicitly (spec §4.1): a successful exchange simply lets the ID expire.
func (f *Factory) sweepExpired(st *remoteState) {
	now := f.now()
	i := 0
	for ; i < len(st.queue); i++ {
		if st.queue[i].retireAt.After(now) {
			break
		}
		delete(st.reserved, st.queue[i].id)
	}
	if i > 0 {
		st.queue = st.queue[i:]
	}
}

// Prune drops allocator state for remotes with no outstanding reservations,
// preventing unbounded growth of the remotes map for a long-lived client
// that churns through many ephemeral remotes.
func (f *Factory) Prune() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for remote, st := range f.remotes {
		f.sweepExpired(st)
		if len(st.reserved) == 0 {
			delete(f.remotes, remote)
		}
	}
}
