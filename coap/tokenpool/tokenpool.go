// Package tokenpool implements the Token Factory (spec §4.2): issuing and
// reclaiming the opaque byte tokens that correlate a response with the
// request that triggered it, independent of message ID. Tokens are global
// to the client, not scoped per remote.
package tokenpool

import (
	"encoding/binary"
	"sync"

	"github.com/oakmoss/coapcore/coap"
	"github.com/oakmoss/coapcore/logx"
)

// tier tracks the live tokens of one fixed byte length.
type tier struct {
	used map[string]struct{}
}

func newTier() *tier { return &tier{used: make(map[string]struct{})} }

func (t *tier) full(length int) bool {
	if length >= 64/8 {
		// 8-byte tier has 2^64 candidates; never practically exhausted.
		return false
	}
	return uint64(len(t.used)) >= uint64(1)<<(8*uint(length))
}

// Pool allocates tokens in [1, MaxLength] bytes, growing the token length
// only once the shorter tier is exhausted, and always preferring the
// smallest byte-lexicographic value within the active tier.
type Pool struct {
	mu        sync.Mutex
	maxLength int
	tiers     []*tier
	logger    logx.Logger
}

// Option configures a Pool.
type Option func(*Pool)

// WithMaxLength overrides the default MaxTokenLength (8) ceiling.
func WithMaxLength(n int) Option {
	return func(p *Pool) { p.maxLength = n }
}

// WithLogger sets the logger; nil installs logx.NewDefaultLogger.
func WithLogger(l logx.Logger) Option {
	return func(p *Pool) { p.logger = l }
}

// New creates a Token Factory.
func New(opts ...Option) *Pool {
	p := &Pool{maxLength: coap.MaxTokenLength}
	for _, opt := range opts {
		opt(p)
	}
	p.tiers = make([]*tier, p.maxLength)
	for i := range p.tiers {
		p.tiers[i] = newTier()
	}
	p.logger = logx.OrDefault(p.logger)
	return p
}

const maxByteLen = 8 // widest tier a uint64 candidate can directly represent

// Acquire returns an unused token, or (nil, false) once no tier up to the
// configured maximum length yields a free candidate (the 8-byte tier is
// only scanned over its first 2^20 values). Always scans candidates
// from zero up within the active tier, so the returned token is the
// smallest byte-lexicographic value currently free (spec §4.2) — including
// one just freed by Release, not just values never yet handed out.
func (p *Pool) Acquire() (coap.Token, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for length := 1; length <= p.maxLength; length++ {
		t := p.tiers[length-1]
		if t.full(length) {
			continue
		}

		// Bound the scan: every tier below the widest has a concrete
		// candidate count; the 8-byte tier is scanned defensively since
		// 2^64 candidates are never practically exhausted.
		limit := uint64(1) << (8 * uint(length))
		maxAttempts := limit
		if length == maxByteLen {
			maxAttempts = 1 << 20
		}

		for candidate := uint64(0); candidate < maxAttempts; candidate++ {
			buf := make([]byte, maxByteLen)
			binary.BigEndian.PutUint64(buf, candidate)
			token := coap.Token(buf[maxByteLen-length:])
			key := token.Key()
			if _, taken := t.used[key]; !taken {
				t.used[key] = struct{}{}
				p.logger.Debug("acquired token %s", token)
				return token, true
			}
		}
	}

	p.logger.Error("token pool exhausted at max length %d", p.maxLength)
	return nil, false
}

// Release returns token to the free pool. Releasing an unknown or
// already-released token is idempotent and only logs a warning (spec §4.2).
func (p *Pool) Release(token coap.Token) {
	p.mu.Lock()
	defer p.mu.Unlock()

	length := len(token)
	if length == 0 || length > p.maxLength {
		p.logger.Warn("release of out-of-range token %s ignored", token)
		return
	}

	t := p.tiers[length-1]
	key := token.Key()
	if _, ok := t.used[key]; !ok {
		p.logger.Warn("release of unknown token %s ignored", token)
		return
	}
	delete(t.used, key)
}
