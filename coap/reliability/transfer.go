package reliability

import (
	"sync"
	"time"

	"github.com/oakmoss/coapcore/coap"
	"github.com/oakmoss/coapcore/coap/scheduler"
	"github.com/oakmoss/coapcore/coap/trace"
)

// state is the ReliableTransfer state machine (spec §4.3):
//
//	create -> scheduled -> writing -> scheduled (count+1)
//	                    \-> confirmed | miscError | timedOut
type state int

const (
	stateScheduled state = iota
	stateWriting
	stateConfirmed
	stateMiscError
	stateTimedOut
)

// transfer is one entry in the reliability table: either a bare record for
// a NON request (reliable == false) or a full ReliableTransfer tracking
// retransmission state for a CON.
type transfer struct {
	mu sync.Mutex

	remote  coap.Remote
	id      coap.MessageID
	token   coap.Token
	traceID trace.ID

	reliable bool // false => NonTransfer, true => ReliableTransfer

	payload         coap.Message
	retransmitCount int
	confirmed       bool
	st              state
	cancel          scheduler.Cancel
	sentAt          time.Time // first-send time, for RTT on a ReliableTransfer
}

func newNonTransfer(remote coap.Remote, id coap.MessageID, token coap.Token, msg coap.Message) *transfer {
	return &transfer{
		remote:  remote,
		id:      id,
		token:   token,
		traceID: trace.New(),
		payload: msg,
	}
}

func newReliableTransfer(remote coap.Remote, id coap.MessageID, token coap.Token, msg coap.Message, sentAt time.Time) *transfer {
	return &transfer{
		remote:   remote,
		id:       id,
		token:    token,
		traceID:  trace.New(),
		reliable: true,
		payload:  msg,
		st:       stateScheduled,
		sentAt:   sentAt,
	}
}

// fold replaces the transfer's payload in place, preserving message_id and
// retransmit schedule (spec §4.3 notification folding). Only meaningful on
// a live ReliableTransfer.
func (t *transfer) fold(msg coap.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.payload = msg
}

// markConfirmed flips confirmed under lock and best-effort cancels the
// scheduled retransmit task (spec §5 cancellation discipline: cancel is a
// performance hint, not a correctness requirement).
func (t *transfer) markConfirmed() {
	t.mu.Lock()
	t.confirmed = true
	t.st = stateConfirmed
	c := t.cancel
	t.mu.Unlock()
	if c != nil {
		c()
	}
}

func (t *transfer) isConfirmed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.confirmed
}

// nextDelay computes the delay preceding the (retransmitCount+1)-th
// retransmission using the exponential back-off schedule in backoff.go.
func (t *transfer) nextDelay(base time.Duration, randomFactor float64, rng func() float64) time.Duration {
	return backoffDelay(t.retransmitCount, base, randomFactor, rng)
}

// finalWaitDelay computes the post-MAX_RETRANSMIT timeout wait, which
// repeats the last retransmit's delay rather than doubling it again (spec
// §8 scenario 3: ..., 16s, 16s, not ..., 16s, 32s).
func (t *transfer) finalWaitDelay(base time.Duration, randomFactor float64, rng func() float64) time.Duration {
	count := t.retransmitCount - 1
	if count < 0 {
		count = 0
	}
	return backoffDelay(count, base, randomFactor, rng)
}
