// Package reliability implements the Outbound Reliability Engine (C3):
// the double-indexed table of in-flight CON/NON transfers, RFC 7252 §4.8
// exponential back-off retransmission, and the event emissions that drive
// the Client Callback Manager (C4). Grounded on the teacher's
// transport/udp/reliability.go (PendingMessage tracking, retransmit/timeout
// goroutines) and client/backoff.go (the back-off formula itself).
package reliability

import (
	"math/rand"
	"time"
)

// backoffDelay computes the delay preceding the (count+1)-th retransmission
// of a CON (spec §8 I6):
//
//	d_{count+1} = 2^count * base * j,  j drawn uniformly from [1, randomFactor]
//
// j is drawn afresh on every call, so each delay lies in
// [2^count*base, 2^count*base*randomFactor] but successive delays are not
// exact doubles of one another unless the jitter source returns a constant.
// count is the number of retransmissions already made (0 before the first
// retransmit). rng, when non-nil, supplies the jitter draw in [0,1) so
// tests can make the schedule deterministic; nil uses math/rand.
func backoffDelay(count int, base time.Duration, randomFactor float64, rng func() float64) time.Duration {
	draw := rng
	if draw == nil {
		draw = rand.Float64
	}
	jittered := float64(base) * (1.0 + draw()*(randomFactor-1.0))
	return time.Duration(jittered) * time.Duration(1<<uint(count))
}
