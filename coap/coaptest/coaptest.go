// Package coaptest provides the fake Writer and fake Scheduler shared by
// both the stdlib-style and testify-style test suites across the module
// (spec §10.4): a Writer that records every write and can be told to fail,
// and a Scheduler with a manually-advanced virtual clock so retransmission
// timing tests never sleep for real.
package coaptest

import (
	"sync"
	"time"

	"github.com/oakmoss/coapcore/coap"
	"github.com/oakmoss/coapcore/coap/scheduler"
)

// Write is one recorded call to FakeWriter.WriteMessage.
type Write struct {
	Remote coap.Remote
	Msg    coap.Message
}

// FakeWriter records every WriteMessage call and can be configured to
// fail the next N calls, simulating transport rejection.
type FakeWriter struct {
	mu       sync.Mutex
	writes   []Write
	failNext int
	failErr  error
}

// NewFakeWriter creates an always-succeeding FakeWriter.
func NewFakeWriter() *FakeWriter {
	return &FakeWriter{}
}

// WriteMessage implements coap.Writer.
func (w *FakeWriter) WriteMessage(remote coap.Remote, msg coap.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failNext > 0 {
		w.failNext--
		return w.failErr
	}
	w.writes = append(w.writes, Write{Remote: remote, Msg: msg})
	return nil
}

// FailNext arranges for the next n calls to WriteMessage to return err.
func (w *FakeWriter) FailNext(n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failNext = n
	w.failErr = err
}

// Writes returns a snapshot of every successful write so far.
func (w *FakeWriter) Writes() []Write {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Write, len(w.writes))
	copy(out, w.writes)
	return out
}

// Count returns the number of successful writes so far.
func (w *FakeWriter) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.writes)
}

// scheduledTask is one pending delayed task on the virtual clock.
type scheduledTask struct {
	at  time.Time
	fn  func()
	ran bool
}

// FakeScheduler is a deterministic Scheduler: Execute runs fn inline
// (synchronously, on the calling goroutine) and Schedule records fn
// against a virtual clock that only moves when the test calls Advance.
type FakeScheduler struct {
	mu    sync.Mutex
	now   time.Time
	tasks []*scheduledTask
}

// NewFakeScheduler creates a FakeScheduler with its virtual clock set to
// an arbitrary fixed epoch.
func NewFakeScheduler() *FakeScheduler {
	return &FakeScheduler{now: time.Unix(0, 0)}
}

// Execute runs fn synchronously. Production code must not depend on
// ordering relative to other Execute/Schedule calls beyond what the
// engine's own locking already guarantees.
func (s *FakeScheduler) Execute(fn func()) { fn() }

// Schedule records fn to fire at now+d; it only actually runs once a test
// calls Advance past that point.
func (s *FakeScheduler) Schedule(d time.Duration, fn func()) scheduler.Cancel {
	s.mu.Lock()
	t := &scheduledTask{at: s.now.Add(d), fn: fn}
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		t.ran = true // best-effort cancel: mark consumed so Advance skips it
		s.mu.Unlock()
	}
}

// Advance moves the virtual clock forward by d and synchronously runs
// every task whose fire time has now elapsed, in fire-time order. Tasks
// that reschedule themselves (e.g. the retransmit task re-arming itself)
// are picked up in the same Advance call as long as their new fire time
// still falls within the window just elapsed.
func (s *FakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	cutoff := s.now.Add(d)
	s.mu.Unlock()

	for {
		s.mu.Lock()
		var next *scheduledTask
		for _, t := range s.tasks {
			if !t.ran && !t.at.After(cutoff) && (next == nil || t.at.Before(next.at)) {
				next = t
			}
		}
		if next == nil {
			s.now = cutoff
			s.mu.Unlock()
			return
		}
		next.ran = true
		// Step the clock to this task's fire time so anything it schedules
		// is measured from when it fired, not from the end of the window.
		s.now = next.at
		s.mu.Unlock()
		next.fn()
	}
}

// Now returns the current virtual time.
func (s *FakeScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

var _ scheduler.Scheduler = (*FakeScheduler)(nil)
