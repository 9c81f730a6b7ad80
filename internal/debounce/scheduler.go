// Package debounce provides a per-channel trailing-edge debounce scheduler:
// repeated Schedule calls on the same channel within the delay window collapse
// into one invocation of the most recent function.
package debounce

import (
	"sync"
	"time"
)

type pending struct {
	timer *time.Timer
	fn    func()
}

// Scheduler owns one timer per logical channel. Only the most recently
// scheduled function on a channel ever fires; earlier pending invocations are
// cancelled. Cancellation never aborts a function that has already started.
type Scheduler struct {
	mu      sync.Mutex
	entries map[string]*pending
	stopped bool
}

// NewScheduler constructs an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{entries: make(map[string]*pending)}
}

// Schedule arranges fn to run delay after this call, replacing any pending
// invocation previously scheduled on the same channel.
func (s *Scheduler) Schedule(channel string, delay time.Duration, fn func()) {
	if fn == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	if entry, ok := s.entries[channel]; ok {
		entry.timer.Stop()
	}

	entry := &pending{fn: fn}
	entry.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		current, ok := s.entries[channel]
		if !ok || current != entry {
			// A newer call rescheduled or cancelled this channel.
			s.mu.Unlock()
			return
		}
		delete(s.entries, channel)
		s.mu.Unlock()
		entry.fn()
	})
	s.entries[channel] = entry
}

// Cancel drops the pending invocation for the channel, if any.
func (s *Scheduler) Cancel(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[channel]; ok {
		entry.timer.Stop()
		delete(s.entries, channel)
	}
}

// Flush cancels the pending timer for the channel and runs its function
// synchronously. It reports whether a pending invocation existed.
func (s *Scheduler) Flush(channel string) bool {
	s.mu.Lock()
	entry, ok := s.entries[channel]
	if ok {
		entry.timer.Stop()
		delete(s.entries, channel)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	entry.fn()
	return true
}

// Pending reports whether the channel has a scheduled, not-yet-fired call.
func (s *Scheduler) Pending(channel string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[channel]
	return ok
}

// Stop cancels every pending invocation and rejects further scheduling. Used
// on session teardown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for channel, entry := range s.entries {
		entry.timer.Stop()
		delete(s.entries, channel)
	}
	s.stopped = true
}
