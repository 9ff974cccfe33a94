package logging

import "sync"

// RingBroadcaster retains the last N log lines written through it, for
// surfacing recent logs over the event broadcaster without re-reading the
// log file.
type RingBroadcaster struct {
	mu    sync.Mutex
	lines []string
	size  int
	next  int
	full  bool
}

// NewRingBroadcaster creates a ring buffer holding up to size log lines.
// size <= 0 defaults to 1000.
func NewRingBroadcaster(size int) *RingBroadcaster {
	if size <= 0 {
		size = 1000
	}
	return &RingBroadcaster{lines: make([]string, size), size: size}
}

// Write implements io.Writer, appending each write as one buffered line.
func (r *RingBroadcaster) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[r.next] = string(p)
	r.next = (r.next + 1) % r.size
	if r.next == 0 {
		r.full = true
	}
	return len(p), nil
}

// Recent returns buffered lines in chronological order.
func (r *RingBroadcaster) Recent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		out := make([]string, r.next)
		copy(out, r.lines[:r.next])
		return out
	}
	out := make([]string, r.size)
	copy(out, r.lines[r.next:])
	copy(out[r.size-r.next:], r.lines[:r.next])
	return out
}
