// Package sensor models one ultrasonic sensor attached to the GPIO
// header: its identity, trigger protocol, decode path, and the bounded
// history of measurements it has produced.
package sensor

import (
	"sync"
	"time"
)

// DefaultHistoryCapacity bounds per-sensor measurement history.
const DefaultHistoryCapacity = 1000

// Measurement is one decoded distance reading. Immutable once
// produced.
type Measurement struct {
	SensorName string
	// Sequence is the 1-based reading number within its trigger
	// cycle. Strictly increasing inside a cycle; gaps mark skipped
	// readings.
	Sequence int
	// Distance in the caller's configured range unit.
	Distance float64
	// RawTiming is the pulse width in microseconds (pulse-width mode)
	// or the decoded integer token (serial modes).
	RawTiming float64
	// Wall is the wall-clock capture time; Mono is the monotonic
	// offset from the channel's epoch.
	Wall time.Time
	Mono time.Duration
}

// History is a fixed-capacity FIFO ring buffer of measurements.
// Mutated only by the capture path (single writer); snapshots copy
// under the lock so readers never observe a partially appended entry.
type History struct {
	mu   sync.Mutex
	buf  []Measurement
	head int // index of the oldest entry once full
	n    int
}

// NewHistory returns a history holding at most capacity measurements;
// capacity <= 0 selects DefaultHistoryCapacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{buf: make([]Measurement, capacity)}
}

// Append adds a measurement, evicting the oldest entry when full.
func (h *History) Append(m Measurement) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.n < len(h.buf) {
		h.buf[(h.head+h.n)%len(h.buf)] = m
		h.n++
		return
	}
	h.buf[h.head] = m
	h.head = (h.head + 1) % len(h.buf)
}

// Snapshot returns a copy of the history, oldest first. Insertion
// order equals temporal order.
func (h *History) Snapshot() []Measurement {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Measurement, h.n)
	for i := 0; i < h.n; i++ {
		out[i] = h.buf[(h.head+i)%len(h.buf)]
	}
	return out
}

// Len returns the number of measurements currently held.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.n
}

// Capacity returns the fixed capacity.
func (h *History) Capacity() int {
	return len(h.buf)
}
