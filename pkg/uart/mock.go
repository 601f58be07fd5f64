package uart

import (
	"sync"
	"time"

	"github.com/mbuhidar/ultrasonic-detection-model/pkg/signal"
)

// Mock is an in-memory LineSource for testing and development without
// sensors attached. It serves queued lines, simulating the ~10 Hz
// ranging rate with an optional per-read delay, and serves
// signal.ErrNoLine once drained unless Loop is set.
type Mock struct {
	// Delay is imposed before every read, simulating ranging time.
	Delay time.Duration
	// Loop restarts from the first line after the last.
	Loop bool

	mu    sync.Mutex
	lines []string
	next  int
}

// NewMock builds a mock source serving the given lines in order.
func NewMock(lines ...string) *Mock {
	return &Mock{lines: lines}
}

// ReadLine serves the next queued line.
func (m *Mock) ReadLine(timeout time.Duration) (string, error) {
	if m.Delay > 0 {
		if m.Delay > timeout {
			time.Sleep(timeout)
			return "", signal.ErrNoLine
		}
		time.Sleep(m.Delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.next >= len(m.lines) {
		if !m.Loop || len(m.lines) == 0 {
			return "", signal.ErrNoLine
		}
		m.next = 0
	}
	line := m.lines[m.next]
	m.next++
	return line, nil
}

// Remaining returns how many queued lines are unread in this pass.
func (m *Mock) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lines) - m.next
}
