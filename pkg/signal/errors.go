package signal

import (
	"fmt"
	"time"
)

// Error is a constant string error.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrFalseStart means a start-bit candidate did not survive the
	// half-bit confirmation sample; the glitch is discarded and the
	// decoder returns to idle.
	ErrFalseStart = Error("false start bit")
	// ErrNoLine means no terminator arrived before the read window
	// closed; any partial line is discarded.
	ErrNoLine = Error("no terminated line within timeout")
)

// Timeout phases identify which edge or bit the wait gave up on.
const (
	PhaseRisingEdge  = "rising_edge"
	PhaseFallingEdge = "falling_edge"
	PhaseStartBit    = "start_bit"
)

// TimeoutError reports that a level transition did not arrive within
// the allowed window. Recovered locally by callers: the reading is
// skipped, never escalated.
type TimeoutError struct {
	Phase string
	Wait  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout waiting for %s after %v", e.Phase, e.Wait)
}

// InvalidPulseError reports a pulse shorter than the signal-integrity
// floor. Sub-floor pulses cannot correspond to a physical echo and
// indicate electrical glitches, so they are rejected rather than
// reported as near-zero range.
type InvalidPulseError struct {
	Width time.Duration
	Floor time.Duration
}

func (e *InvalidPulseError) Error() string {
	return fmt.Sprintf("pulse width %v below %v floor", e.Width, e.Floor)
}
