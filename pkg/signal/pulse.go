// Package signal decodes the two physical-layer encodings an
// ultrasonic sensor can present on a GPIO input: a pulse-width signal
// whose HIGH duration is proportional to range, and a bit-banged
// asynchronous serial stream. Both are built purely on hw.Sampler and
// busy-polling; any blocking primitive in the sampling path risks
// missing a bit window.
package signal

import (
	"time"

	"github.com/mbuhidar/ultrasonic-detection-model/pkg/hw"
)

// DefaultPulseFloor is the minimum plausible echo pulse. The MB1300
// reports 147 us per inch, so anything under 100 us is electrical
// noise, not a target.
const DefaultPulseFloor = 100 * time.Microsecond

// PulseWidthMeter measures the duration of one LOW->HIGH->LOW pulse.
type PulseWidthMeter struct {
	s     hw.Sampler
	floor time.Duration
}

// NewPulseWidthMeter returns a meter over the given sampler. A floor
// of zero selects DefaultPulseFloor.
func NewPulseWidthMeter(s hw.Sampler, floor time.Duration) *PulseWidthMeter {
	if floor <= 0 {
		floor = DefaultPulseFloor
	}
	return &PulseWidthMeter{s: s, floor: floor}
}

// Measure busy-polls for the next rising edge, then for the falling
// edge, and returns the HIGH duration. Each phase gets its own maxWait
// window; a pulse below the floor yields InvalidPulseError.
func (m *PulseWidthMeter) Measure(maxWait time.Duration) (time.Duration, error) {
	deadline := m.s.Now() + maxWait
	for m.s.Sample() == hw.Low {
		if m.s.Now() > deadline {
			return 0, &TimeoutError{Phase: PhaseRisingEdge, Wait: maxWait}
		}
	}
	start := m.s.Now()

	deadline = start + maxWait
	for m.s.Sample() == hw.High {
		if m.s.Now() > deadline {
			return 0, &TimeoutError{Phase: PhaseFallingEdge, Wait: maxWait}
		}
	}
	width := m.s.Now() - start

	if width < m.floor {
		return 0, &InvalidPulseError{Width: width, Floor: m.floor}
	}
	return width, nil
}

// Distance converts a pulse width to range units. usPerUnit is the
// sensor-model calibration constant (147 us per inch for the MB1300).
func Distance(width time.Duration, usPerUnit float64) float64 {
	return float64(width.Nanoseconds()) / 1000.0 / usPerUnit
}
