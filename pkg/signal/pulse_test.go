package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbuhidar/ultrasonic-detection-model/pkg/hw"
)

func TestPulseWidthMeter_Measure(t *testing.T) {
	// One clean echo pulse: HIGH for 14700 us. At 147 us per inch that
	// is exactly 100 inches.
	line := hw.NewSimLine(hw.Low, time.Microsecond,
		hw.Edge{At: 200 * time.Microsecond, Level: hw.High},
		hw.Edge{At: (200 + 14700) * time.Microsecond, Level: hw.Low},
	)
	meter := NewPulseWidthMeter(line, 0)

	width, err := meter.Measure(50 * time.Millisecond)
	require.NoError(t, err)
	assert.InDelta(t, 14700, float64(width.Microseconds()), 10, "measured width")
	assert.InDelta(t, 100.0, Distance(width, 147), 0.1, "converted distance")
}

func TestPulseWidthMeter_RisingEdgeTimeout(t *testing.T) {
	line := hw.NewSimLine(hw.Low, time.Microsecond) // never goes high
	meter := NewPulseWidthMeter(line, 0)

	_, err := meter.Measure(5 * time.Millisecond)
	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, PhaseRisingEdge, te.Phase)
}

func TestPulseWidthMeter_FallingEdgeTimeout(t *testing.T) {
	line := hw.NewSimLine(hw.Low, time.Microsecond,
		hw.Edge{At: 100 * time.Microsecond, Level: hw.High}, // stuck high
	)
	meter := NewPulseWidthMeter(line, 0)

	_, err := meter.Measure(5 * time.Millisecond)
	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, PhaseFallingEdge, te.Phase)
}

func TestPulseWidthMeter_RejectsSubFloorPulse(t *testing.T) {
	// A 50 us spike cannot be a physical echo.
	line := hw.NewSimLine(hw.Low, time.Microsecond,
		hw.Edge{At: 100 * time.Microsecond, Level: hw.High},
		hw.Edge{At: 150 * time.Microsecond, Level: hw.Low},
	)
	meter := NewPulseWidthMeter(line, 100*time.Microsecond)

	_, err := meter.Measure(5 * time.Millisecond)
	var ip *InvalidPulseError
	require.ErrorAs(t, err, &ip)
	assert.Equal(t, 100*time.Microsecond, ip.Floor)
	assert.Less(t, ip.Width, ip.Floor)
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name      string
		width     time.Duration
		usPerUnit float64
		want      float64
	}{
		{name: "exact calibration", width: 147 * time.Microsecond, usPerUnit: 147, want: 1.0},
		{name: "hundred units", width: 14700 * time.Microsecond, usPerUnit: 147, want: 100.0},
		{name: "fractional", width: 220 * time.Microsecond, usPerUnit: 147, want: 220.0 / 147.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Distance(tt.width, tt.usPerUnit), 1e-9)
		})
	}
}
