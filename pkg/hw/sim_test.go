package hw

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSimLine_Playback(t *testing.T) {
	line := NewSimLine(Low, time.Microsecond,
		Edge{At: 10 * time.Microsecond, Level: High},
		Edge{At: 30 * time.Microsecond, Level: Low},
	)

	// Before the first edge the line is idle.
	assert.Equal(t, Low, line.levelAt(5*time.Microsecond))
	// Between edges it holds the pulse level.
	assert.Equal(t, High, line.levelAt(15*time.Microsecond))
	// After the last edge it holds the last level.
	assert.Equal(t, Low, line.levelAt(time.Second))
}

func TestSimLine_TimeAdvances(t *testing.T) {
	line := NewSimLine(Low, time.Microsecond)

	t1 := line.Now()
	line.Sample()
	t2 := line.Now()
	assert.Greater(t, t2, t1, "virtual clock must advance on every call")
}

func TestSimOutput_Records(t *testing.T) {
	rec := &Recorder{}
	a := NewSimOutput("trig_a", rec)
	b := NewSimOutput("trig_b", rec)

	assert.NoError(t, a.Write(Low))
	assert.NoError(t, b.Write(Low))
	assert.NoError(t, a.Write(High))

	assert.Equal(t, []Level{Low, High}, a.Writes())
	assert.Equal(t, []RecordedWrite{
		{Pin: "trig_a", Level: Low},
		{Pin: "trig_b", Level: Low},
		{Pin: "trig_a", Level: High},
	}, rec.Entries())
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "HIGH", High.String())
	assert.Equal(t, "LOW", Low.String())
}
