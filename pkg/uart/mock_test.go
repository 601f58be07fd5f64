package uart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbuhidar/ultrasonic-detection-model/pkg/signal"
)

func TestMock_ServesLinesInOrder(t *testing.T) {
	m := NewMock("R100", "R101", "R102")

	for _, want := range []string{"R100", "R101", "R102"} {
		got, err := m.ReadLine(time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := m.ReadLine(time.Second)
	assert.ErrorIs(t, err, signal.ErrNoLine, "a drained mock reports no line, like a quiet sensor")
	assert.Equal(t, 0, m.Remaining())
}

func TestMock_Loop(t *testing.T) {
	m := NewMock("R55")
	m.Loop = true

	for i := 0; i < 5; i++ {
		got, err := m.ReadLine(time.Second)
		require.NoError(t, err)
		assert.Equal(t, "R55", got)
	}
}

func TestMock_DelayLongerThanTimeout(t *testing.T) {
	m := NewMock("R55")
	m.Delay = 50 * time.Millisecond

	_, err := m.ReadLine(time.Millisecond)
	assert.ErrorIs(t, err, signal.ErrNoLine)
	assert.Equal(t, 1, m.Remaining(), "a timed-out read must not consume the line")
}

func TestMock_Empty(t *testing.T) {
	m := NewMock()
	m.Loop = true
	_, err := m.ReadLine(time.Second)
	assert.ErrorIs(t, err, signal.ErrNoLine)
}
