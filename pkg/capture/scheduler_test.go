package capture

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbuhidar/ultrasonic-detection-model/pkg/sensor"
)

// callLog records which sensor's line source was read, in order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) note(name string) {
	l.mu.Lock()
	l.calls = append(l.calls, name)
	l.mu.Unlock()
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.calls))
	copy(out, l.calls)
	return out
}

// fakeSource serves a fixed report line and can optionally block until
// released, to hold a cycle in flight.
type fakeSource struct {
	name    string
	log     *callLog
	line    string
	started chan struct{} // closed on first call, may be nil
	gate    chan struct{} // received from per call, may be nil

	once sync.Once
}

func (f *fakeSource) ReadLine(time.Duration) (string, error) {
	f.log.note(f.name)
	if f.started != nil {
		f.once.Do(func() { close(f.started) })
	}
	if f.gate != nil {
		<-f.gate
	}
	return f.line, nil
}

func serialChannel(name string, src sensor.LineSource) *sensor.Channel {
	return sensor.NewHardwareSerial(sensor.Identity{Name: name}, src, sensor.Calibration{}, 0)
}

func newTestScheduler(log *callLog, opts Options) (*Scheduler, *fakeSource, *fakeSource) {
	srcA := &fakeSource{name: "Sensor_1", log: log, line: "R254"}
	srcB := &fakeSource{name: "Sensor_2", log: log, line: "R127"}
	sched := New(serialChannel("Sensor_1", srcA), serialChannel("Sensor_2", srcB), opts)
	return sched, srcA, srcB
}

func TestScheduler_RunOneCycle_OrderAndCounter(t *testing.T) {
	log := &callLog{}
	sched, _, _ := newTestScheduler(log, Options{
		ReadingsPerTrigger: 3,
		QuietInterval:      time.Millisecond,
	})

	a, b := sched.RunOneCycle()
	assert.Len(t, a, 3)
	assert.Len(t, b, 3)
	assert.Equal(t, uint64(1), sched.Cycles())

	// Sensor A is captured fully before sensor B is touched.
	assert.Equal(t, []string{
		"Sensor_1", "Sensor_1", "Sensor_1",
		"Sensor_2", "Sensor_2", "Sensor_2",
	}, log.snapshot())
}

func TestScheduler_RunOneCycle_CounterIgnoresFailures(t *testing.T) {
	log := &callLog{}
	srcA := &fakeSource{name: "Sensor_1", log: log, line: "garbage"}
	srcB := &fakeSource{name: "Sensor_2", log: log, line: "noise"}
	sched := New(serialChannel("Sensor_1", srcA), serialChannel("Sensor_2", srcB), Options{
		ReadingsPerTrigger: 2,
		QuietInterval:      time.Millisecond,
	})

	a, b := sched.RunOneCycle()
	assert.Empty(t, a)
	assert.Empty(t, b)
	assert.Equal(t, uint64(1), sched.Cycles(), "counter increments once per alternation regardless of reading failures")
}

func TestScheduler_StartStop(t *testing.T) {
	log := &callLog{}
	sched, _, _ := newTestScheduler(log, Options{
		ReadingsPerTrigger: 1,
		QuietInterval:      time.Millisecond,
		CycleDelay:         time.Millisecond,
	})

	require.NoError(t, sched.Start())
	assert.True(t, sched.Running())
	assert.ErrorIs(t, sched.Start(), ErrAlreadyRunning)

	// Let a few cycles run.
	time.Sleep(20 * time.Millisecond)
	sched.Stop()
	assert.False(t, sched.Running())
	assert.GreaterOrEqual(t, sched.Cycles(), uint64(1))

	// Stop when idle is a no-op; the scheduler can start again.
	sched.Stop()
	require.NoError(t, sched.Start())
	sched.Stop()
}

func TestScheduler_StopLetsInflightCycleComplete(t *testing.T) {
	log := &callLog{}
	started := make(chan struct{})
	gate := make(chan struct{})
	srcA := &fakeSource{name: "Sensor_1", log: log, line: "R254", started: started, gate: gate}
	srcB := &fakeSource{name: "Sensor_2", log: log, line: "R127"}
	chanA := serialChannel("Sensor_1", srcA)
	chanB := serialChannel("Sensor_2", srcB)
	sched := New(chanA, chanB, Options{
		ReadingsPerTrigger: 1,
		QuietInterval:      time.Millisecond,
		CycleDelay:         10 * time.Second, // Stop must not wait out this delay
	})

	require.NoError(t, sched.Start())

	// Hold the first cycle in flight on sensor A's read.
	<-started

	stopDone := make(chan struct{})
	go func() {
		sched.Stop()
		close(stopDone)
	}()

	// Stop must block while the cycle is in progress.
	select {
	case <-stopDone:
		t.Fatal("Stop returned while a cycle was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	// Release the cycle: sensor B must still be captured before the
	// loop exits, and Stop must return well within the cycle delay.
	gate <- struct{}{}
	select {
	case <-stopDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the in-flight cycle completed")
	}

	assert.Equal(t, uint64(1), sched.Cycles())
	assert.Equal(t, 1, chanA.History().Len())
	assert.Equal(t, 1, chanB.History().Len(), "the in-flight cycle must complete fully, including sensor B")
}

func TestScheduler_SnapshotAndStatistics(t *testing.T) {
	log := &callLog{}
	sched, _, _ := newTestScheduler(log, Options{
		ReadingsPerTrigger: 2,
		QuietInterval:      time.Millisecond,
	})
	sched.RunOneCycle()

	snap, err := sched.SnapshotHistory("Sensor_1")
	require.NoError(t, err)
	require.Len(t, snap, 2)
	assert.InDelta(t, 100.0, snap[0].Distance, 1e-9) // R254 -> 100 inches

	st, err := sched.Statistics("Sensor_2")
	require.NoError(t, err)
	assert.Equal(t, 2, st.Count)
	assert.InDelta(t, 50.0, st.Mean, 1e-9) // R127 -> 50 inches

	_, err = sched.SnapshotHistory("Sensor_9")
	assert.ErrorIs(t, err, ErrUnknownSensor)
	_, err = sched.Statistics("")
	assert.ErrorIs(t, err, ErrUnknownSensor)
}
