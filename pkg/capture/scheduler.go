// Package capture alternates triggering and acquisition between two
// sensor channels. Alternation rather than concurrent triggering is
// the correctness mechanism: both sensors share power and ground, and
// simultaneous ranging risks acoustic and electrical cross-talk
// corrupting both readings.
package capture

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mbuhidar/ultrasonic-detection-model/pkg/sensor"
)

// Error is a constant string error.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrAlreadyRunning is returned by Start when the continuous loop
	// is active.
	ErrAlreadyRunning = Error("capture already running")
	// ErrUnknownSensor is returned for history or statistics requests
	// naming neither channel.
	ErrUnknownSensor = Error("unknown sensor name")
)

// Options tunes the scheduling discipline.
type Options struct {
	// ReadingsPerTrigger is how many readings each trigger should
	// yield (the MB1300 emits 10 pulses per trigger event).
	ReadingsPerTrigger int
	// MaxWaitPerReading bounds each individual reading; zero selects
	// the channels' calibrated default.
	MaxWaitPerReading time.Duration
	// QuietInterval separates sensor A's capture from sensor B's
	// trigger within a cycle.
	QuietInterval time.Duration
	// CycleDelay separates complete cycles in continuous mode; Stop
	// is observable within one CycleDelay.
	CycleDelay time.Duration
}

func (o *Options) ensureDefaults() {
	if o.ReadingsPerTrigger == 0 {
		o.ReadingsPerTrigger = 10
	}
	if o.QuietInterval == 0 {
		o.QuietInterval = 10 * time.Millisecond
	}
	if o.CycleDelay == 0 {
		o.CycleDelay = 100 * time.Millisecond
	}
}

// Scheduler alternates capture between two channels. It is IDLE until
// Start and returns to IDLE after Stop; RunOneCycle executes the
// running body exactly once without entering the running state.
type Scheduler struct {
	a, b *sensor.Channel
	opts Options

	cycles atomic.Uint64

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New builds a scheduler over the two channels. Sensor a is always
// triggered strictly before sensor b within a cycle.
func New(a, b *sensor.Channel, opts Options) *Scheduler {
	opts.ensureDefaults()
	return &Scheduler{a: a, b: b, opts: opts}
}

// RunOneCycle triggers and captures sensor A fully, waits the quiet
// interval, triggers and captures sensor B fully, and increments the
// cycle counter by exactly one regardless of how many individual
// readings succeeded.
func (s *Scheduler) RunOneCycle() (aReadings, bReadings []sensor.Measurement) {
	aReadings = s.a.Capture(s.opts.ReadingsPerTrigger, s.opts.MaxWaitPerReading)
	time.Sleep(s.opts.QuietInterval)
	bReadings = s.b.Capture(s.opts.ReadingsPerTrigger, s.opts.MaxWaitPerReading)
	s.cycles.Add(1)
	return aReadings, bReadings
}

// Start launches the continuous capture loop on a background
// goroutine. Returns ErrAlreadyRunning if already started.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.running = true
	s.cancel = cancel
	s.done = done

	go s.loop(ctx, done)
	return nil
}

// loop is the RUNNING body. Cancellation is checked only at cycle
// boundaries so a cycle in progress always completes: every emitted
// measurement belongs to a fully-attempted cycle.
func (s *Scheduler) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	for {
		s.RunOneCycle()
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.opts.CycleDelay):
		}
	}
}

// Stop cancels the continuous loop and joins it. The in-flight cycle
// completes before the loop exits; Stop when idle is a no-op.
// Cancellation is a clean stop, not an error.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done

	s.mu.Lock()
	s.running = false
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()
}

// Running reports whether the continuous loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Cycles returns the number of completed alternations.
func (s *Scheduler) Cycles() uint64 {
	return s.cycles.Load()
}

// Channels returns the two channels in trigger order.
func (s *Scheduler) Channels() (a, b *sensor.Channel) {
	return s.a, s.b
}

// SnapshotHistory returns a copy of the named sensor's history,
// oldest first.
func (s *Scheduler) SnapshotHistory(name string) ([]sensor.Measurement, error) {
	ch, err := s.channel(name)
	if err != nil {
		return nil, err
	}
	return ch.History().Snapshot(), nil
}

// Statistics summarizes the named sensor's history.
func (s *Scheduler) Statistics(name string) (Stats, error) {
	ch, err := s.channel(name)
	if err != nil {
		return Stats{}, err
	}
	return Compute(ch.History().Snapshot()), nil
}

func (s *Scheduler) channel(name string) (*sensor.Channel, error) {
	switch name {
	case s.a.Name():
		return s.a, nil
	case s.b.Name():
		return s.b, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSensor, name)
}
