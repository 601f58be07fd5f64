package hw

import (
	"sync"
	"time"
)

// Edge is one transition in a simulated waveform.
type Edge struct {
	At    time.Duration // virtual time of the transition
	Level Level         // level the line assumes at that instant
}

// SimLine replays a recorded waveform against a virtual clock. Every
// Sample and Now call advances virtual time by a fixed step, modeling
// the software latency of a real busy-poll loop, so decoder tests run
// in microseconds of virtual time regardless of wall time.
type SimLine struct {
	idle  Level
	step  time.Duration
	edges []Edge
	now   time.Duration
}

var _ Sampler = (*SimLine)(nil)

// NewSimLine builds a simulated input line. Edges must be sorted by
// time; the line holds idle before the first edge and holds the last
// edge's level afterwards.
func NewSimLine(idle Level, step time.Duration, edges ...Edge) *SimLine {
	if step <= 0 {
		step = time.Microsecond
	}
	return &SimLine{idle: idle, step: step, edges: edges}
}

func (s *SimLine) Sample() Level {
	s.now += s.step
	return s.levelAt(s.now)
}

func (s *SimLine) Now() time.Duration {
	s.now += s.step
	return s.now
}

func (s *SimLine) levelAt(t time.Duration) Level {
	level := s.idle
	for _, e := range s.edges {
		if e.At > t {
			break
		}
		level = e.Level
	}
	return level
}

// SimOutput records every level written to it, for asserting trigger
// pulse shape and ordering in tests. A Recorder may be shared between
// outputs to capture cross-pin write order.
type SimOutput struct {
	Name string

	mu       sync.Mutex
	writes   []Level
	recorder *Recorder
}

var _ OutputPin = (*SimOutput)(nil)

// NewSimOutput returns a simulated output pin. recorder may be nil.
func NewSimOutput(name string, recorder *Recorder) *SimOutput {
	return &SimOutput{Name: name, recorder: recorder}
}

func (o *SimOutput) Write(level Level) error {
	o.mu.Lock()
	o.writes = append(o.writes, level)
	o.mu.Unlock()
	if o.recorder != nil {
		o.recorder.note(o.Name, level)
	}
	return nil
}

// Writes returns a copy of every level written so far.
func (o *SimOutput) Writes() []Level {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Level, len(o.writes))
	copy(out, o.writes)
	return out
}

// Recorder collects pin writes across simulated outputs in order.
type Recorder struct {
	mu      sync.Mutex
	entries []RecordedWrite
}

// RecordedWrite is one write seen by a Recorder.
type RecordedWrite struct {
	Pin   string
	Level Level
}

func (r *Recorder) note(pin string, level Level) {
	r.mu.Lock()
	r.entries = append(r.entries, RecordedWrite{Pin: pin, Level: level})
	r.mu.Unlock()
}

// Entries returns a copy of all recorded writes in write order.
func (r *Recorder) Entries() []RecordedWrite {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordedWrite, len(r.entries))
	copy(out, r.entries)
	return out
}
