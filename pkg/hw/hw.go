// Package hw provides GPIO access for the capture suite. All timing
// logic upstream is built on the Sampler primitive defined here; the
// hardware-backed implementation wraps periph.io pins.
package hw

import (
	"sync"
	"time"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

// Level is the logic level of a GPIO line.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l == High {
		return "HIGH"
	}
	return "LOW"
}

// Sampler reads the instantaneous logic level of an input line.
// Sample must not block and must not introduce extraneous delay:
// pulse widths and serial bit windows are derived from Now deltas
// between consecutive calls. Now is monotonic.
type Sampler interface {
	Sample() Level
	Now() time.Duration
}

// OutputPin drives an output line.
type OutputPin interface {
	Write(Level) error
}

// Context owns the process's GPIO pins. Pins are acquired through
// Input/Output and released by Close, which restores every output to
// its configured idle level so no trigger line is left asserted after
// shutdown.
type Context struct {
	epoch time.Time

	mu      sync.Mutex
	outputs []*OutputLine
	closed  bool
}

// NewContext initializes the host GPIO drivers and returns a context
// ready to hand out pins.
func NewContext() (*Context, error) {
	if _, err := host.Init(); err != nil {
		return nil, &HardwareAccessError{Op: "host init", Err: err}
	}
	return &Context{epoch: time.Now()}, nil
}

// Input configures the named pin as an input and returns a sampler
// bound to it.
func (c *Context) Input(name string) (*InputLine, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, &HardwareAccessError{Pin: name, Op: "lookup"}
	}
	if err := pin.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return nil, &HardwareAccessError{Pin: name, Op: "configure input", Err: err}
	}
	return &InputLine{pin: pin, epoch: c.epoch}, nil
}

// Output configures the named pin as an output driven to idle.
func (c *Context) Output(name string, idle Level) (*OutputLine, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, &HardwareAccessError{Pin: name, Op: "lookup"}
	}
	if err := pin.Out(gpio.Level(idle)); err != nil {
		return nil, &HardwareAccessError{Pin: name, Op: "configure output", Err: err}
	}
	out := &OutputLine{pin: pin, idle: idle}

	c.mu.Lock()
	c.outputs = append(c.outputs, out)
	c.mu.Unlock()
	return out, nil
}

// Close parks every output at its idle level. Safe to call more than
// once.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var firstErr error
	for _, out := range c.outputs {
		if err := out.Write(out.idle); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// InputLine is a hardware-backed Sampler.
type InputLine struct {
	pin   gpio.PinIO
	epoch time.Time
}

var _ Sampler = (*InputLine)(nil)

func (l *InputLine) Sample() Level {
	return Level(l.pin.Read())
}

func (l *InputLine) Now() time.Duration {
	return time.Since(l.epoch)
}

// Name returns the underlying pin name.
func (l *InputLine) Name() string {
	return l.pin.Name()
}

// OutputLine is a hardware-backed OutputPin.
type OutputLine struct {
	pin  gpio.PinIO
	idle Level
}

var _ OutputPin = (*OutputLine)(nil)

func (l *OutputLine) Write(level Level) error {
	if err := l.pin.Out(gpio.Level(level)); err != nil {
		return &HardwareAccessError{Pin: l.pin.Name(), Op: "write", Err: err}
	}
	return nil
}

// Idle returns the level the line rests at when not pulsed.
func (l *OutputLine) Idle() Level {
	return l.idle
}
