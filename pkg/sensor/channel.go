package sensor

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mbuhidar/ultrasonic-detection-model/pkg/hw"
	"github.com/mbuhidar/ultrasonic-detection-model/pkg/signal"
)

// Mode selects how a channel decodes its sensor's output. The mode is
// the only axis of variation between otherwise identical capture
// paths.
type Mode int

const (
	// ModePulseWidth times the HIGH pulse on the sense pin.
	ModePulseWidth Mode = iota
	// ModeSoftwareSerial bit-bangs the 9600-8N1 ASCII stream off the
	// sense pin.
	ModeSoftwareSerial
	// ModeHardwareSerial reads the same ASCII stream from a real
	// serial device node.
	ModeHardwareSerial
)

func (m Mode) String() string {
	switch m {
	case ModePulseWidth:
		return "pulse_width"
	case ModeSoftwareSerial:
		return "software_serial"
	case ModeHardwareSerial:
		return "hardware_serial"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode parses a configuration mode string.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "pulse_width":
		return ModePulseWidth, nil
	case "software_serial":
		return ModeSoftwareSerial, nil
	case "hardware_serial":
		return ModeHardwareSerial, nil
	}
	return 0, fmt.Errorf("unknown decode mode %q", s)
}

// Identity names one physical sensor and its wiring. Created at
// configuration time, never mutated.
type Identity struct {
	Name       string
	TriggerPin string
	SensePin   string
}

// TriggerPulse describes the shape of the ranging-start pulse. The
// MB1300 starts ranging on an active-low pulse of at least 20 us on
// its RX pin and idles HIGH; other wirings invert this. Duration zero
// means the sensor free-runs and Trigger is a no-op (continuous serial
// output with the enable line held at idle).
type TriggerPulse struct {
	Duration time.Duration
	Active   hw.Level
}

// Idle returns the level the trigger line rests at between pulses.
func (p TriggerPulse) Idle() hw.Level {
	return !p.Active
}

// Calibration pins the unit conversions for one sensor model
// explicitly, rather than inferring them per decode mode.
type Calibration struct {
	// MicrosPerUnit converts pulse width to range (147 us/inch for
	// the MB1300).
	MicrosPerUnit float64
	// SerialDivisor converts the serial integer token to range
	// (2.54 cm/inch: the sensor reports centimeters, the caller wants
	// inches).
	SerialDivisor float64
	// PulseFloor rejects implausibly short pulses.
	PulseFloor time.Duration
	// MaxWait bounds each individual reading.
	MaxWait time.Duration
	// ByteWait bounds the wait for each serial start bit.
	ByteWait time.Duration
	// ReadingGap is the settle delay between readings in a cycle.
	ReadingGap time.Duration
	// Baud is the serial bit rate.
	Baud int
}

func (c *Calibration) ensureDefaults() {
	if c.MicrosPerUnit == 0 {
		c.MicrosPerUnit = 147
	}
	if c.SerialDivisor == 0 {
		c.SerialDivisor = CentimetersPerInch
	}
	if c.PulseFloor == 0 {
		c.PulseFloor = signal.DefaultPulseFloor
	}
	if c.MaxWait == 0 {
		c.MaxWait = 50 * time.Millisecond
	}
	if c.ByteWait == 0 {
		c.ByteWait = c.MaxWait
	}
	if c.Baud == 0 {
		c.Baud = 9600
	}
}

// LineSource yields terminator-closed ASCII lines, terminator
// stripped. Implemented by the hardware UART transport.
type LineSource interface {
	ReadLine(timeout time.Duration) (string, error)
}

// Channel owns one sensor's trigger pin and decode path. It remains
// usable after any reading-level failure; only construction can fail.
type Channel struct {
	id      Identity
	mode    Mode
	pulse   TriggerPulse
	cal     Calibration
	trigger hw.OutputPin
	meter   *signal.PulseWidthMeter
	dec     *signal.Decoder
	line    LineSource
	history *History
	epoch   time.Time

	cbMu     sync.RWMutex
	callback func(Measurement)
}

// NewPulseWidth builds a channel that times echo pulses on sense.
// trigger may be nil for free-running sensors.
func NewPulseWidth(id Identity, trigger hw.OutputPin, sense hw.Sampler, pulse TriggerPulse, cal Calibration, historyCapacity int) *Channel {
	cal.ensureDefaults()
	return &Channel{
		id:      id,
		mode:    ModePulseWidth,
		pulse:   pulse,
		cal:     cal,
		trigger: trigger,
		meter:   signal.NewPulseWidthMeter(sense, cal.PulseFloor),
		history: NewHistory(historyCapacity),
		epoch:   time.Now(),
	}
}

// NewSoftwareSerial builds a channel that bit-bangs the sensor's
// serial output off sense. trigger may be nil for free-running
// sensors.
func NewSoftwareSerial(id Identity, trigger hw.OutputPin, sense hw.Sampler, pulse TriggerPulse, cal Calibration, historyCapacity int) *Channel {
	cal.ensureDefaults()
	return &Channel{
		id:      id,
		mode:    ModeSoftwareSerial,
		pulse:   pulse,
		cal:     cal,
		trigger: trigger,
		dec:     signal.NewDecoder(sense, cal.Baud),
		history: NewHistory(historyCapacity),
		epoch:   time.Now(),
	}
}

// NewHardwareSerial builds a channel over a byte-stream source that
// already guarantees correct bit timing.
func NewHardwareSerial(id Identity, line LineSource, cal Calibration, historyCapacity int) *Channel {
	cal.ensureDefaults()
	return &Channel{
		id:      id,
		mode:    ModeHardwareSerial,
		cal:     cal,
		line:    line,
		history: NewHistory(historyCapacity),
		epoch:   time.Now(),
	}
}

// Name returns the sensor name.
func (c *Channel) Name() string {
	return c.id.Name
}

// Identity returns the sensor's wiring identity.
func (c *Channel) Identity() Identity {
	return c.id
}

// Mode returns the configured decode mode.
func (c *Channel) Mode() Mode {
	return c.mode
}

// TriggerPulse returns the pulse shape and polarity the channel
// drives.
func (c *Channel) TriggerPulse() TriggerPulse {
	return c.pulse
}

// History returns the channel's measurement history.
func (c *Channel) History() *History {
	return c.history
}

// OnMeasurement registers a callback invoked from the capture path for
// every measurement. The callback must not block on GPIO timing.
func (c *Channel) OnMeasurement(fn func(Measurement)) {
	c.cbMu.Lock()
	c.callback = fn
	c.cbMu.Unlock()
}

// Trigger drives the ranging-start pulse and returns immediately; it
// does not wait for a response. No-op when the sensor free-runs.
func (c *Channel) Trigger() error {
	if c.trigger == nil || c.pulse.Duration == 0 {
		return nil
	}
	if err := c.trigger.Write(c.pulse.Active); err != nil {
		return err
	}
	time.Sleep(c.pulse.Duration)
	return c.trigger.Write(c.pulse.Idle())
}

// Capture triggers once, then synchronously acquires up to count
// readings with the configured decode mode. Each reading appends a
// Measurement to history. A reading that fails is skipped with a
// logged warning; degraded partial capture is the designed behavior,
// so the returned slice may be short or empty but Capture never
// returns an error. maxWait <= 0 selects the calibrated default.
func (c *Channel) Capture(count int, maxWait time.Duration) []Measurement {
	if maxWait <= 0 {
		maxWait = c.cal.MaxWait
	}
	if err := c.Trigger(); err != nil {
		log.Printf("%s: trigger failed, cycle skipped: %v", c.id.Name, err)
		return nil
	}

	out := make([]Measurement, 0, count)
	for seq := 1; seq <= count; seq++ {
		m, err := c.readOne(seq, maxWait)
		if err != nil {
			log.Printf("%s: reading %d/%d skipped: %v", c.id.Name, seq, count, err)
		} else {
			out = append(out, m)
			c.history.Append(m)
			c.notify(m)
		}
		if c.cal.ReadingGap > 0 && seq < count {
			time.Sleep(c.cal.ReadingGap)
		}
	}
	return out
}

func (c *Channel) readOne(seq int, maxWait time.Duration) (Measurement, error) {
	switch c.mode {
	case ModePulseWidth:
		width, err := c.meter.Measure(maxWait)
		if err != nil {
			return Measurement{}, err
		}
		us := float64(width.Nanoseconds()) / 1000.0
		return c.measured(seq, signal.Distance(width, c.cal.MicrosPerUnit), us), nil

	case ModeSoftwareSerial:
		line, err := c.dec.ReadLine(maxWait, c.cal.ByteWait)
		if err != nil {
			return Measurement{}, err
		}
		return c.parseLine(seq, line)

	case ModeHardwareSerial:
		line, err := c.line.ReadLine(maxWait)
		if err != nil {
			return Measurement{}, err
		}
		return c.parseLine(seq, line)
	}
	return Measurement{}, fmt.Errorf("unknown decode mode %v", c.mode)
}

func (c *Channel) parseLine(seq int, line string) (Measurement, error) {
	token, err := ParseReport(line, ReportMarker)
	if err != nil {
		return Measurement{}, err
	}
	return c.measured(seq, float64(token)/c.cal.SerialDivisor, float64(token)), nil
}

func (c *Channel) measured(seq int, distance, raw float64) Measurement {
	now := time.Now()
	return Measurement{
		SensorName: c.id.Name,
		Sequence:   seq,
		Distance:   distance,
		RawTiming:  raw,
		Wall:       now,
		Mono:       now.Sub(c.epoch),
	}
}

func (c *Channel) notify(m Measurement) {
	c.cbMu.RLock()
	fn := c.callback
	c.cbMu.RUnlock()
	if fn != nil {
		fn(m)
	}
}
