package signal

import (
	"time"

	"github.com/mbuhidar/ultrasonic-detection-model/pkg/hw"
)

const (
	// LineTerminator closes every serial report ("R123\r").
	LineTerminator = 0x0D

	printableMin = 0x20
	printableMax = 0x7E

	dataBits = 8
)

// Decoder reconstructs an 8N1 asynchronous serial byte stream from raw
// level samples at a fixed baud rate, for sense pins with no hardware
// UART behind them.
//
// Polling introduces variable software latency, so the decoder never
// accumulates timing across bytes: every byte anchors a fresh
// bit-period countdown on its own detected start edge, and each bit is
// sampled at the middle of its period.
type Decoder struct {
	s   hw.Sampler
	bit time.Duration
}

// NewDecoder returns a decoder for the given baud rate (9600 for the
// MB1300, giving a bit period of about 104.17 us).
func NewDecoder(s hw.Sampler, baud int) *Decoder {
	return &Decoder{s: s, bit: time.Second / time.Duration(baud)}
}

// BitPeriod returns the duration of one serial bit.
func (d *Decoder) BitPeriod() time.Duration {
	return d.bit
}

// ReadByte decodes one frame: start bit, 8 data bits LSB first, stop
// bit. It waits up to maxWait for the start edge. A start-bit
// candidate that reads HIGH again half a bit later is a glitch shorter
// than a full start bit and yields ErrFalseStart.
func (d *Decoder) ReadByte(maxWait time.Duration) (byte, error) {
	deadline := d.s.Now() + maxWait
	for d.s.Sample() == hw.High {
		if d.s.Now() > deadline {
			return 0, &TimeoutError{Phase: PhaseStartBit, Wait: maxWait}
		}
	}
	edge := d.s.Now()

	d.waitUntil(edge + d.bit/2)
	if d.s.Sample() != hw.Low {
		return 0, ErrFalseStart
	}

	var b byte
	for i := 0; i < dataBits; i++ {
		d.waitUntil(edge + d.bit/2 + time.Duration(i+1)*d.bit)
		if d.s.Sample() == hw.High {
			b |= 1 << i
		}
	}

	// Advance through the stop bit so the next start-edge search does
	// not mistake the tail of this frame for a new one. The stop level
	// itself is not validated.
	d.waitUntil(edge + d.bit/2 + time.Duration(dataBits+1)*d.bit)
	return b, nil
}

// ReadLine assembles bytes into a line until the terminator arrives.
// The terminator is not included in the returned line. Printable ASCII
// is retained; other control bytes are dropped so minor electrical
// noise does not abort the read. If no terminator is seen within
// maxWait the partial line is discarded and ErrNoLine is returned: a
// terminator must always close a returned line, or truncated tokens
// would be mis-parsed as valid reports.
func (d *Decoder) ReadLine(maxWait, byteWait time.Duration) (string, error) {
	deadline := d.s.Now() + maxWait
	var buf []byte
	for d.s.Now() < deadline {
		b, err := d.ReadByte(byteWait)
		if err != nil {
			// Quiet line or glitch; keep scanning until the window
			// closes.
			continue
		}
		if b == LineTerminator {
			if len(buf) == 0 {
				continue
			}
			return string(buf), nil
		}
		if b >= printableMin && b <= printableMax {
			buf = append(buf, b)
		}
	}
	return "", ErrNoLine
}

func (d *Decoder) waitUntil(t time.Duration) {
	for d.s.Now() < t {
	}
}
