// Package uart reads ultrasonic sensor reports from a hardware UART
// device node. Unlike the bit-banged decoder in pkg/signal, the
// underlying port already guarantees correct bit timing; this package
// only applies the line protocol on top of the byte stream.
package uart

import (
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/mbuhidar/ultrasonic-detection-model/pkg/signal"
)

// DefaultBaudRate is the MB1300's serial output rate.
const DefaultBaudRate = 9600

// Error is a constant string error.
type Error string

func (e Error) Error() string {
	return string(e)
}

// ErrNotConnected is returned for reads on a closed port.
const ErrNotConnected = Error("serial port not connected")

// Port is a LineSource over a hardware serial device, 8N1 at the
// configured baud rate.
type Port struct {
	name string
	baud int

	mu        sync.Mutex
	conn      serial.Port
	connected bool
}

// Open opens the named device (e.g. /dev/ttyS3) in 8N1 mode. baud 0
// selects DefaultBaudRate.
func Open(name string, baud int) (*Port, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	conn, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	if err := conn.ResetInputBuffer(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to flush serial port %s: %w", name, err)
	}
	return &Port{name: name, baud: baud, conn: conn, connected: true}, nil
}

// Name returns the device path.
func (p *Port) Name() string {
	return p.name
}

// Close closes the port. Safe to call more than once.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.connected {
		return nil
	}
	p.connected = false
	if err := p.conn.Close(); err != nil {
		return fmt.Errorf("failed to close serial port %s: %w", p.name, err)
	}
	return nil
}

// ReadLine reads until the report terminator and returns the line
// without it, keeping only printable ASCII. If no terminator arrives
// within timeout the partial line is discarded and signal.ErrNoLine is
// returned, matching the bit-banged decoder's contract.
func (p *Port) ReadLine(timeout time.Duration) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.connected {
		return "", ErrNotConnected
	}

	deadline := time.Now().Add(timeout)
	var buf []byte
	one := make([]byte, 1)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", signal.ErrNoLine
		}
		if err := p.conn.SetReadTimeout(remaining); err != nil {
			return "", fmt.Errorf("failed to set read timeout on %s: %w", p.name, err)
		}
		n, err := p.conn.Read(one)
		if err != nil {
			return "", fmt.Errorf("failed to read from %s: %w", p.name, err)
		}
		if n == 0 {
			// Port-level timeout expired with no terminator.
			return "", signal.ErrNoLine
		}
		switch b := one[0]; {
		case b == signal.LineTerminator:
			if len(buf) == 0 {
				continue
			}
			return string(buf), nil
		case b >= 0x20 && b <= 0x7E:
			buf = append(buf, b)
		}
	}
}

// Ports lists the serial device nodes available on the host.
func Ports() ([]string, error) {
	names, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return names, nil
}
