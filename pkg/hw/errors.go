package hw

import "fmt"

// Error is a constant string error.
type Error string

func (e Error) Error() string {
	return string(e)
}

// HardwareAccessError reports a pin that could not be looked up,
// configured, or driven. It is fatal to setup: capture never starts on
// a pin that fails to configure.
type HardwareAccessError struct {
	Pin string
	Op  string
	Err error
}

func (e *HardwareAccessError) Error() string {
	if e.Pin == "" {
		if e.Err == nil {
			return fmt.Sprintf("gpio: %s failed", e.Op)
		}
		return fmt.Sprintf("gpio: %s failed: %v", e.Op, e.Err)
	}
	if e.Err == nil {
		return fmt.Sprintf("gpio pin %s: %s failed", e.Pin, e.Op)
	}
	return fmt.Sprintf("gpio pin %s: %s failed: %v", e.Pin, e.Op, e.Err)
}

func (e *HardwareAccessError) Unwrap() error {
	return e.Err
}
