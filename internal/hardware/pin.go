package hardware

import (
	"time"

	"periph.io/x/conn/v3/gpio"
)

// PinIn is the part of a periph GPIO pin the drivers use.
// Every gpio.PinIO satisfies it.
type PinIn interface {
	String() string
	Halt() error
	In(pull gpio.Pull, edge gpio.Edge) error
	Read() gpio.Level
	WaitForEdge(timeout time.Duration) bool
}

var _ PinIn = gpio.PinIO(nil)

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
