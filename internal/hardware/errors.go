package hardware

import "errors"

// Domain errors for the hardware package.
var (
	// ErrAlreadyStarted is returned by Start on a dispatcher or driver that
	// is already running.
	ErrAlreadyStarted = errors.New("hardware: already started")

	// ErrClosed is returned when starting or using a closed component.
	ErrClosed = errors.New("hardware: closed")

	// ErrHostInit is returned when the periph host drivers fail to load.
	ErrHostInit = errors.New("hardware: host initialisation failed")

	// ErrPinNotFound is returned when no GPIO line has the requested name.
	ErrPinNotFound = errors.New("hardware: pin not found")

	// ErrPinInUse is returned when a pin has already been handed out.
	ErrPinInUse = errors.New("hardware: pin already in use")

	// ErrPinConfig is returned when a pin cannot be configured as an input.
	ErrPinConfig = errors.New("hardware: pin configuration failed")
)
