package hardware

import "fmt"

// ButtonID identifies one of the front-panel buttons.
type ButtonID string

// Front-panel buttons.
const (
	ButtonOK    ButtonID = "OK"
	ButtonLeft  ButtonID = "LEFT"
	ButtonRight ButtonID = "RIGHT"
)

// Buttons lists every button in panel order.
var Buttons = []ButtonID{ButtonLeft, ButtonOK, ButtonRight}

// ButtonState is the logical state of a button after active-level mapping.
type ButtonState int

// Button states.
const (
	Released ButtonState = iota
	Pressed
)

// String returns "PRESSED" or "RELEASED".
func (s ButtonState) String() string {
	switch s {
	case Pressed:
		return "PRESSED"
	case Released:
		return "RELEASED"
	default:
		return fmt.Sprintf("ButtonState(%d)", int(s))
	}
}

// ButtonEvent is one observed transition of a button.
type ButtonEvent struct {
	Button ButtonID
	State  ButtonState
}

// String implements fmt.Stringer.
func (e ButtonEvent) String() string {
	return string(e.Button) + " " + e.State.String()
}

// EventHandler receives button events from the Dispatcher.
type EventHandler interface {
	HandleButtonEvent(ButtonEvent)
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ButtonEvent)

// HandleButtonEvent calls f(ev).
func (f EventHandlerFunc) HandleButtonEvent(ev ButtonEvent) {
	f(ev)
}
