package system

import (
	"errors"
	"fmt"
)

// ErrShutdownRequested is returned by Start when shutdown began before
// startup finished.
var ErrShutdownRequested = errors.New("system: shutdown requested during startup")

// ErrTeardownPanic wraps a panic recovered from a teardown step.
var ErrTeardownPanic = errors.New("system: teardown step panicked")

// StartupError reports the acquisition step that failed. It is always fatal.
type StartupError struct {
	Step string
	Err  error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("startup step %s: %v", e.Step, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

// TeardownError reports a teardown step that failed. It never stops the
// remaining steps.
type TeardownError struct {
	Step string
	Err  error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("teardown step %s: %v", e.Step, e.Err)
}

func (e *TeardownError) Unwrap() error {
	return e.Err
}
