package hardware

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Controller is the process's handle on the GPIO subsystem.
// It loads the periph host drivers once and tracks every pin it hands out so
// Shutdown can release them all.
type Controller struct {
	lookup func(name string) PinIn
	logger Logger

	mu     sync.Mutex
	pins   map[string]PinIn
	closed bool
}

// NewController initialises the periph host drivers.
//
// Returns:
//   - *Controller: Ready to hand out pins
//   - error: ErrHostInit if no GPIO driver could be loaded
func NewController(logger Logger) (*Controller, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHostInit, err)
	}

	c := NewControllerWithLookup(lookupPin, logger)
	c.logger.Info("gpio host initialised", "drivers_loaded", len(state.Loaded), "drivers_failed", len(state.Failed))
	for _, failure := range state.Failed {
		c.logger.Debug("gpio driver failed to load", "driver", failure.D.String(), "error", failure.Err)
	}
	return c, nil
}

// NewControllerWithLookup creates a controller that resolves pin names with
// lookup instead of the periph registry. lookup returns nil for unknown names.
// It is used for simulated boards.
func NewControllerWithLookup(lookup func(name string) PinIn, logger Logger) *Controller {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Controller{
		lookup: lookup,
		logger: logger,
		pins:   make(map[string]PinIn),
	}
}

func lookupPin(name string) PinIn {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil
	}
	return p
}

// Pin acquires the named line, e.g. "GPIO17".
//
// Returns:
//   - PinIn: The line, owned by the caller until Shutdown
//   - error: ErrPinNotFound, ErrPinInUse or ErrClosed
func (c *Controller) Pin(name string) (PinIn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if _, ok := c.pins[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrPinInUse, name)
	}

	p := c.lookup(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrPinNotFound, name)
	}
	c.pins[name] = p
	return p, nil
}

// Acquired returns the names of pins handed out, sorted.
func (c *Controller) Acquired() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.pins))
	for name := range c.pins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Shutdown halts every acquired pin. Later calls do nothing.
//
// Returns:
//   - error: Every halt failure, joined
func (c *Controller) Shutdown() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	pins := c.pins
	c.pins = nil
	c.mu.Unlock()

	names := make([]string, 0, len(pins))
	for name := range pins {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		if err := pins[name].Halt(); err != nil {
			c.logger.Warn("halting gpio pin failed", "pin", name, "error", err)
			errs = append(errs, fmt.Errorf("halting %s: %w", name, err))
		}
	}
	c.logger.Info("gpio released", "pins", len(names))
	return errors.Join(errs...)
}
