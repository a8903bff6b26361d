package hardware

import (
	"errors"
	"fmt"
)

// DriversConfig selects the pins and geometry of the drivers.
type DriversConfig struct {
	OKPin     string
	LeftPin   string
	RightPin  string
	ActiveLow bool

	// HallPin is empty when no hall sensor is fitted.
	HallPin string

	DisplayColumns int
	DisplayRows    int
}

// Drivers aggregates the device drivers so they can be released as one.
type Drivers struct {
	Buttons *Dispatcher
	Hall    *HallDriver
	Display DisplayDriver
}

// OpenDrivers acquires the configured pins from c and builds the drivers.
// Nothing is started.
func OpenDrivers(c *Controller, cfg DriversConfig, logger Logger) (*Drivers, error) {
	if logger == nil {
		logger = noopLogger{}
	}

	buttons := []struct {
		id  ButtonID
		pin string
	}{
		{ButtonOK, cfg.OKPin},
		{ButtonLeft, cfg.LeftPin},
		{ButtonRight, cfg.RightPin},
	}

	lines := make([]LineConfig, 0, len(buttons))
	for _, b := range buttons {
		pin, err := c.Pin(b.pin)
		if err != nil {
			return nil, fmt.Errorf("acquiring %s button: %w", b.id, err)
		}
		lines = append(lines, LineConfig{Button: b.id, Pin: pin})
	}

	opts := []DispatcherOption{WithLogger(logger)}
	if !cfg.ActiveLow {
		opts = append(opts, WithActiveHigh())
	}

	d := &Drivers{
		Buttons: NewDispatcher(lines, opts...),
		Display: NewLogDisplay(cfg.DisplayColumns, cfg.DisplayRows, logger),
	}

	if cfg.HallPin != "" {
		pin, err := c.Pin(cfg.HallPin)
		if err != nil {
			return nil, fmt.Errorf("acquiring hall sensor: %w", err)
		}
		d.Hall = NewHallDriver(pin, logger)
	}
	return d, nil
}

// Close closes the buttons, the hall driver and the display, in that order.
// Every driver is closed even if an earlier one fails.
func (d *Drivers) Close() error {
	var errs []error
	if d.Buttons != nil {
		if err := d.Buttons.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing buttons: %w", err))
		}
	}
	if d.Hall != nil {
		if err := d.Hall.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing hall driver: %w", err))
		}
	}
	if d.Display != nil {
		if err := d.Display.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing display: %w", err))
		}
	}
	return errors.Join(errs...)
}
