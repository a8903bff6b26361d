package system

import (
	"errors"
	"fmt"

	"github.com/nerrad567/fbp-core/internal/infrastructure/database"
)

type teardownStep struct {
	name string
	// run is nil when the step's resource was never acquired.
	run func() error
}

// teardownSteps lists the teardown in order.
func (c *Coordinator) teardownSteps() []teardownStep {
	steps := []teardownStep{
		{name: "ui"},
		{name: "console"},
		{name: "hardware-drivers"},
		{name: "gpio"},
		{name: "telemetry"},
		{name: "data-connection"},
		{name: "connection-pool"},
		{name: "logging"},
	}

	if c.ui != nil {
		steps[0].run = c.ui.Shutdown
	}
	if c.reader != nil {
		steps[1].run = c.reader.Close
	}
	if c.drivers != nil {
		steps[2].run = c.closeDrivers
	}
	if c.gpio != nil {
		steps[3].run = c.gpio.Shutdown
	}
	if c.mqtt != nil || c.influx != nil {
		steps[4].run = c.closeTelemetry
	}
	if c.data != nil {
		steps[5].run = c.data.CloseConnection
	}
	if c.db != nil {
		steps[6].run = c.closeConnectionPool
	}
	steps[7].run = c.closeLogging
	return steps
}

// runTeardown runs every step, logging failures and continuing.
//
// Returns:
//   - error: Each failure as a *TeardownError, joined
func (c *Coordinator) runTeardown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Info("shutting down")

	var errs []error
	for _, step := range c.teardownSteps() {
		if step.run == nil {
			c.logger.Debug("teardown step skipped", "step", step.name)
			continue
		}
		if err := runStep(step); err != nil {
			c.logger.Error("teardown step failed", "step", step.name, "error", err)
			errs = append(errs, &TeardownError{Step: step.name, Err: err})
			continue
		}
		c.logger.Debug("teardown step complete", "step", step.name)
	}
	return errors.Join(errs...)
}

// runStep runs one teardown step, turning a panic into its error so the
// remaining steps still run.
func runStep(step teardownStep) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTeardownPanic, r)
		}
	}()
	return step.run()
}

func (c *Coordinator) closeDrivers() error {
	if c.monitor != nil {
		c.monitor.Stop()
	}
	return c.drivers.Close()
}

func (c *Coordinator) closeTelemetry() error {
	var errs []error
	if c.mqtt != nil {
		if err := c.mqtt.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing mqtt: %w", err))
		}
	}
	if c.influx != nil {
		if err := c.influx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing influxdb: %w", err))
		}
	}
	return errors.Join(errs...)
}

// closeConnectionPool detaches the database log sink before the pool goes.
func (c *Coordinator) closeConnectionPool() error {
	if c.dbSink {
		c.logger.RemoveSink(database.LogSinkName)
	}
	return c.db.Close()
}

func (c *Coordinator) closeLogging() error {
	c.logger.Info("shutdown complete")
	return c.logger.Close()
}
