package system

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/fbp-core/internal/console"
	"github.com/nerrad567/fbp-core/internal/data"
	"github.com/nerrad567/fbp-core/internal/hall"
	"github.com/nerrad567/fbp-core/internal/hardware"
	"github.com/nerrad567/fbp-core/internal/infrastructure/config"
	"github.com/nerrad567/fbp-core/internal/infrastructure/database"
	"github.com/nerrad567/fbp-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/fbp-core/internal/infrastructure/logging"
	"github.com/nerrad567/fbp-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/fbp-core/internal/ui"
)

type startupStep struct {
	name string
	run  func(ctx context.Context) error
}

// Start acquires every resource in order. The first failing step aborts
// the rest; what was acquired so far is released by Shutdown.
//
// Returns:
//   - error: *StartupError naming the failed step, or ErrShutdownRequested
//     if a shutdown began before startup finished
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.startedAt = time.Now()
	c.logger.Info("starting fbp controller", "version", c.opts.Version)

	steps := []startupStep{
		{"configuration", c.loadConfiguration},
		{"timezone", c.setTimezone},
		{"connection-pool", c.openConnectionPool},
		{"data-layer", c.openDataLayer},
		{"command-interface", c.openCommandInterface},
		{"telemetry", c.connectTelemetry},
		{"hardware", c.openHardware},
		{"ui", c.wireUI},
	}

	for _, step := range steps {
		if c.shutdownStarted.Load() {
			return ErrShutdownRequested
		}
		if err := step.run(ctx); err != nil {
			return &StartupError{Step: step.name, Err: err}
		}
		c.logger.Debug("startup step complete", "step", step.name)
	}

	// The controller keeps running offline, so a failed check is not fatal.
	if err := c.healthCheck(ctx); err != nil {
		c.logger.Warn("health check failed", "error", err)
	} else {
		c.logger.Info("all health checks passed")
	}

	c.logger.Info("initialisation complete", "startup_ms", time.Since(c.startedAt).Milliseconds())
	return nil
}

func (c *Coordinator) loadConfiguration(_ context.Context) error {
	cfg, err := config.Load(c.opts.ConfigPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	if err := c.logger.Configure(cfg.Logging, c.opts.Version); err != nil {
		c.logger.Warn("replaying buffered logs failed", "error", err)
	}
	c.logReady = true
	c.logger.Info("configuration loaded", "path", c.opts.ConfigPath, "site", cfg.Site.ID)
	return nil
}

func (c *Coordinator) setTimezone(_ context.Context) error {
	if c.cfg.Site.Timezone == "" {
		return nil
	}
	loc, err := time.LoadLocation(c.cfg.Site.Timezone)
	if err != nil {
		c.logger.Warn("invalid time zone, keeping UTC", "timezone", c.cfg.Site.Timezone, "error", err)
		return nil
	}
	c.location = loc
	c.logger.Info("time zone set", "timezone", loc.String())
	return nil
}

func (c *Coordinator) openConnectionPool(ctx context.Context) error {
	db, err := database.Open(ctx, database.Config{
		Path:         c.cfg.Database.Path,
		WALMode:      c.cfg.Database.WALMode,
		BusyTimeout:  c.cfg.Database.BusyTimeout,
		MaxOpenConns: c.cfg.Database.MaxOpenConns,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	c.db = db

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	if level := c.cfg.Database.LogLevel; level != "" {
		c.logger.AddSink(database.LogSinkName, database.NewLogHandler(db.DB, logging.ParseLevel(level)))
		c.dbSink = true
	}

	c.logger.Info("database ready", "path", db.Path(), "log_level", c.cfg.Database.LogLevel)
	return nil
}

func (c *Coordinator) openDataLayer(ctx context.Context) error {
	m, err := data.Open(ctx, c.db.DB)
	if err != nil {
		return fmt.Errorf("opening data layer: %w", err)
	}
	c.data = m
	return nil
}

func (c *Coordinator) openCommandInterface(_ context.Context) error {
	c.commander = console.NewCommander(c.status, c.Shutdown)
	c.commander.SetLogger(c.logger.With("component", "console"))
	c.commander.Register("health", "check database and telemetry connections", c.health)

	if c.cfg.Console.Enabled {
		c.reader = console.NewReader(c.opts.Stdin, c.opts.Stdout, c.commander)
		c.reader.SetLogger(c.logger.With("component", "console"))
	}
	return nil
}

// connectTelemetry connects the optional telemetry collaborators. The device
// must keep working offline, so an unreachable server is logged and skipped.
func (c *Coordinator) connectTelemetry(_ context.Context) error {
	if c.cfg.MQTT.Enabled {
		client, err := mqtt.Connect(c.cfg.MQTT, c.cfg.Site.ID)
		if err != nil {
			c.logger.Warn("mqtt unavailable, continuing without it", "error", err)
		} else {
			client.SetLogger(c.logger.With("component", "mqtt"))
			c.mqtt = client
			c.logger.Info("mqtt connected",
				"broker", fmt.Sprintf("%s:%d", c.cfg.MQTT.Broker.Host, c.cfg.MQTT.Broker.Port),
				"client_id", c.cfg.MQTT.Broker.ClientID,
			)
		}
	} else {
		c.logger.Info("mqtt disabled")
	}

	if c.cfg.InfluxDB.Enabled {
		client, err := influxdb.Connect(c.cfg.InfluxDB, c.cfg.Site.ID)
		if err != nil {
			c.logger.Warn("influxdb unavailable, continuing without it", "error", err)
		} else {
			client.SetOnError(func(err error) {
				c.logger.Error("influxdb write error", "error", err)
			})
			c.influx = client
			c.logger.Info("influxdb connected",
				"url", c.cfg.InfluxDB.URL,
				"org", c.cfg.InfluxDB.Org,
				"bucket", c.cfg.InfluxDB.Bucket,
			)
		}
	} else {
		c.logger.Info("influxdb disabled")
	}
	return nil
}

func (c *Coordinator) openHardware(_ context.Context) error {
	hw := c.cfg.Hardware
	hwLogger := c.logger.With("component", "hardware")

	if !hw.Enabled {
		c.drivers = &hardware.Drivers{
			Display: hardware.NewLogDisplay(hw.Display.Columns, hw.Display.Rows, hwLogger),
		}
		c.logger.Info("hardware disabled, running headless")
		return nil
	}

	gpio, err := c.opts.NewController(hwLogger)
	if err != nil {
		return fmt.Errorf("opening gpio: %w", err)
	}
	c.gpio = gpio

	cfg := hardware.DriversConfig{
		OKPin:          hw.Buttons.OK,
		LeftPin:        hw.Buttons.Left,
		RightPin:       hw.Buttons.Right,
		ActiveLow:      hw.ActiveLow,
		DisplayColumns: hw.Display.Columns,
		DisplayRows:    hw.Display.Rows,
	}
	if hw.Hall.Enabled {
		cfg.HallPin = hw.Hall.Pin
	}

	drivers, err := hardware.OpenDrivers(gpio, cfg, hwLogger)
	if err != nil {
		return fmt.Errorf("opening drivers: %w", err)
	}
	c.drivers = drivers

	if drivers.Hall != nil {
		c.monitor = hall.NewMonitor(drivers.Hall, hw.Hall.SampleInterval, c.hallSinks()...)
		c.monitor.SetLogger(c.logger.With("component", "hall"))
	}

	c.logger.Info("hardware ready", "pins", gpio.Acquired())
	return nil
}

// wireUI attaches the UI to the buttons and starts every input source.
// Nothing delivers events or commands before this step.
func (c *Coordinator) wireUI(ctx context.Context) error {
	c.ui = ui.NewManager(c.drivers.Display, c.screens(), c.buttonRecorders()...)
	c.ui.SetLogger(c.logger.With("component", "ui"))
	if err := c.ui.Init(); err != nil {
		return fmt.Errorf("initialising ui: %w", err)
	}

	if c.drivers.Buttons != nil {
		c.drivers.Buttons.AttachHandler(c.ui)
		if err := c.drivers.Buttons.Start(); err != nil {
			return fmt.Errorf("starting buttons: %w", err)
		}
	}

	if c.drivers.Hall != nil {
		if err := c.drivers.Hall.Start(); err != nil {
			return fmt.Errorf("starting hall driver: %w", err)
		}
		if err := c.monitor.Start(context.WithoutCancel(ctx)); err != nil {
			return fmt.Errorf("starting hall monitor: %w", err)
		}
	}

	if c.reader != nil {
		c.reader.Start()
		c.logger.Info("console ready")
	}

	if c.mqtt != nil {
		if err := c.mqtt.SubscribeCommands(c.commander.Execute); err != nil {
			c.logger.Warn("remote commands unavailable", "topic", c.mqtt.Topics().Command(), "error", err)
		}
	}
	return nil
}

func (c *Coordinator) hallSinks() []hall.Sink {
	sinks := []hall.Sink{c.data}
	if c.mqtt != nil {
		sinks = append(sinks, c.mqtt)
	}
	if c.influx != nil {
		sinks = append(sinks, c.influx)
	}
	return sinks
}

func (c *Coordinator) buttonRecorders() []ui.EventRecorder {
	recorders := []ui.EventRecorder{c.data}
	if c.mqtt != nil {
		recorders = append(recorders, c.mqtt)
	}
	if c.influx != nil {
		recorders = append(recorders, c.influx)
	}
	return recorders
}
