package system

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
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

// Options configures a Coordinator. Zero values select production defaults.
type Options struct {
	// ConfigPath is the YAML configuration file.
	ConfigPath string

	// Version is reported in logs and the status command.
	Version string

	// Logger receives every record. Defaults to logging.Bootstrap(), which
	// buffers until the configuration has been loaded.
	Logger *logging.Logger

	// Stdin and Stdout carry the console. Default to the process streams.
	Stdin  io.Reader
	Stdout io.Writer

	// Exit terminates the process. Defaults to os.Exit.
	Exit func(code int)

	// NewController opens the GPIO subsystem. Defaults to
	// hardware.NewController.
	NewController func(logger hardware.Logger) (*hardware.Controller, error)
}

// Coordinator starts the controller and owns its single shutdown path.
//
// Thread Safety:
//   - Shutdown and ShutdownActions may be called from any goroutine, any
//     number of times, concurrently. Teardown runs once.
//   - Start must be called once, before any shutdown request is expected.
//     A shutdown requested while Start is running waits for it to return.
type Coordinator struct {
	opts   Options
	logger *logging.Logger
	exit   func(code int)

	shutdownStarted atomic.Bool
	codeOnce        sync.Once
	exitCode        int
	done            chan struct{}
	teardownErr     error

	// mu serialises Start with teardown. The resource fields below are
	// written only while it is held and never cleared.
	mu        sync.Mutex
	startedAt time.Time
	cfg       *config.Config
	location  *time.Location
	logReady  bool
	db        *database.DB
	dbSink    bool
	data      *data.Manager
	commander *console.Commander
	reader    *console.Reader
	mqtt      *mqtt.Client
	influx    *influxdb.Client
	gpio      *hardware.Controller
	drivers   *hardware.Drivers
	monitor   *hall.Monitor
	ui        *ui.Manager
}

// New creates a coordinator. Nothing is acquired until Start.
func New(opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = logging.Bootstrap()
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.NewController == nil {
		opts.NewController = hardware.NewController
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	exit := opts.Exit
	if exit == nil {
		exit = os.Exit
	}

	return &Coordinator{
		opts:     opts,
		logger:   opts.Logger,
		exit:     exit,
		done:     make(chan struct{}),
		location: time.UTC,
	}
}

// Run starts the controller and blocks until ctx is cancelled or a shutdown
// is requested, then returns the exit code.
//
// A startup failure is logged as fatal and triggers shutdown with code 1.
//
// Returns:
//   - int: 0 after a clean shutdown, 1 after a startup failure
func (c *Coordinator) Run(ctx context.Context) int {
	if err := c.Start(ctx); err != nil {
		if errors.Is(err, ErrShutdownRequested) {
			<-c.done
			return c.code()
		}
		c.ensureLogOutput()
		c.logger.Error("could not start, immediately shutting down", "fatal", true, "error", err)
		c.Shutdown(1)
		return 1
	}

	c.logger.Info("controller running, waiting for shutdown")

	select {
	case <-ctx.Done():
		c.logger.Info("shutdown signal received")
		c.Shutdown(0)
	case <-c.done:
	}
	return c.code()
}

// Shutdown runs the teardown, or waits for the one already running, and
// then exits the process with the code of the first request.
func (c *Coordinator) Shutdown(code int) {
	c.logger.Info("shutdown requested", "code", code)
	c.codeOnce.Do(func() { c.exitCode = code })

	if !c.ShutdownActions() {
		<-c.done
	}
	c.exit(c.code())
}

// ShutdownActions runs the ordered teardown if no other caller has.
//
// Returns:
//   - bool: true for the caller that ran the teardown, false for every
//     duplicate request
func (c *Coordinator) ShutdownActions() bool {
	if !c.shutdownStarted.CompareAndSwap(false, true) {
		c.logger.Warn("duplicate shutdown request")
		return false
	}

	defer close(c.done)
	c.teardownErr = c.runTeardown()
	return true
}

// Done is closed when teardown has finished.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

func (c *Coordinator) code() int {
	c.codeOnce.Do(func() {})
	return c.exitCode
}

// ensureLogOutput attaches a stderr output when startup failed before the
// configured one existed, so the buffered records are not lost.
func (c *Coordinator) ensureLogOutput() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.logReady {
		return
	}
	fallback := config.LoggingConfig{Level: "info", Format: "json", Output: "stderr"}
	if err := c.logger.Configure(fallback, c.opts.Version); err != nil {
		c.logger.Warn("replaying buffered logs failed", "error", err)
	}
	c.logReady = true
}
