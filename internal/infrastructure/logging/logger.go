package logging

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nerrad567/fbp-core/internal/infrastructure/config"
)

// primarySink is the fan-out member name of the configured output.
const primarySink = "primary"

// Logger wraps slog.Logger with fbp-specific functionality.
//
// Every Logger writes through a DeferredHandler into a FanoutHandler, so a
// logger obtained from Bootstrap can be handed out before configuration is
// loaded. Records logged in that window are replayed once Configure runs.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
	out *outputs
}

// outputs is shared by a Logger and every child created with With.
type outputs struct {
	deferred *DeferredHandler
	fanout   *FanoutHandler

	mu     sync.Mutex
	closer io.Closer
}

// Bootstrap creates a logger whose records are buffered until Configure is called.
//
// Returns:
//   - *Logger: Logger ready for use during early startup
func Bootstrap() *Logger {
	out := &outputs{
		deferred: NewDeferredHandler(slog.LevelDebug),
		fanout:   NewFanoutHandler(),
	}
	return &Logger{
		Logger: slog.New(out.deferred),
		out:    out,
	}
}

// New creates a new Logger with the specified configuration.
//
// Parameters:
//   - cfg: Logging configuration from config.yaml
//   - version: Application version for default field
//
// Returns:
//   - *Logger: Configured logger ready for use
func New(cfg config.LoggingConfig, version string) *Logger {
	l := Bootstrap()
	l.Configure(cfg, version) //nolint:errcheck // nothing is buffered yet
	return l
}

// Configure installs the configured output and releases any buffered records
// into it, in the order they were logged.
//
// Calling Configure again swaps the output; the previous file writer, if
// any, is closed.
//
// Parameters:
//   - cfg: Logging configuration from config.yaml
//   - version: Application version for default field
//
// Returns:
//   - error: Errors raised while replaying buffered records
func (l *Logger) Configure(cfg config.LoggingConfig, version string) error {
	handler, closer := NewHandler(cfg, version)

	l.out.mu.Lock()
	previous := l.out.closer
	l.out.closer = closer
	l.out.mu.Unlock()

	l.out.fanout.Set(primarySink, handler)

	var errs []error
	if previous != nil {
		errs = append(errs, previous.Close())
	}
	errs = append(errs, l.out.deferred.Attach(l.out.fanout))
	return errors.Join(errs...)
}

// AddSink registers an additional named output, such as the database log table.
func (l *Logger) AddSink(name string, h slog.Handler) {
	l.out.fanout.Set(name, h)
}

// RemoveSink unregisters a named output added with AddSink.
func (l *Logger) RemoveSink(name string) bool {
	return l.out.fanout.Remove(name)
}

// Close detaches the configured output and closes its file writer.
// Records logged afterwards are discarded unless other sinks remain.
func (l *Logger) Close() error {
	l.out.fanout.Remove(primarySink)

	l.out.mu.Lock()
	closer := l.out.closer
	l.out.closer = nil
	l.out.mu.Unlock()

	if closer == nil {
		return nil
	}
	return closer.Close()
}

// With returns a new Logger with additional default attributes.
//
// Parameters:
//   - args: Key-value pairs to add as default attributes
//
// Returns:
//   - *Logger: New logger with added attributes
//
// Example:
//
//	hwLogger := logger.With("component", "hardware")
//	hwLogger.Info("buttons ready") // Includes component=hardware
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
		out:    l.out,
	}
}

// NewHandler builds the slog handler described by cfg.
//
// It configures:
//   - Output format (JSON for production, text for development)
//   - Log level filtering
//   - Default fields (service name, version)
//   - Output destination (stdout, stderr, or a rotating file)
//
// Returns:
//   - slog.Handler: The configured handler
//   - io.Closer: Closes the file writer; nil for stdout and stderr
func NewHandler(cfg config.LoggingConfig, version string) (slog.Handler, io.Closer) {
	var output io.Writer
	var closer io.Closer
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		output = os.Stderr
	case "file":
		file := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSize,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAge,
			Compress:   cfg.File.Compress,
		}
		output = file
		closer = file
	default:
		output = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewJSONHandler(output, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "fbp"),
		slog.String("version", version),
	})

	return handler, closer
}

// ParseLevel converts a string log level to slog.Level.
//
// Supported levels: debug, info, warn, error
// Defaults to info if unrecognised.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
