package console

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownCommand is returned by Execute for a name with no handler.
var ErrUnknownCommand = errors.New("console: unknown command")

// ErrEmptyCommand is returned by Execute for a blank line.
var ErrEmptyCommand = errors.New("console: empty command")

// CommandFunc handles one command. args excludes the command name.
type CommandFunc func(ctx context.Context, args []string) (string, error)

type command struct {
	help string
	run  CommandFunc
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Commander dispatches text commands.
//
// Thread Safety:
//   - Register and Execute are safe for concurrent use.
type Commander struct {
	mu       sync.RWMutex
	commands map[string]command
	logger   Logger
	loggerMu sync.RWMutex
}

// NewCommander returns a Commander with the built-in commands.
//
// Parameters:
//   - status: Produces the text of the status command; nil reports "running"
//   - shutdown: Requests process shutdown with the given exit code
//
// Returns:
//   - *Commander: Ready for Execute
func NewCommander(status func() string, shutdown func(code int)) *Commander {
	c := &Commander{
		commands: make(map[string]command),
		logger:   noopLogger{},
	}

	c.Register("help", "list commands", func(context.Context, []string) (string, error) {
		return c.help(), nil
	})
	c.Register("status", "show controller status", func(context.Context, []string) (string, error) {
		if status == nil {
			return "running", nil
		}
		return status(), nil
	})
	c.Register("shutdown", "stop the controller", func(context.Context, []string) (string, error) {
		if shutdown == nil {
			return "", errors.New("shutdown not available")
		}
		// The shutdown path tears down this console, so it must not run on
		// the goroutine that is executing the command.
		go shutdown(0)
		return "shutting down", nil
	})
	return c
}

// SetLogger sets the logger for the commander.
func (c *Commander) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

func (c *Commander) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// Register adds or replaces a command.
func (c *Commander) Register(name, help string, fn CommandFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands[strings.ToLower(name)] = command{help: help, run: fn}
}

// Execute runs one command line. Leading and trailing whitespace is
// ignored and the command name is case-insensitive.
func (c *Commander) Execute(ctx context.Context, line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", ErrEmptyCommand
	}

	name := strings.ToLower(fields[0])
	c.mu.RLock()
	cmd, ok := c.commands[name]
	c.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCommand, fields[0])
	}

	c.getLogger().Info("executing command", "command", name)
	out, err := cmd.run(ctx, fields[1:])
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func (c *Commander) help() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.commands))
	for name := range c.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%-10s %s", name, c.commands[name].help)
	}
	return b.String()
}
