package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
)

// Executor runs a command line. *Commander satisfies it.
type Executor interface {
	Execute(ctx context.Context, line string) (string, error)
}

// Reader feeds lines from an input stream to an Executor and writes each
// reply to an output stream.
type Reader struct {
	in       io.Reader
	out      io.Writer
	exec     Executor
	logger   Logger
	loggerMu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewReader creates a reader. Nothing is read until Start.
func NewReader(in io.Reader, out io.Writer, exec Executor) *Reader {
	ctx, cancel := context.WithCancel(context.Background())
	return &Reader{
		in:     in,
		out:    out,
		exec:   exec,
		logger: noopLogger{},
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// SetLogger sets the logger for the reader.
func (r *Reader) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	r.loggerMu.Lock()
	r.logger = logger
	r.loggerMu.Unlock()
}

func (r *Reader) getLogger() Logger {
	r.loggerMu.RLock()
	defer r.loggerMu.RUnlock()
	return r.logger
}

// Start begins reading on a new goroutine.
func (r *Reader) Start() {
	go r.loop()
}

// Done is closed when the reader goroutine exits.
func (r *Reader) Done() <-chan struct{} {
	return r.done
}

// Close stops executing commands and closes the input if it is an
// io.Closer. It does not wait for the goroutine: a read blocked on a
// terminal may not return until the next line. Use Done to wait.
func (r *Reader) Close() error {
	var err error
	r.once.Do(func() {
		r.cancel()
		if c, ok := r.in.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}

func (r *Reader) loop() {
	defer close(r.done)

	scanner := bufio.NewScanner(r.in)
	for scanner.Scan() {
		if r.ctx.Err() != nil {
			return
		}
		line := scanner.Text()
		if line == "" {
			continue
		}

		reply, err := r.exec.Execute(r.ctx, line)
		if err != nil {
			r.getLogger().Warn("command failed", "line", line, "error", err)
			fmt.Fprintf(r.out, "error: %v\n", err) //nolint:errcheck // best-effort reply
			continue
		}
		if reply != "" {
			fmt.Fprintln(r.out, reply) //nolint:errcheck // best-effort reply
		}
	}

	if err := scanner.Err(); err != nil && r.ctx.Err() == nil {
		r.getLogger().Warn("console input failed", "error", err)
	}
	r.getLogger().Debug("console reader stopped")
}
