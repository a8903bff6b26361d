package hall

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrAlreadyRunning is returned by Start on a running monitor.
var ErrAlreadyRunning = errors.New("hall: monitor already running")

// sinkTimeout bounds a single sink call.
const sinkTimeout = 5 * time.Second

// Reading is the pulse count over one sampling window.
type Reading struct {
	At        time.Time
	Pulses    uint64
	Window    time.Duration
	Frequency float64 // pulses per second
}

// NewReading computes the frequency for pulses counted over window.
func NewReading(at time.Time, pulses uint64, window time.Duration) Reading {
	r := Reading{At: at, Pulses: pulses, Window: window}
	if window > 0 {
		r.Frequency = float64(pulses) / window.Seconds()
	}
	return r
}

// PulseCounter is the source of pulses.
type PulseCounter interface {
	TakePulses() uint64
}

// Sink receives readings.
type Sink interface {
	RecordHallReading(ctx context.Context, r Reading) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, r Reading) error

// RecordHallReading calls f(ctx, r).
func (f SinkFunc) RecordHallReading(ctx context.Context, r Reading) error {
	return f(ctx, r)
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

// Monitor samples a PulseCounter every interval.
type Monitor struct {
	counter  PulseCounter
	interval time.Duration
	sinks    []Sink
	logger   Logger
	loggerMu sync.RWMutex
	now      func() time.Time

	mu      sync.Mutex
	running bool
	last    Reading
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewMonitor creates a monitor. Nil sinks are ignored.
func NewMonitor(counter PulseCounter, interval time.Duration, sinks ...Sink) *Monitor {
	m := &Monitor{
		counter:  counter,
		interval: interval,
		logger:   noopLogger{},
		now:      time.Now,
	}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// SetLogger sets the logger for the monitor.
func (m *Monitor) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	m.loggerMu.Lock()
	m.logger = logger
	m.loggerMu.Unlock()
}

func (m *Monitor) getLogger() Logger {
	m.loggerMu.RLock()
	defer m.loggerMu.RUnlock()
	return m.logger
}

// Start begins sampling until Stop or ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrAlreadyRunning
	}
	if m.interval <= 0 {
		return fmt.Errorf("hall: sample interval must be positive, got %s", m.interval)
	}

	// Pulses counted before Start belong to no window.
	m.counter.TakePulses()

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running = true

	go m.run(runCtx, m.done)

	m.getLogger().Info("hall monitor started", "interval", m.interval)
	return nil
}

// Stop ends sampling and waits for the loop to exit. Safe to call when not
// running.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	cancel()
	<-done
	m.getLogger().Info("hall monitor stopped")
}

// Last returns the most recent reading, zero before the first sample.
func (m *Monitor) Last() Reading {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Sample takes one reading now and hands it to every sink.
func (m *Monitor) Sample(ctx context.Context, window time.Duration) Reading {
	r := NewReading(m.now(), m.counter.TakePulses(), window)

	m.mu.Lock()
	m.last = r
	m.mu.Unlock()

	for _, s := range m.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, sinkTimeout)
		if err := s.RecordHallReading(sinkCtx, r); err != nil {
			m.getLogger().Warn("hall reading not recorded", "sink", fmt.Sprintf("%T", s), "error", err)
		}
		cancel()
	}

	m.getLogger().Debug("hall reading", "pulses", r.Pulses, "frequency_hz", r.Frequency)
	return r
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sample(ctx, m.interval)
		}
	}
}
