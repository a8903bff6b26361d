package hardware

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// fakePin is an in-memory PinIn. Edges are injected with edge(level).
type fakePin struct {
	name    string
	inErr   error
	haltErr error

	mu     sync.Mutex
	level  gpio.Level
	pull   gpio.Pull
	mode   gpio.Edge
	inCall int
	halts  int

	edges    chan gpio.Level
	halted   chan struct{}
	haltOnce sync.Once
}

func newFakePin(name string, level gpio.Level) *fakePin {
	return &fakePin{
		name:   name,
		level:  level,
		edges:  make(chan gpio.Level, 256),
		halted: make(chan struct{}),
	}
}

func (p *fakePin) String() string { return p.name }

func (p *fakePin) Halt() error {
	p.mu.Lock()
	p.halts++
	p.mu.Unlock()
	p.haltOnce.Do(func() { close(p.halted) })
	return p.haltErr
}

func (p *fakePin) In(pull gpio.Pull, edge gpio.Edge) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inCall++
	if p.inErr != nil {
		return p.inErr
	}
	p.pull = pull
	p.mode = edge
	return nil
}

func (p *fakePin) Read() gpio.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

func (p *fakePin) WaitForEdge(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case level := <-p.edges:
		p.mu.Lock()
		p.level = level
		p.mu.Unlock()
		return true
	case <-p.halted:
		return false
	case <-timer.C:
		return false
	}
}

func (p *fakePin) edge(level gpio.Level) {
	p.edges <- level
}

func (p *fakePin) haltCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.halts
}

// recordingLogger captures log lines as "LEVEL msg".
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+msg)
}

func (l *recordingLogger) Debug(msg string, _ ...any) { l.add("DEBUG", msg) }
func (l *recordingLogger) Info(msg string, _ ...any)  { l.add("INFO", msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.add("WARN", msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.add("ERROR", msg) }

func (l *recordingLogger) count(line string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, got := range l.lines {
		if got == line {
			n++
		}
	}
	return n
}

func (l *recordingLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, got := range l.lines {
		if strings.Contains(got, substr) {
			return true
		}
	}
	return false
}

// collector is an EventHandler that records what it receives.
type collector struct {
	mu     sync.Mutex
	events []ButtonEvent
	notify chan struct{}
}

func newCollector() *collector {
	return &collector{notify: make(chan struct{}, 1024)}
}

func (c *collector) HandleButtonEvent(ev ButtonEvent) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	c.notify <- struct{}{}
}

func (c *collector) received() []ButtonEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ButtonEvent(nil), c.events...)
}

// waitFor blocks until n events have arrived or the timeout expires.
func (c *collector) waitFor(n int, timeout time.Duration) error {
	deadline := time.After(timeout)
	for {
		if len(c.received()) >= n {
			return nil
		}
		select {
		case <-c.notify:
		case <-deadline:
			return fmt.Errorf("got %d events, want %d", len(c.received()), n)
		}
	}
}

var errHalt = errors.New("line busy")
