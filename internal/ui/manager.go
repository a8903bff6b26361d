package ui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/fbp-core/internal/hardware"
)

// recordTimeout bounds each recorder call on the dispatch goroutine.
const recordTimeout = 2 * time.Second

// ErrNoScreens is returned by Init when the manager has nothing to show.
var ErrNoScreens = errors.New("ui: no screens configured")

// Screen is one page of the front-panel display.
type Screen struct {
	Title string
	// Lines renders the body below the title.
	Lines func() []string
}

// EventRecorder stores or forwards button events.
type EventRecorder interface {
	RecordButtonEvent(ctx context.Context, ev hardware.ButtonEvent) error
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

// Manager implements hardware.EventHandler for the front panel.
type Manager struct {
	display   hardware.DisplayDriver
	screens   []Screen
	recorders []EventRecorder
	logger    Logger
	loggerMu  sync.RWMutex

	mu      sync.Mutex
	current int
	active  bool
}

var _ hardware.EventHandler = (*Manager)(nil)

// NewManager creates a manager. Nil recorders are ignored.
func NewManager(display hardware.DisplayDriver, screens []Screen, recorders ...EventRecorder) *Manager {
	m := &Manager{
		display: display,
		screens: screens,
		logger:  noopLogger{},
	}
	for _, r := range recorders {
		if r != nil {
			m.recorders = append(m.recorders, r)
		}
	}
	return m
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	m.loggerMu.Lock()
	m.logger = logger
	m.loggerMu.Unlock()
}

func (m *Manager) getLogger() Logger {
	m.loggerMu.RLock()
	defer m.loggerMu.RUnlock()
	return m.logger
}

// Init shows the first screen.
func (m *Manager) Init() error {
	if len(m.screens) == 0 {
		return ErrNoScreens
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = 0
	m.active = true
	return m.renderLocked()
}

// HandleButtonEvent records ev and updates the display.
func (m *Manager) HandleButtonEvent(ev hardware.ButtonEvent) {
	m.record(ev)

	if ev.State != hardware.Pressed {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active {
		m.getLogger().Debug("button event after ui shutdown", "event", ev.String())
		return
	}

	n := len(m.screens)
	switch ev.Button {
	case hardware.ButtonLeft:
		m.current = (m.current - 1 + n) % n
	case hardware.ButtonRight:
		m.current = (m.current + 1) % n
	case hardware.ButtonOK:
	default:
		m.getLogger().Debug("unhandled button", "button", string(ev.Button))
		return
	}

	if err := m.renderLocked(); err != nil {
		m.getLogger().Warn("rendering screen failed", "screen", m.screens[m.current].Title, "error", err)
	}
}

// Current returns the title of the screen on display.
func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.screens) == 0 {
		return ""
	}
	return m.screens[m.current].Title
}

// Shutdown clears the display. Events that arrive afterwards are still
// recorded but no longer drawn.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active {
		return nil
	}
	m.active = false
	if err := m.display.Clear(); err != nil {
		return fmt.Errorf("clearing display: %w", err)
	}
	return nil
}

func (m *Manager) renderLocked() error {
	screen := m.screens[m.current]
	lines := []string{fmt.Sprintf("%d/%d %s", m.current+1, len(m.screens), screen.Title)}
	if screen.Lines != nil {
		lines = append(lines, screen.Lines()...)
	}
	return m.display.Show(lines...)
}

func (m *Manager) record(ev hardware.ButtonEvent) {
	for _, r := range m.recorders {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		if err := r.RecordButtonEvent(ctx, ev); err != nil {
			m.getLogger().Warn("button event not recorded", "recorder", fmt.Sprintf("%T", r), "event", ev.String(), "error", err)
		}
		cancel()
	}
}
