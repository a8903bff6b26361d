package hardware

import (
	"strings"
	"sync"
)

// DisplayDriver renders text frames.
type DisplayDriver interface {
	Show(lines ...string) error
	Clear() error
	Close() error
}

// LogDisplay is a headless text display. Each frame is clipped to the
// configured geometry and written to the log.
type LogDisplay struct {
	columns int
	rows    int
	logger  Logger

	mu     sync.Mutex
	frame  []string
	closed bool
}

var _ DisplayDriver = (*LogDisplay)(nil)

// NewLogDisplay creates a display of columns x rows characters.
func NewLogDisplay(columns, rows int, logger Logger) *LogDisplay {
	if logger == nil {
		logger = noopLogger{}
	}
	return &LogDisplay{
		columns: columns,
		rows:    rows,
		logger:  logger,
		frame:   make([]string, rows),
	}
}

// Show replaces the frame. Extra lines are ignored and long lines clipped.
func (d *LogDisplay) Show(lines ...string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}

	frame := make([]string, d.rows)
	for i := 0; i < d.rows && i < len(lines); i++ {
		frame[i] = clip(lines[i], d.columns)
	}
	d.frame = frame
	d.logger.Info("display", "frame", strings.Join(frame, " | "))
	return nil
}

// Clear blanks the frame.
func (d *LogDisplay) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	d.frame = make([]string, d.rows)
	return nil
}

// Frame returns a copy of the current frame.
func (d *LogDisplay) Frame() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.frame...)
}

// Close blanks the display and rejects later frames.
func (d *LogDisplay) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frame = make([]string, d.rows)
	d.closed = true
	return nil
}

func clip(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		return string(r[:width])
	}
	return s
}
