package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/fbp-core/internal/hall"
	"github.com/nerrad567/fbp-core/internal/hardware"
)

// ErrClosed is returned by every operation after CloseConnection.
var ErrClosed = errors.New("data: connection closed")

// timeFormat is how timestamps are stored. It sorts lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Manager owns a dedicated database connection.
//
// Thread Safety:
//   - All methods are safe for concurrent use; statements are serialised on
//     the single connection.
type Manager struct {
	mu   sync.Mutex
	conn *sql.Conn
	now  func() time.Time
}

// Open takes a connection from db for the Manager's exclusive use.
//
// Parameters:
//   - ctx: Bounds acquiring the connection
//   - db: The shared pool
//
// Returns:
//   - *Manager: Ready to record
//   - error: If no connection could be obtained
func Open(ctx context.Context, db *sql.DB) (*Manager, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring data connection: %w", err)
	}
	return &Manager{conn: conn, now: time.Now}, nil
}

// RecordButtonEvent stores ev with the current time.
func (m *Manager) RecordButtonEvent(ctx context.Context, ev hardware.ButtonEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return ErrClosed
	}
	_, err := m.conn.ExecContext(ctx,
		"INSERT INTO button_events (button, state, occurred_at) VALUES (?, ?, ?)",
		string(ev.Button), ev.State.String(), m.now().UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("recording button event %s: %w", ev, err)
	}
	return nil
}

// CountButtonEvents returns how many events have been stored for button.
func (m *Manager) CountButtonEvents(ctx context.Context, button hardware.ButtonID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return 0, ErrClosed
	}
	var n int
	err := m.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM button_events WHERE button = ?", string(button),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting button events: %w", err)
	}
	return n, nil
}

// RecordHallReading stores r.
func (m *Manager) RecordHallReading(ctx context.Context, r hall.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return ErrClosed
	}
	_, err := m.conn.ExecContext(ctx,
		"INSERT INTO hall_readings (pulses, frequency, window_ms, recorded_at) VALUES (?, ?, ?, ?)",
		int64(r.Pulses), r.Frequency, r.Window.Milliseconds(), r.At.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("recording hall reading: %w", err)
	}
	return nil
}

// RecentHallReadings returns up to n readings, newest first.
func (m *Manager) RecentHallReadings(ctx context.Context, n int) ([]hall.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return nil, ErrClosed
	}
	rows, err := m.conn.QueryContext(ctx,
		`SELECT pulses, frequency, window_ms, recorded_at FROM hall_readings
		 ORDER BY recorded_at DESC, id DESC LIMIT ?`, n,
	)
	if err != nil {
		return nil, fmt.Errorf("querying hall readings: %w", err)
	}
	defer rows.Close()

	var readings []hall.Reading
	for rows.Next() {
		var (
			r        hall.Reading
			pulses   int64
			windowMS int64
			at       string
		)
		if err := rows.Scan(&pulses, &r.Frequency, &windowMS, &at); err != nil {
			return nil, fmt.Errorf("scanning hall reading: %w", err)
		}
		r.Pulses = uint64(pulses) //nolint:gosec // CHECK constraint keeps pulses non-negative
		r.Window = time.Duration(windowMS) * time.Millisecond
		if r.At, err = time.Parse(timeFormat, at); err != nil {
			return nil, fmt.Errorf("parsing hall reading time %q: %w", at, err)
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating hall readings: %w", err)
	}
	return readings, nil
}

// CloseConnection returns the connection to the pool. Later calls do nothing.
func (m *Manager) CloseConnection() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return nil
	}
	err := m.conn.Close()
	m.conn = nil
	if err != nil {
		return fmt.Errorf("closing data connection: %w", err)
	}
	return nil
}
