package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// LogSinkName is the name the database sink is registered under in the logger.
const LogSinkName = "database"

// logWriteTimeout bounds a single log insert so a locked database cannot
// stall the goroutine that logged.
const logWriteTimeout = 2 * time.Second

// LogHandler is an slog.Handler that stores records in the log_entries table.
//
// It never logs its own failures: they are returned from Handle, which slog
// discards, so a broken database cannot recurse into the logger.
type LogHandler struct {
	db     *sql.DB
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

// NewLogHandler creates a handler persisting records at or above level.
func NewLogHandler(db *sql.DB, level slog.Leveler) *LogHandler {
	return &LogHandler{db: db, level: level}
}

// Enabled reports whether level is persisted.
func (h *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle inserts r into log_entries.
func (h *LogHandler) Handle(ctx context.Context, r slog.Record) error {
	fields := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		fields[a.Key] = a.Value.Resolve().Any()
	}
	prefix := groupPrefix(h.groups)
	r.Attrs(func(a slog.Attr) bool {
		fields[prefix+a.Key] = attrValue(a.Value)
		return true
	})

	attrsJSON, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshalling log attributes: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logWriteTimeout)
	defer cancel()

	at := r.Time
	if at.IsZero() {
		at = time.Now()
	}

	_, err = h.db.ExecContext(writeCtx,
		"INSERT INTO log_entries (level, message, attrs, created_at) VALUES (?, ?, ?, ?)",
		r.Level.String(),
		r.Message,
		string(attrsJSON),
		at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting log entry: %w", err)
	}
	return nil
}

// WithAttrs returns a handler that adds attrs to every stored record.
func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	prefix := groupPrefix(h.groups)
	merged := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(merged, h.attrs)
	for _, a := range attrs {
		merged = append(merged, slog.Attr{Key: prefix + a.Key, Value: a.Value})
	}
	return &LogHandler{db: h.db, level: h.level, attrs: merged, groups: h.groups}
}

// WithGroup returns a handler that prefixes later attribute keys with name.
func (h *LogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	groups := make([]string, len(h.groups), len(h.groups)+1)
	copy(groups, h.groups)
	return &LogHandler{db: h.db, level: h.level, attrs: h.attrs, groups: append(groups, name)}
}

func groupPrefix(groups []string) string {
	var prefix string
	for _, g := range groups {
		prefix += g + "."
	}
	return prefix
}

// attrValue converts a value into something encoding/json renders sensibly.
func attrValue(v slog.Value) any {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindGroup:
		group := make(map[string]any)
		for _, a := range v.Group() {
			group[a.Key] = attrValue(a.Value)
		}
		return group
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return v.Any()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339Nano)
	default:
		return v.Any()
	}
}
