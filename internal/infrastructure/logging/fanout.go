package logging

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// FanoutHandler sends each record to a set of named member handlers.
// Members can be added and removed while the handler is in use, which lets
// the database sink join once the pool exists and leave before it closes.
type FanoutHandler struct {
	core *fanoutCore
	ops  []handlerOp
}

type fanoutCore struct {
	mu      sync.RWMutex
	members []fanoutMember
}

type fanoutMember struct {
	name    string
	handler slog.Handler
}

// NewFanoutHandler creates an empty fan-out handler.
func NewFanoutHandler() *FanoutHandler {
	return &FanoutHandler{core: &fanoutCore{}}
}

// Set adds a member or replaces the member with the same name.
// Insertion order is preserved; a replaced member keeps its position.
func (f *FanoutHandler) Set(name string, h slog.Handler) {
	f.core.mu.Lock()
	defer f.core.mu.Unlock()

	// Copy on write: Handle iterates snapshots without holding the lock.
	members := make([]fanoutMember, len(f.core.members), len(f.core.members)+1)
	copy(members, f.core.members)

	for i := range members {
		if members[i].name == name {
			members[i].handler = h
			f.core.members = members
			return
		}
	}
	f.core.members = append(members, fanoutMember{name: name, handler: h})
}

// Remove drops the named member. It reports whether the member existed.
func (f *FanoutHandler) Remove(name string) bool {
	f.core.mu.Lock()
	defer f.core.mu.Unlock()

	for i := range f.core.members {
		if f.core.members[i].name == name {
			f.core.members = append(f.core.members[:i:i], f.core.members[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of members.
func (f *FanoutHandler) Len() int {
	f.core.mu.RLock()
	defer f.core.mu.RUnlock()
	return len(f.core.members)
}

func (f *FanoutHandler) snapshot() []fanoutMember {
	f.core.mu.RLock()
	defer f.core.mu.RUnlock()
	return f.core.members
}

// Enabled reports whether any member accepts records at level.
func (f *FanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, m := range f.snapshot() {
		if m.handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle passes a copy of r to every member that enables its level.
func (f *FanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, m := range f.snapshot() {
		if !m.handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := applyOps(m.handler, f.ops).Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs returns a handler that adds attrs to every record it handles.
func (f *FanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return f
	}
	return &FanoutHandler{core: f.core, ops: appendOp(f.ops, handlerOp{attrs: attrs})}
}

// WithGroup returns a handler that nests subsequent attributes under name.
func (f *FanoutHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return &FanoutHandler{core: f.core, ops: appendOp(f.ops, handlerOp{group: name})}
}
