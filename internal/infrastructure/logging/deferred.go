package logging

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// DeferredHandler is an slog.Handler that holds records until a real
// destination is attached.
//
// Before Attach, every record is cloned into an ordered buffer. Attach drains
// that buffer into the destination and switches the handler to pass-through,
// both under the same lock, so buffered records always reach the destination
// ahead of anything logged after Attach returns.
//
// Handlers derived with WithAttrs or WithGroup share the buffer and the
// destination with their parent.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type DeferredHandler struct {
	core *deferredCore
	ops  []handlerOp
}

type deferredCore struct {
	mu       sync.Mutex
	dest     slog.Handler
	pending  []pendingRecord
	minLevel slog.Leveler
}

type pendingRecord struct {
	ctx    context.Context //nolint:containedctx // replayed with the record it arrived with
	record slog.Record
	ops    []handlerOp
}

// NewDeferredHandler returns a handler that buffers records at or above
// minLevel until Attach is called. A nil minLevel buffers everything.
func NewDeferredHandler(minLevel slog.Leveler) *DeferredHandler {
	if minLevel == nil {
		minLevel = slog.LevelDebug
	}
	return &DeferredHandler{core: &deferredCore{minLevel: minLevel}}
}

// Enabled reports whether records at level are buffered or, once attached,
// accepted by the destination.
func (h *DeferredHandler) Enabled(ctx context.Context, level slog.Level) bool {
	h.core.mu.Lock()
	dest := h.core.dest
	h.core.mu.Unlock()

	if dest == nil {
		return level >= h.core.minLevel.Level()
	}
	return dest.Enabled(ctx, level)
}

// Handle forwards r to the destination, or buffers a copy of it when no
// destination has been attached yet.
func (h *DeferredHandler) Handle(ctx context.Context, r slog.Record) error {
	h.core.mu.Lock()
	dest := h.core.dest
	if dest == nil {
		h.core.pending = append(h.core.pending, pendingRecord{
			ctx:    ctx,
			record: r.Clone(),
			ops:    h.ops,
		})
		h.core.mu.Unlock()
		return nil
	}
	h.core.mu.Unlock()

	return applyOps(dest, h.ops).Handle(ctx, r)
}

// WithAttrs returns a handler that adds attrs to every record it handles.
func (h *DeferredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return &DeferredHandler{core: h.core, ops: appendOp(h.ops, handlerOp{attrs: attrs})}
}

// WithGroup returns a handler that nests subsequent attributes under name.
func (h *DeferredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &DeferredHandler{core: h.core, ops: appendOp(h.ops, handlerOp{group: name})}
}

// Attach sets the destination for all records.
//
// On the first call with a non-empty buffer, buffered records are replayed
// into dest in the order they were logged; records dest does not enable are
// skipped. The buffer is then released for good. Later calls only replace the
// destination for future records.
//
// Returns:
//   - error: Joined errors from replaying buffered records, or nil
func (h *DeferredHandler) Attach(dest slog.Handler) error {
	if dest == nil {
		return errors.New("logging: deferred handler destination must not be nil")
	}

	h.core.mu.Lock()
	defer h.core.mu.Unlock()

	var errs []error
	for _, p := range h.core.pending {
		target := applyOps(dest, p.ops)
		if !target.Enabled(p.ctx, p.record.Level) {
			continue
		}
		if err := target.Handle(p.ctx, p.record); err != nil {
			errs = append(errs, err)
		}
	}
	h.core.pending = nil
	h.core.dest = dest

	return errors.Join(errs...)
}

// Attached reports whether a destination has been set.
func (h *DeferredHandler) Attached() bool {
	h.core.mu.Lock()
	defer h.core.mu.Unlock()
	return h.core.dest != nil
}

// Pending returns the number of buffered records.
func (h *DeferredHandler) Pending() int {
	h.core.mu.Lock()
	defer h.core.mu.Unlock()
	return len(h.core.pending)
}

// handlerOp is one WithAttrs or WithGroup call, replayed onto whatever
// handler eventually receives the record.
type handlerOp struct {
	group string
	attrs []slog.Attr
}

// appendOp copies ops so derived handlers never share a backing array.
func appendOp(ops []handlerOp, op handlerOp) []handlerOp {
	out := make([]handlerOp, len(ops), len(ops)+1)
	copy(out, ops)
	return append(out, op)
}

func applyOps(h slog.Handler, ops []handlerOp) slog.Handler {
	for _, op := range ops {
		if op.group != "" {
			h = h.WithGroup(op.group)
		} else {
			h = h.WithAttrs(op.attrs)
		}
	}
	return h
}
