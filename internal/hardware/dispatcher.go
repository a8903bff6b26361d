package hardware

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// defaultEdgeTimeout bounds each WaitForEdge call so watchers notice Close
// even on hosts where Halt does not interrupt a pending wait.
const defaultEdgeTimeout = 250 * time.Millisecond

// LineConfig binds a button to an already acquired pin.
type LineConfig struct {
	Button ButtonID
	Pin    PinIn
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithActiveHigh maps a high level to Pressed and selects a pull-down.
// The default is active-low with a pull-up, the usual wiring for a button
// that shorts the line to ground.
func WithActiveHigh() DispatcherOption {
	return func(d *Dispatcher) {
		d.activeLow = false
	}
}

// WithEdgeTimeout sets how long a watcher blocks in WaitForEdge before
// checking for shutdown.
func WithEdgeTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.edgeTimeout = timeout
		}
	}
}

// WithLogger sets the dispatcher's logger.
func WithLogger(logger Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// inputLine is one button and its pin. Only the dispatcher touches the pin.
type inputLine struct {
	button  ButtonID
	pin     PinIn
	pressed atomic.Bool
}

// handlerSlot boxes an EventHandler for atomic.Pointer.
type handlerSlot struct {
	handler EventHandler
}

// Dispatcher delivers button events to the attached EventHandler.
//
// Thread Safety:
//   - AttachHandler and DetachHandler may be called from any goroutine at
//     any time, including while events are flowing.
//   - The handler slot is read once per edge, on the watcher goroutine that
//     captured it. The event goes to that handler or, if none was attached,
//     is dropped.
//   - Handlers are invoked from a single dispatch goroutine in capture order.
type Dispatcher struct {
	lines       []*inputLine
	slot        atomic.Pointer[handlerSlot]
	queue       *eventQueue
	activeLow   bool
	edgeTimeout time.Duration
	logger      Logger
	loggerMu    sync.RWMutex

	mu      sync.Mutex
	started bool
	closed  bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher for the given lines. Pins are not
// configured until Start.
func NewDispatcher(lines []LineConfig, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		lines:       make([]*inputLine, 0, len(lines)),
		queue:       newEventQueue(),
		activeLow:   true,
		edgeTimeout: defaultEdgeTimeout,
		logger:      noopLogger{},
		done:        make(chan struct{}),
	}
	for _, lc := range lines {
		d.lines = append(d.lines, &inputLine{button: lc.Button, pin: lc.Pin})
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	d.loggerMu.Lock()
	d.logger = logger
	d.loggerMu.Unlock()
}

func (d *Dispatcher) getLogger() Logger {
	d.loggerMu.RLock()
	defer d.loggerMu.RUnlock()
	return d.logger
}

// AttachHandler makes h the destination for subsequently captured events.
// Attaching nil is the same as DetachHandler.
func (d *Dispatcher) AttachHandler(h EventHandler) {
	if h == nil {
		d.slot.Store(nil)
		return
	}
	d.slot.Store(&handlerSlot{handler: h})
}

// DetachHandler clears the handler. Events already captured for the previous
// handler are still delivered to it.
func (d *Dispatcher) DetachHandler() {
	d.slot.Store(nil)
}

// Start configures every line for interrupts on both edges and begins
// watching them.
//
// Returns:
//   - error: ErrAlreadyStarted on a second call, ErrClosed after Close,
//     or ErrPinConfig if a line cannot be configured
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if d.started {
		return ErrAlreadyStarted
	}

	pull := gpio.PullUp
	if !d.activeLow {
		pull = gpio.PullDown
	}
	for _, line := range d.lines {
		if err := line.pin.In(pull, gpio.BothEdges); err != nil {
			return fmt.Errorf("%w: %s on %s: %v", ErrPinConfig, line.button, line.pin, err)
		}
		line.pressed.Store(d.stateFor(line.pin.Read()) == Pressed)
	}

	d.started = true
	d.wg.Add(len(d.lines) + 1)
	go d.dispatchLoop()
	for _, line := range d.lines {
		go d.watch(line)
	}

	d.getLogger().Info("button dispatcher started", "lines", len(d.lines), "active_low", d.activeLow)
	return nil
}

// Close stops the watchers, halts every line and discards undelivered
// events. It is safe to call without Start and more than once.
//
// Returns:
//   - error: Every halt failure, joined; halting continues past failures
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	close(d.done)

	var errs []error
	for _, line := range d.lines {
		if err := line.pin.Halt(); err != nil {
			d.getLogger().Warn("halting button line failed", "button", line.button, "pin", line.pin.String(), "error", err)
			errs = append(errs, fmt.Errorf("halting %s (%s): %w", line.button, line.pin, err))
		}
	}

	d.wg.Wait()

	if dropped := len(d.queue.drain()); dropped > 0 {
		d.getLogger().Debug("discarding undelivered button events", "count", dropped)
	}
	d.getLogger().Info("button dispatcher stopped")
	return errors.Join(errs...)
}

// Pressed reports the last observed state of a button.
func (d *Dispatcher) Pressed(button ButtonID) bool {
	for _, line := range d.lines {
		if line.button == button {
			return line.pressed.Load()
		}
	}
	return false
}

// stateFor maps a raw level to a logical state.
func (d *Dispatcher) stateFor(level gpio.Level) ButtonState {
	if (level == gpio.Low) == d.activeLow {
		return Pressed
	}
	return Released
}

// deliver captures the current handler for an edge on line and queues the
// event for it. It reports whether the event was queued.
func (d *Dispatcher) deliver(line *inputLine, level gpio.Level) bool {
	ev := ButtonEvent{Button: line.button, State: d.stateFor(level)}
	line.pressed.Store(ev.State == Pressed)

	slot := d.slot.Load()
	if slot == nil {
		d.getLogger().Debug("button event dropped: no handler attached", "button", ev.Button, "state", ev.State.String())
		return false
	}
	d.queue.push(queuedEvent{handler: slot.handler, event: ev})
	return true
}

// watch services edges on one line until Close.
func (d *Dispatcher) watch(line *inputLine) {
	defer d.wg.Done()

	for {
		select {
		case <-d.done:
			return
		default:
		}

		if !line.pin.WaitForEdge(d.edgeTimeout) {
			continue
		}

		select {
		case <-d.done:
			return
		default:
		}
		d.deliver(line, line.pin.Read())
	}
}

// dispatchLoop hands queued events to their handlers, one at a time.
func (d *Dispatcher) dispatchLoop() {
	defer d.wg.Done()

	for {
		select {
		case <-d.done:
			return
		case <-d.queue.signal:
		}

		for _, item := range d.queue.drain() {
			select {
			case <-d.done:
				d.getLogger().Debug("discarding button event at shutdown", "event", item.event.String())
				continue
			default:
			}
			d.invoke(item)
		}
	}
}

func (d *Dispatcher) invoke(item queuedEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.getLogger().Error("button handler panicked", "event", item.event.String(), "panic", r)
		}
	}()
	item.handler.HandleButtonEvent(item.event)
}
