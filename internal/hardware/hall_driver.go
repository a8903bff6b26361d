package hardware

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// HallDriver counts falling edges from an open-collector hall sensor.
type HallDriver struct {
	pin         PinIn
	edgeTimeout time.Duration
	logger      Logger
	pulses      atomic.Uint64

	mu      sync.Mutex
	started bool
	closed  bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewHallDriver creates a driver for pin. Counting begins at Start.
func NewHallDriver(pin PinIn, logger Logger) *HallDriver {
	if logger == nil {
		logger = noopLogger{}
	}
	return &HallDriver{
		pin:         pin,
		edgeTimeout: defaultEdgeTimeout,
		logger:      logger,
		done:        make(chan struct{}),
	}
}

// Start configures the pin and begins counting.
func (h *HallDriver) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}
	if h.started {
		return ErrAlreadyStarted
	}
	if err := h.pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return fmt.Errorf("%w: hall sensor on %s: %v", ErrPinConfig, h.pin, err)
	}

	h.started = true
	h.wg.Add(1)
	go h.count()

	h.logger.Info("hall driver started", "pin", h.pin.String())
	return nil
}

// TakePulses returns the pulses counted since the previous call and resets
// the counter.
func (h *HallDriver) TakePulses() uint64 {
	return h.pulses.Swap(0)
}

// Close stops counting and halts the pin. Safe to call more than once.
func (h *HallDriver) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	close(h.done)
	err := h.pin.Halt()
	h.wg.Wait()

	if err != nil {
		h.logger.Warn("halting hall sensor failed", "pin", h.pin.String(), "error", err)
		return fmt.Errorf("halting hall sensor %s: %w", h.pin, err)
	}
	return nil
}

func (h *HallDriver) count() {
	defer h.wg.Done()

	for {
		select {
		case <-h.done:
			return
		default:
		}
		if h.pin.WaitForEdge(h.edgeTimeout) {
			h.pulses.Add(1)
		}
	}
}
