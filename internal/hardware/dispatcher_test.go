package hardware

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
	"periph.io/x/conn/v3/gpio"
)

func newTestDispatcher(t *testing.T, opts ...DispatcherOption) (*Dispatcher, map[ButtonID]*fakePin) {
	t.Helper()
	pins := map[ButtonID]*fakePin{
		ButtonOK:    newFakePin("GPIO17", gpio.High),
		ButtonLeft:  newFakePin("GPIO27", gpio.High),
		ButtonRight: newFakePin("GPIO22", gpio.High),
	}
	lines := []LineConfig{
		{Button: ButtonOK, Pin: pins[ButtonOK]},
		{Button: ButtonLeft, Pin: pins[ButtonLeft]},
		{Button: ButtonRight, Pin: pins[ButtonRight]},
	}
	opts = append([]DispatcherOption{WithEdgeTimeout(5 * time.Millisecond)}, opts...)
	return NewDispatcher(lines, opts...), pins
}

func TestDispatcher_LevelMapping(t *testing.T) {
	tests := []struct {
		name  string
		opts  []DispatcherOption
		level gpio.Level
		want  ButtonState
	}{
		{"active-low low", nil, gpio.Low, Pressed},
		{"active-low high", nil, gpio.High, Released},
		{"active-high high", []DispatcherOption{WithActiveHigh()}, gpio.High, Pressed},
		{"active-high low", []DispatcherOption{WithActiveHigh()}, gpio.Low, Released},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newTestDispatcher(t, tt.opts...)
			d.AttachHandler(newCollector())

			if !d.deliver(d.lines[0], tt.level) {
				t.Fatal("deliver() = false with handler attached")
			}
			queued := d.queue.drain()
			if len(queued) != 1 {
				t.Fatalf("queued %d events, want 1", len(queued))
			}
			want := ButtonEvent{Button: ButtonOK, State: tt.want}
			if queued[0].event != want {
				t.Errorf("event = %v, want %v", queued[0].event, want)
			}
		})
	}
}

func TestDispatcher_DropsWithoutHandler(t *testing.T) {
	logger := &recordingLogger{}
	d, _ := newTestDispatcher(t, WithLogger(logger))

	if d.deliver(d.lines[1], gpio.Low) {
		t.Error("deliver() = true with no handler")
	}
	if n := d.queue.len(); n != 0 {
		t.Errorf("queue length = %d, want 0", n)
	}
	if got := logger.count("DEBUG button event dropped: no handler attached"); got != 1 {
		t.Errorf("drop logged %d times, want 1", got)
	}
}

func TestDispatcher_HandlerCapturedAtEdgeTime(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	d, _ := newTestDispatcher(t)
	first, second := newCollector(), newCollector()

	d.AttachHandler(first)
	d.deliver(d.lines[0], gpio.Low)
	d.DetachHandler()
	d.deliver(d.lines[0], gpio.High)
	d.AttachHandler(second)
	d.deliver(d.lines[0], gpio.Low)

	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := first.waitFor(1, time.Second); err != nil {
		t.Fatal(err)
	}
	if err := second.waitFor(1, time.Second); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	want := ButtonEvent{Button: ButtonOK, State: Pressed}
	if got := first.received(); len(got) != 1 || got[0] != want {
		t.Errorf("first handler got %v, want [%v]", got, want)
	}
	if got := second.received(); len(got) != 1 || got[0] != want {
		t.Errorf("second handler got %v, want [%v]", got, want)
	}
}

func TestDispatcher_DeliversEdgesInOrder(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	d, pins := newTestDispatcher(t)
	c := newCollector()
	d.AttachHandler(c)

	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	const presses = 20
	for i := 0; i < presses; i++ {
		pins[ButtonLeft].edge(gpio.Low)
		pins[ButtonLeft].edge(gpio.High)
	}
	if err := c.waitFor(2*presses, 2*time.Second); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	for i, ev := range c.received() {
		want := Pressed
		if i%2 == 1 {
			want = Released
		}
		if ev.Button != ButtonLeft || ev.State != want {
			t.Fatalf("event %d = %v, want LEFT %v", i, ev, want)
		}
	}
}

func TestDispatcher_PerButtonOrderAcrossLines(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	d, pins := newTestDispatcher(t)
	c := newCollector()
	d.AttachHandler(c)
	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	const presses = 10
	var wg sync.WaitGroup
	for _, id := range Buttons {
		wg.Add(1)
		go func(pin *fakePin) {
			defer wg.Done()
			for i := 0; i < presses; i++ {
				pin.edge(gpio.Low)
				pin.edge(gpio.High)
			}
		}(pins[id])
	}
	wg.Wait()

	total := len(Buttons) * presses * 2
	if err := c.waitFor(total, 2*time.Second); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	next := map[ButtonID]ButtonState{ButtonOK: Pressed, ButtonLeft: Pressed, ButtonRight: Pressed}
	for _, ev := range c.received() {
		if ev.State != next[ev.Button] {
			t.Fatalf("%s: got %v out of order", ev.Button, ev.State)
		}
		if ev.State == Pressed {
			next[ev.Button] = Released
		} else {
			next[ev.Button] = Pressed
		}
	}
}

// TestDispatcher_ConcurrentAttachDetach swaps handlers while three lines
// capture events. Each attach installs a fresh collector; every event must
// reach exactly the collector that held the slot when it was captured, or
// be dropped if the slot was empty.
func TestDispatcher_ConcurrentAttachDetach(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	logger := &recordingLogger{}
	d, _ := newTestDispatcher(t, WithLogger(logger))
	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	const events = 100
	const toggles = 10

	collectors := make([]*collector, 0, toggles/2)
	// slotMu orders captures against swaps so each capture sees a known
	// generation. Captures on different lines still run concurrently.
	var slotMu sync.RWMutex
	current := -1
	want := make([]map[ButtonID]int, toggles/2)
	for i := range want {
		want[i] = make(map[ButtonID]int)
	}
	var wantMu sync.Mutex

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < toggles; i++ {
			slotMu.Lock()
			if i%2 == 0 {
				c := newCollector()
				collectors = append(collectors, c)
				current = len(collectors) - 1
				d.AttachHandler(c)
			} else {
				current = -1
				d.DetachHandler()
			}
			slotMu.Unlock()
			time.Sleep(100 * time.Microsecond)
		}
	}()

	var delivered, dropped int
	var countMu sync.Mutex
	for p, line := range d.lines {
		wg.Add(1)
		go func(p int, line *inputLine) {
			defer wg.Done()
			for i := p; i < events; i += len(d.lines) {
				level := gpio.Low
				if (i/len(d.lines))%2 == 1 {
					level = gpio.High
				}

				slotMu.RLock()
				gen := current
				queued := d.deliver(line, level)
				slotMu.RUnlock()

				if queued != (gen >= 0) {
					t.Errorf("event %d: queued = %v with generation %d", i, queued, gen)
				}
				countMu.Lock()
				if queued {
					delivered++
				} else {
					dropped++
				}
				countMu.Unlock()
				if queued {
					wantMu.Lock()
					want[gen][line.button]++
					wantMu.Unlock()
				}
				time.Sleep(20 * time.Microsecond)
			}
		}(p, line)
	}
	wg.Wait()

	for k, c := range collectors {
		total := 0
		for _, n := range want[k] {
			total += n
		}
		if err := c.waitFor(total, 2*time.Second); err != nil {
			t.Fatalf("collector %d: %v", k, err)
		}
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if got := logger.count("DEBUG button event dropped: no handler attached"); got != dropped {
		t.Errorf("logged %d drops, counted %d", got, dropped)
	}
	if delivered+dropped != events {
		t.Errorf("delivered %d + dropped %d != %d", delivered, dropped, events)
	}

	union := 0
	for k, c := range collectors {
		got := make(map[ButtonID]int)
		for _, ev := range c.received() {
			got[ev.Button]++
		}
		union += len(c.received())
		for _, b := range Buttons {
			if got[b] != want[k][b] {
				t.Errorf("collector %d got %d %s events, want %d captured while attached", k, got[b], b, want[k][b])
			}
		}
	}
	if union != events-dropped {
		t.Errorf("collectors received %d events, want %d", union, events-dropped)
	}
}

func TestDispatcher_HandlerPanicRecovered(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	logger := &recordingLogger{}
	d, pins := newTestDispatcher(t, WithLogger(logger))
	c := newCollector()
	calls := 0
	d.AttachHandler(EventHandlerFunc(func(ev ButtonEvent) {
		calls++
		if calls == 1 {
			panic("boom")
		}
		c.HandleButtonEvent(ev)
	}))

	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	pins[ButtonRight].edge(gpio.Low)
	pins[ButtonRight].edge(gpio.High)

	if err := c.waitFor(1, time.Second); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if !logger.contains("button handler panicked") {
		t.Error("panic was not logged")
	}
	if got := c.received(); got[0] != (ButtonEvent{Button: ButtonRight, State: Released}) {
		t.Errorf("event after panic = %v", got[0])
	}
}

func TestDispatcher_StartTwice(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	d, pins := newTestDispatcher(t)
	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := d.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	for id, pin := range pins {
		if pin.inCall != 1 {
			t.Errorf("%s configured %d times, want 1", id, pin.inCall)
		}
		if pin.pull != gpio.PullUp || pin.mode != gpio.BothEdges {
			t.Errorf("%s configured with pull=%v edge=%v", id, pin.pull, pin.mode)
		}
	}
}

func TestDispatcher_StartReportsPinConfigFailure(t *testing.T) {
	d, pins := newTestDispatcher(t)
	pins[ButtonLeft].inErr = errors.New("export failed")

	if err := d.Start(); !errors.Is(err, ErrPinConfig) {
		t.Errorf("Start() error = %v, want ErrPinConfig", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestDispatcher_CloseWithoutStart(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	d, pins := newTestDispatcher(t)
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	for id, pin := range pins {
		if pin.haltCount() != 1 {
			t.Errorf("%s halted %d times, want 1", id, pin.haltCount())
		}
	}
	if err := d.Start(); !errors.Is(err, ErrClosed) {
		t.Errorf("Start() after Close error = %v, want ErrClosed", err)
	}
}

func TestDispatcher_CloseHaltsEveryLineDespiteFailure(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	logger := &recordingLogger{}
	d, pins := newTestDispatcher(t, WithLogger(logger))
	pins[ButtonOK].haltErr = errHalt

	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	err := d.Close()
	if !errors.Is(err, errHalt) {
		t.Errorf("Close() error = %v, want wrapped halt error", err)
	}

	for id, pin := range pins {
		if pin.haltCount() != 1 {
			t.Errorf("%s halted %d times, want 1", id, pin.haltCount())
		}
	}
	if logger.count("WARN halting button line failed") != 1 {
		t.Error("halt failure not logged")
	}
}

func TestDispatcher_Pressed(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.deliver(d.lines[0], gpio.Low)
	if !d.Pressed(ButtonOK) {
		t.Error("Pressed(OK) = false after low level")
	}
	d.deliver(d.lines[0], gpio.High)
	if d.Pressed(ButtonOK) {
		t.Error("Pressed(OK) = true after high level")
	}
	if d.Pressed("MENU") {
		t.Error("Pressed(unknown) = true")
	}
}

func TestButtonState_String(t *testing.T) {
	tests := []struct {
		state ButtonState
		want  string
	}{
		{Pressed, "PRESSED"},
		{Released, "RELEASED"},
		{ButtonState(7), "ButtonState(7)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestDispatcher_SetLoggerWhileRunning(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	d, pins := newTestDispatcher(t)
	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				d.SetLogger(&recordingLogger{})
			}
		}
	}()

	// No handler is attached, so every edge logs a drop.
	for i := 0; i < 20; i++ {
		pins[ButtonOK].edge(gpio.Low)
		pins[ButtonOK].edge(gpio.High)
	}
	time.Sleep(20 * time.Millisecond)
	close(stop)
	wg.Wait()

	d.SetLogger(nil)
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}
