package hardware

import "sync"

// queuedEvent pairs an event with the handler captured for it.
type queuedEvent struct {
	handler EventHandler
	event   ButtonEvent
}

// eventQueue is an unbounded FIFO with a single consumer.
// push never blocks, so watcher goroutines are never held up by a slow handler.
type eventQueue struct {
	mu     sync.Mutex
	items  []queuedEvent
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{signal: make(chan struct{}, 1)}
}

func (q *eventQueue) push(item queuedEvent) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// drain removes and returns everything queued, oldest first.
func (q *eventQueue) drain() []queuedEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
