// Package hardware owns the controller's GPIO and the drivers built on it.
//
// # Architecture
//
//	┌────────────┐  Pin()   ┌────────────┐  edges   ┌────────────┐  events  ┌──────────┐
//	│ Controller │─────────►│ Dispatcher │─────────►│ FIFO queue │─────────►│ handler  │
//	│  (periph)  │          │  watchers  │          │ (unbounded)│          │ (ui pkg) │
//	└────────────┘          └────────────┘          └────────────┘          └──────────┘
//
// The Controller initialises the periph host drivers once and hands out pins
// by name. The Dispatcher turns edges on the three button lines into
// ButtonEvent values and delivers them, one at a time and in capture order, to
// whichever EventHandler was attached when the edge was captured. An event
// captured while no handler is attached is dropped and logged at debug level.
//
// # Lifecycle
//
// Drivers are closed before the Controller is shut down. Both are safe to
// close more than once, and both halt every pin even when halting one fails.
//
// # Thread Safety
//
// All exported types are safe for concurrent use from multiple goroutines.
// Handlers run on the Dispatcher's single dispatch goroutine and must not
// block for long.
//
// # References
//
//   - periph: https://periph.io
package hardware
