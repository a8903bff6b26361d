// Package system owns the controller's lifecycle.
//
// A Coordinator is built once in main and passed explicitly. Start acquires
// resources in a fixed order:
//
//	configuration -> timezone -> connection-pool -> data-layer ->
//	command-interface -> telemetry -> hardware -> ui
//
// and Shutdown releases them in a fixed order:
//
//	ui -> console -> hardware-drivers -> gpio -> telemetry ->
//	data-connection -> connection-pool -> logging
//
// Teardown runs at most once however many goroutines request it. Each
// teardown step is its own failure boundary: a failure is logged and the
// next step still runs. Steps whose resource was never acquired are skipped,
// so a failed startup releases exactly what it managed to acquire.
//
// Records logged before the configuration is loaded are held by the
// logger's deferred handler and written once the configured output exists.
package system
