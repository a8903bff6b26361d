// Package ui drives the front panel.
//
// Manager receives button events from the hardware dispatcher. LEFT and
// RIGHT presses move between screens, OK redraws the current one, and every
// event (press and release) is passed to the configured recorders for
// storage and telemetry.
package ui
