// Package hall turns hall-sensor pulse counts into periodic readings.
//
// A Monitor samples a PulseCounter (normally *hardware.HallDriver) at a fixed
// interval and hands each Reading to its sinks: the data layer for storage
// and the telemetry clients for publishing. A failing sink is logged and the
// remaining sinks still receive the reading.
package hall
