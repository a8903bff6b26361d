package influxdb

import (
	"context"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/fbp-core/internal/hall"
	"github.com/nerrad567/fbp-core/internal/hardware"
)

// Measurement names.
const (
	MeasurementButtonEvents = "button_events"
	MeasurementHallReadings = "hall_readings"
)

// RecordButtonEvent queues a button_events point. It never blocks and never
// fails; write errors surface through SetOnError.
func (c *Client) RecordButtonEvent(_ context.Context, ev hardware.ButtonEvent) error {
	c.writePoint(buttonPoint(c.site, ev, time.Now()))
	return nil
}

// RecordHallReading queues a hall_readings point.
func (c *Client) RecordHallReading(_ context.Context, r hall.Reading) error {
	c.writePoint(hallPoint(c.site, r))
	return nil
}

// WritePoint writes a custom point stamped now.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	merged := map[string]string{"site": c.site}
	for k, v := range tags {
		merged[k] = v
	}
	c.writePoint(write.NewPoint(measurement, merged, fields, time.Now()))
}

func (c *Client) writePoint(p *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(p)
	c.points.Add(1)
}

// buttonPoint encodes ev. The state is a tag so presses and releases can be
// counted separately; the field is 1 for pressed and 0 for released.
func buttonPoint(site string, ev hardware.ButtonEvent, at time.Time) *write.Point {
	pressed := 0
	if ev.State == hardware.Pressed {
		pressed = 1
	}
	return write.NewPoint(
		MeasurementButtonEvents,
		map[string]string{
			"site":   site,
			"button": string(ev.Button),
			"state":  ev.State.String(),
		},
		map[string]interface{}{
			"pressed": pressed,
		},
		at,
	)
}

func hallPoint(site string, r hall.Reading) *write.Point {
	return write.NewPoint(
		MeasurementHallReadings,
		map[string]string{
			"site": site,
		},
		map[string]interface{}{
			"pulses":       r.Pulses,
			"frequency_hz": r.Frequency,
			"window_ms":    r.Window.Milliseconds(),
		},
		r.At,
	)
}
