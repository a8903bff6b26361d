// Package influxdb writes the controller's time series to InfluxDB v2.
//
// Two measurements are written, both tagged with the site ID:
//   - button_events: one point per button event (tags button, state)
//   - hall_readings: one point per sampling window (pulses, frequency_hz, window_ms)
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.SetOnError(func(err error) {
//	    logger.Warn("influxdb write failed", "error", err)
//	})
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval; Close flushes what is pending.
package influxdb
