// Package config loads the fbp controller configuration.
//
// Values are resolved in three layers: hardcoded defaults, then the YAML
// file, then FBP_* environment variables (FBP_DATABASE_PATH, FBP_MQTT_HOST,
// FBP_MQTT_USERNAME, FBP_MQTT_PASSWORD, FBP_INFLUXDB_TOKEN, FBP_TIMEZONE,
// FBP_LOG_LEVEL). Keep the MQTT password and InfluxDB token in the
// environment rather than the file, and the file itself at 0600.
//
// Validate reports every problem at once, including two peripherals wired
// to the same GPIO pin:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if errors.Is(err, config.ErrInvalidConfig) {
//	    // the file parsed but its values are wrong
//	}
package config
