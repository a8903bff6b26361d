package system

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const healthTimeout = 5 * time.Second

// healthCheck verifies the connections the controller holds.
//
// Telemetry clients are checked only when connected at startup.
//
// Returns:
//   - error: Every failing check, joined
func (c *Coordinator) healthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	var errs []error
	if c.db != nil {
		if err := c.db.HealthCheck(ctx); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	if c.mqtt != nil {
		if err := c.mqtt.HealthCheck(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mqtt: %w", err))
		}
	}
	if c.influx != nil {
		if err := c.influx.HealthCheck(ctx); err != nil {
			errs = append(errs, fmt.Errorf("influxdb: %w", err))
		}
	}
	return errors.Join(errs...)
}

// health is the health command: the result of each check plus pool and
// subscription counts.
func (c *Coordinator) health(ctx context.Context, _ []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	var parts []string
	if c.db != nil {
		parts = append(parts,
			"database="+checkResult(c.db.HealthCheck(ctx)),
			fmt.Sprintf("db_open=%d", c.db.Stats().OpenConnections),
		)
	}
	if c.mqtt != nil {
		parts = append(parts,
			"mqtt="+checkResult(c.mqtt.HealthCheck(ctx)),
			fmt.Sprintf("mqtt_subs=%d", c.mqtt.SubscriptionCount()),
		)
	} else {
		parts = append(parts, "mqtt=off")
	}
	if c.influx != nil {
		parts = append(parts, "influxdb="+checkResult(c.influx.HealthCheck(ctx)))
	} else {
		parts = append(parts, "influxdb=off")
	}
	return strings.Join(parts, " "), nil
}

func checkResult(err error) string {
	if err != nil {
		return "fail"
	}
	return "ok"
}
