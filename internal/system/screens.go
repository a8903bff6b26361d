package system

import (
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/fbp-core/internal/hardware"
	"github.com/nerrad567/fbp-core/internal/ui"
)

// screens builds the front-panel pages. Their contents are read when drawn.
func (c *Coordinator) screens() []ui.Screen {
	return []ui.Screen{
		{Title: c.cfg.Site.Name, Lines: func() []string {
			return []string{"up " + c.uptime()}
		}},
		{Title: "Clock", Lines: func() []string {
			return []string{time.Now().In(c.location).Format("15:04:05 MST")}
		}},
		{Title: "Hall", Lines: func() []string {
			return []string{c.hallSummary()}
		}},
		{Title: "Network", Lines: func() []string {
			return []string{"mqtt " + c.mqttState()}
		}},
	}
}

// status is the text of the status command.
func (c *Coordinator) status() string {
	parts := []string{
		"site=" + c.cfg.Site.ID,
		"version=" + c.opts.Version,
		"uptime=" + c.uptime(),
		"mqtt=" + c.mqttState(),
		"influxdb=" + c.influxState(),
		"hall=" + strings.ReplaceAll(c.hallSummary(), " ", ""),
	}
	if c.drivers != nil && c.drivers.Buttons != nil {
		var pressed []string
		for _, b := range hardware.Buttons {
			if c.drivers.Buttons.Pressed(b) {
				pressed = append(pressed, string(b))
			}
		}
		parts = append(parts, "pressed="+strings.Join(pressed, ","))
	}
	return strings.Join(parts, " ")
}

func (c *Coordinator) uptime() string {
	return time.Since(c.startedAt).Truncate(time.Second).String()
}

func (c *Coordinator) mqttState() string {
	switch {
	case c.mqtt == nil:
		return "off"
	case c.mqtt.IsConnected():
		return "online"
	default:
		return "offline"
	}
}

func (c *Coordinator) influxState() string {
	if c.influx == nil {
		return "off"
	}
	stats := c.influx.Stats()
	return fmt.Sprintf("%d/%d", stats.Points, stats.Errors)
}

func (c *Coordinator) hallSummary() string {
	if c.monitor == nil {
		return "n/a"
	}
	r := c.monitor.Last()
	if r.At.IsZero() {
		return "waiting"
	}
	return fmt.Sprintf("%.2f Hz", r.Frequency)
}
