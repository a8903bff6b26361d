package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/fbp-core/internal/hall"
	"github.com/nerrad567/fbp-core/internal/hardware"
)

// ButtonEventMessage is the payload published for a button event.
type ButtonEventMessage struct {
	Button    string `json:"button"`
	State     string `json:"state"`
	Timestamp string `json:"timestamp"`
}

// HallMessage is the payload published for a hall reading.
type HallMessage struct {
	Pulses      uint64  `json:"pulses"`
	FrequencyHz float64 `json:"frequency_hz"`
	WindowMS    int64   `json:"window_ms"`
	Timestamp   string  `json:"timestamp"`
}

// CommandMessage is the JSON form of a remote command. A plain-text payload
// is taken as the command line itself. ID is echoed in the reply; one is
// generated when the sender omits it.
type CommandMessage struct {
	ID      string `json:"id,omitempty"`
	Command string `json:"command"`
}

// CommandReplyMessage is published after a remote command runs.
type CommandReplyMessage struct {
	ID      string `json:"id"`
	Command string `json:"command"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CommandExecutor runs a command line and returns its output.
type CommandExecutor func(ctx context.Context, line string) (string, error)

// RecordButtonEvent publishes ev on the button event topic.
func (c *Client) RecordButtonEvent(_ context.Context, ev hardware.ButtonEvent) error {
	return c.PublishJSON(c.topics.ButtonEvent(), ButtonEventMessage{
		Button:    string(ev.Button),
		State:     ev.State.String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}, false)
}

// RecordHallReading publishes r, retained so dashboards see the latest value.
func (c *Client) RecordHallReading(_ context.Context, r hall.Reading) error {
	return c.PublishJSON(c.topics.Hall(), HallMessage{
		Pulses:      r.Pulses,
		FrequencyHz: r.Frequency,
		WindowMS:    r.Window.Milliseconds(),
		Timestamp:   r.At.UTC().Format(time.RFC3339Nano),
	}, true)
}

// SubscribeCommands runs every message on the command topic through exec
// and publishes the outcome on the reply topic.
func (c *Client) SubscribeCommands(exec CommandExecutor) error {
	if exec == nil {
		return fmt.Errorf("%w: executor cannot be nil", ErrSubscribeFailed)
	}

	return c.Subscribe(c.topics.Command(), byte(c.cfg.QoS), func(_ string, payload []byte) error {
		cmd, err := ParseCommand(payload)
		if err != nil {
			return err
		}
		line := cmd.Command

		ctx, cancel := context.WithTimeout(context.Background(), defaultPublishTimeout)
		defer cancel()

		reply := CommandReplyMessage{ID: cmd.ID, Command: line}
		out, execErr := exec(ctx, line)
		reply.Output = out
		if execErr != nil {
			reply.Error = execErr.Error()
		}
		if err := c.PublishJSON(c.topics.CommandReply(), reply, false); err != nil {
			return fmt.Errorf("publishing reply to %q: %w", line, err)
		}
		return execErr
	})
}

// ParseCommand decodes a plain-text or JSON command payload. The returned
// message always has an ID.
func ParseCommand(payload []byte) (CommandMessage, error) {
	var msg CommandMessage
	text := strings.TrimSpace(string(payload))
	if strings.HasPrefix(text, "{") {
		if err := json.Unmarshal([]byte(text), &msg); err != nil {
			return CommandMessage{}, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
		}
		text = msg.Command
	}
	msg.Command = strings.TrimSpace(text)
	if msg.Command == "" {
		return CommandMessage{}, fmt.Errorf("%w: empty command", ErrInvalidCommand)
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	return msg, nil
}
