package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestFanoutHandler_DeliversToEnabledMembers(t *testing.T) {
	fan := NewFanoutHandler()
	verbose := newRecordingHandler(slog.LevelDebug)
	quiet := newRecordingHandler(slog.LevelWarn)
	fan.Set("verbose", verbose)
	fan.Set("quiet", quiet)

	logger := slog.New(fan)
	logger.Info("info")
	logger.Error("error")

	if got := len(verbose.messages()); got != 2 {
		t.Errorf("verbose got %d records, want 2", got)
	}
	if got := quiet.messages(); len(got) != 1 || got[0] != "error" {
		t.Errorf("quiet got %v, want [error]", got)
	}
}

func TestFanoutHandler_SetReplacesInPlace(t *testing.T) {
	fan := NewFanoutHandler()
	first := newRecordingHandler(slog.LevelDebug)
	second := newRecordingHandler(slog.LevelDebug)

	fan.Set("primary", first)
	fan.Set("primary", second)

	if fan.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", fan.Len())
	}

	slog.New(fan).Info("hello")
	if len(first.messages()) != 0 {
		t.Error("replaced member still received records")
	}
	if len(second.messages()) != 1 {
		t.Error("replacement member did not receive record")
	}
}

func TestFanoutHandler_EnabledWithNoMembers(t *testing.T) {
	fan := NewFanoutHandler()
	if fan.Enabled(context.Background(), slog.LevelError) {
		t.Error("Enabled() = true with no members")
	}
}

func TestFanoutHandler_WithAttrsAppliesToLaterMembers(t *testing.T) {
	fan := NewFanoutHandler()
	logger := slog.New(fan).With("component", "ui")

	late := newRecordingHandler(slog.LevelDebug)
	fan.Set("late", late)
	logger.Info("hello")

	records := late.all()
	if len(records) != 1 || records[0].attrs["component"] != "ui" {
		t.Errorf("late member records = %+v, want component=ui", records)
	}
}
