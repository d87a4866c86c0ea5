package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoggerAddsComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: FormatJSON, Output: &buf}).WithComponent(ComponentBot)

	logger.Info("event handled", FieldUserID, int64(7))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry[FieldComponent] != ComponentBot {
		t.Errorf("component = %v, want %s", entry[FieldComponent], ComponentBot)
	}
	if strings.Count(buf.String(), `"component"`) != 1 {
		t.Errorf("component repeated in %q", buf.String())
	}
	if entry[FieldUserID] != float64(7) {
		t.Errorf("user_id = %v, want 7", entry[FieldUserID])
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Format: FormatText, Output: &buf})

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestTintFormat(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Level: slog.LevelInfo, Format: FormatTint, Output: &buf}).Info("colored")
	if !strings.Contains(buf.String(), "colored") {
		t.Fatalf("tint handler wrote %q", buf.String())
	}
}

func TestContextRoundTrip(t *testing.T) {
	logger := New(DefaultConfig()).WithComponent(ComponentFlow)
	ctx := IntoContext(context.Background(), logger)
	if got := FromContext(ctx); got != logger {
		t.Fatal("expected stored logger")
	}
	if got := FromContext(context.Background()); got.Component() != "unknown" {
		t.Fatalf("fallback component = %q", got.Component())
	}
}
