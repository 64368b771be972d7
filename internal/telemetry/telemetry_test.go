package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLogLevel(t *testing.T) {
	tests := []struct {
		env  string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.env)
			if got := LogLevel(); got != tt.want {
				t.Errorf("LogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := WithCycleID(slog.New(NewHandler(&buf, "json", slog.LevelInfo)), "c-1")

	logger.Info("cycle completed", "sent", 2)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["cycle_id"] != "c-1" {
		t.Errorf("expected cycle_id attr, got %v", entry["cycle_id"])
	}
}

func TestFromContext(t *testing.T) {
	logger := slog.New(NewHandler(&bytes.Buffer{}, "text", slog.LevelInfo))
	ctx := WithLogger(context.Background(), logger)

	if FromContext(ctx) != logger {
		t.Error("expected logger from context")
	}
	if FromContext(context.Background()) != slog.Default() {
		t.Error("expected default logger without value in context")
	}
}

func TestNewMetrics_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.SendsTotal.WithLabelValues("sent").Inc()

	if got := testutil.ToFloat64(m.SendsTotal.WithLabelValues("sent")); got != 1 {
		t.Errorf("expected 1 send, got %v", got)
	}

	// Повторная регистрация в том же registry должна паниковать
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	NewMetrics(reg)
}
