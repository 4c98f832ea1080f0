package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestInitLogger(t *testing.T) {
	InitLogger(false)
	if Logger == nil {
		t.Error("Logger should not be nil after initialization")
	}

	InitLogger(true)
	if Logger == nil {
		t.Error("Logger should not be nil after initialization")
	}
}

func TestInitLogger_ServiceField(t *testing.T) {
	var buf bytes.Buffer
	initLogger(&buf, true, slog.LevelInfo)

	Info("started")

	if !strings.Contains(buf.String(), `"service":"ebis"`) {
		t.Errorf("expected service field in output, got %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWithContext_RequestID(t *testing.T) {
	var buf bytes.Buffer
	Logger = slog.New(slog.NewTextHandler(&buf, nil))

	ctx := ContextWithRequestID(context.Background(), "req-123")
	WithContext(ctx).Info("handled")

	if !strings.Contains(buf.String(), "request_id=req-123") {
		t.Errorf("expected request_id field, got %s", buf.String())
	}

	buf.Reset()
	WithContext(context.Background()).Info("no id")
	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("unexpected request_id field, got %s", buf.String())
	}
}

func TestLoggingFunctions(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	Logger = slog.New(handler)

	t.Run("Info", func(t *testing.T) {
		buf.Reset()
		Info("test info message", "key", "value")
		if !strings.Contains(buf.String(), "test info message") {
			t.Error("Info should log the message")
		}
		if !strings.Contains(buf.String(), "key=value") {
			t.Error("Info should log the key-value pair")
		}
	})

	t.Run("Warn", func(t *testing.T) {
		buf.Reset()
		Warn("test warn message")
		if !strings.Contains(buf.String(), "WARN") {
			t.Error("Warn should log at WARN level")
		}
	})

	t.Run("Error", func(t *testing.T) {
		buf.Reset()
		Error("test error message")
		if !strings.Contains(buf.String(), "ERROR") {
			t.Error("Error should log at ERROR level")
		}
	})

	t.Run("Debug", func(t *testing.T) {
		buf.Reset()
		Debug("test debug message")
		if !strings.Contains(buf.String(), "DEBUG") {
			t.Error("Debug should log at DEBUG level")
		}
	})
}

func TestFieldLoggers(t *testing.T) {
	var buf bytes.Buffer
	Logger = slog.New(slog.NewTextHandler(&buf, nil))

	WithSymbol("IBM").Info("m")
	if !strings.Contains(buf.String(), "symbol=IBM") {
		t.Error("WithSymbol should add symbol field to logger")
	}

	buf.Reset()
	WithUser("42").Info("m")
	if !strings.Contains(buf.String(), "user_id=42") {
		t.Error("WithUser should add user_id field to logger")
	}

	buf.Reset()
	WithError(errors.New("boom")).Info("m")
	if !strings.Contains(buf.String(), "error=boom") {
		t.Error("WithError should add error field to logger")
	}
}

func TestLoggingWithNilLogger(t *testing.T) {
	Logger = nil
	Info("test message")

	Logger = nil
	_ = WithSymbol("IBM")

	Logger = nil
	_ = WithUser("1")

	Logger = nil
	_ = WithContext(context.Background())

	if Logger == nil {
		t.Error("Logger should be initialized lazily")
	}
}
