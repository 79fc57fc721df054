package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	zapobserver "go.uber.org/zap/zaptest/observer"
)

func decodeLine(t *testing.T, line string) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v\nOutput: %s", err, line)
	}
	return entry
}

func TestLogger_WithAttachesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).With(F("component", "sampler"))

	logger.Info(context.Background(), "alert raised", F("category", "memory"))

	entry := decodeLine(t, buf.String())
	if entry["component"] != "sampler" {
		t.Errorf("component = %v, want sampler", entry["component"])
	}
	if entry["category"] != "memory" {
		t.Errorf("category = %v, want memory", entry["category"])
	}
	if entry["msg"] != "alert raised" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
}

func TestLogger_WithDoesNotLeakIntoParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLoggerWithWriter("info", &buf)
	_ = parent.With(F("component", "recovery"))

	parent.Info(context.Background(), "plain")

	entry := decodeLine(t, buf.String())
	if _, ok := entry["component"]; ok {
		t.Error("parent logger picked up child fields")
	}
}

func TestLogger_ErrField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Error(context.Background(), "probe failed", Err(errors.New("connection timeout")))

	entry := decodeLine(t, buf.String())
	if entry["level"] != "error" {
		t.Errorf("level = %v, want error", entry["level"])
	}
	if entry["error"] != "connection timeout" {
		t.Errorf("error = %v, want connection timeout", entry["error"])
	}
}

func TestLogger_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf).With(F("dsn", "postgres://u:p@db/app"))

	logger.Info(context.Background(), "connecting", F("password", "hunter2"), F("host", "db"))

	out := buf.String()
	if strings.Contains(out, "hunter2") || strings.Contains(out, "u:p@db") {
		t.Errorf("secret leaked into log output: %s", out)
	}
	entry := decodeLine(t, out)
	if entry["password"] != "[REDACTED]" {
		t.Errorf("password = %v, want [REDACTED]", entry["password"])
	}
	if entry["host"] != "db" {
		t.Errorf("host = %v, want db", entry["host"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		log   func(Logger)
		want  bool
	}{
		{"info", func(l Logger) { l.Debug(context.Background(), "x") }, false},
		{"info", func(l Logger) { l.Info(context.Background(), "x") }, true},
		{"warn", func(l Logger) { l.Info(context.Background(), "x") }, false},
		{"warn", func(l Logger) { l.Warn(context.Background(), "x") }, true},
		{"error", func(l Logger) { l.Warn(context.Background(), "x") }, false},
		{"debug", func(l Logger) { l.Debug(context.Background(), "x") }, true},
	}

	for _, tc := range tests {
		var buf bytes.Buffer
		tc.log(NewLoggerWithWriter(tc.level, &buf))
		if got := buf.Len() > 0; got != tc.want {
			t.Errorf("level %s: wrote = %v, want %v", tc.level, got, tc.want)
		}
	}
}

func TestLogger_UnencodableField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "bad", F("ch", make(chan int)))

	entry := decodeLine(t, buf.String())
	if entry["msg"] != "bad" {
		t.Errorf("msg = %v, want bad", entry["msg"])
	}
	if _, ok := entry["log_error"]; !ok {
		t.Error("expected log_error field")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug": LevelDebug,
		"info":  LevelInfo,
		"warn":  LevelWarn,
		"error": LevelError,
		"bogus": LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestZapLogger(t *testing.T) {
	core, logs := zapobserver.New(zapcore.DebugLevel)
	logger := NewZapLogger(zap.New(core)).With(F("component", "registry"))

	logger.Warn(context.Background(), "probe degraded", F("target", "cache"), F("token", "abc"))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.WarnLevel {
		t.Errorf("level = %v, want warn", e.Level)
	}
	fields := e.ContextMap()
	if fields["component"] != "registry" {
		t.Errorf("component = %v", fields["component"])
	}
	if fields["target"] != "cache" {
		t.Errorf("target = %v", fields["target"])
	}
	if fields["token"] != "[REDACTED]" {
		t.Errorf("token = %v, want [REDACTED]", fields["token"])
	}
}

func TestNewZapLogger_Nil(t *testing.T) {
	logger := NewZapLogger(nil)
	logger.Info(context.Background(), "discarded")
	if logger.With(F("k", "v")) == nil {
		t.Error("With returned nil")
	}
}
