package main

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/jonwraymond/healthops/config"
)

func TestNewZapLogger(t *testing.T) {
	logger, err := newZapLogger(config.LogConfig{Level: "warn"})
	if err != nil {
		t.Fatalf("newZapLogger: %v", err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info enabled at warn level")
	}
	if !logger.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn disabled at warn level")
	}

	if _, err := newZapLogger(config.LogConfig{Level: "verbose"}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("HEALTHOPSD_TEST_PATH", "")
	if got := envOr("HEALTHOPSD_TEST_PATH", "fallback"); got != "fallback" {
		t.Errorf("envOr(empty) = %q, want fallback", got)
	}
	t.Setenv("HEALTHOPSD_TEST_PATH", "/etc/healthops.yaml")
	if got := envOr("HEALTHOPSD_TEST_PATH", "fallback"); got != "/etc/healthops.yaml" {
		t.Errorf("envOr(set) = %q", got)
	}
}
