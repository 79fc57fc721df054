package health

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
		{Status(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestStatus_TextRoundTrip(t *testing.T) {
	data, err := json.Marshal(map[string]Status{"overall": StatusDegraded})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"overall":"degraded"}` {
		t.Errorf("Marshal() = %s", data)
	}

	var s Status
	if err := s.UnmarshalText([]byte("unhealthy")); err != nil || s != StatusUnhealthy {
		t.Errorf("UnmarshalText(unhealthy) = %v, %v", s, err)
	}
	if err := s.UnmarshalText([]byte("sick")); err == nil {
		t.Error("UnmarshalText(sick) error = nil")
	}
}

func TestResultBuilders(t *testing.T) {
	err := errors.New("boom")
	r := Unhealthy("down", err).WithMetadata(map[string]any{"k": 1})

	if r.Status != StatusUnhealthy || r.Message != "down" || r.Error != err {
		t.Errorf("Unhealthy() = %+v", r)
	}
	if r.Metadata["k"] != 1 {
		t.Errorf("Metadata = %v", r.Metadata)
	}
	if Healthy("ok").Status != StatusHealthy || Degraded("slow").Status != StatusDegraded {
		t.Error("builder set the wrong status")
	}
}
