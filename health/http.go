package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// LivenessHandler reports that the process is serving requests.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// ReadinessHandler runs every probe and answers OK, DEGRADED or UNHEALTHY.
// Only an unhealthy system answers 503.
func ReadinessHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := reg.PerformHealthCheck(r.Context())

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(statusCode(h.Overall))
		switch h.Overall {
		case StatusHealthy:
			_, _ = w.Write([]byte("OK"))
		case StatusDegraded:
			_, _ = w.Write([]byte("DEGRADED"))
		default:
			_, _ = w.Write([]byte("UNHEALTHY"))
		}
	}
}

// HealthResponse is the JSON body of the detailed endpoint.
type HealthResponse struct {
	Status        string           `json:"status"`
	Timestamp     string           `json:"timestamp"`
	UptimeSeconds float64          `json:"uptime_seconds"`
	Targets       []TargetResponse `json:"targets"`
}

// TargetResponse is the JSON form of a TargetStatus.
type TargetResponse struct {
	Target         string         `json:"target"`
	Status         string         `json:"status"`
	Critical       bool           `json:"critical"`
	Message        string         `json:"message,omitempty"`
	ResponseTimeMs float64        `json:"response_time_ms"`
	CheckedAt      string         `json:"last_checked_at"`
	Error          string         `json:"error,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

func newTargetResponse(t TargetStatus) TargetResponse {
	return TargetResponse{
		Target:         t.Target,
		Status:         t.State.String(),
		Critical:       t.Critical,
		Message:        t.Message,
		ResponseTimeMs: t.ResponseTimeMs(),
		CheckedAt:      t.CheckedAt.UTC().Format(time.RFC3339Nano),
		Error:          t.Error,
		Metadata:       t.Metadata,
	}
}

// DetailedHandler renders the full SystemHealth as JSON.
func DetailedHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := reg.PerformHealthCheck(r.Context())

		resp := HealthResponse{
			Status:        h.Overall.String(),
			Timestamp:     h.ObservedAt.UTC().Format(time.RFC3339),
			UptimeSeconds: h.Uptime.Seconds(),
			Targets:       make([]TargetResponse, 0, len(h.Targets)),
		}
		for _, t := range h.Targets {
			resp.Targets = append(resp.Targets, newTargetResponse(t))
		}

		writeJSON(w, statusCode(h.Overall), resp)
	}
}

// TargetHandler probes the target named by the {name} path value.
func TargetHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := reg.Check(r.Context(), r.PathValue("name"))
		if errors.Is(err, ErrCheckerNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, statusCode(t.State), newTargetResponse(t))
	}
}

// RegisterHandlers mounts the health endpoints on mux.
func RegisterHandlers(mux *http.ServeMux, reg *Registry) {
	mux.HandleFunc("/healthz", LivenessHandler())
	mux.HandleFunc("/readyz", ReadinessHandler(reg))
	mux.HandleFunc("/health", DetailedHandler(reg))
	mux.HandleFunc("/health/{name}", TargetHandler(reg))
}

func statusCode(s Status) int {
	if s == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
