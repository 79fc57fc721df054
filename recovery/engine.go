package recovery

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonwraymond/healthops/health"
	"github.com/jonwraymond/healthops/internal/periodic"
	"github.com/jonwraymond/healthops/notify"
	"github.com/jonwraymond/healthops/observe"
	"github.com/jonwraymond/healthops/resilience"
)

// Notification types emitted by the Engine.
const (
	NotificationSucceeded  = "recovery_succeeded"
	NotificationEscalation = "recovery_escalation"
)

const (
	// DefaultInterval is the time between recovery cycles.
	DefaultInterval = 60 * time.Second

	// DefaultAlertThreshold is the attempt count that triggers escalation.
	DefaultAlertThreshold = 3

	// DefaultWindow is the attempt budget window.
	DefaultWindow = 24 * time.Hour

	// DefaultActionTimeout bounds one Remediate call.
	DefaultActionTimeout = 2 * time.Minute

	historySize = 100
)

// Prober runs a full health check; *health.Registry satisfies it.
type Prober interface {
	PerformHealthCheck(ctx context.Context) health.SystemHealth
}

// Config configures an Engine.
type Config struct {
	// Interval between cycles.
	// Default: 60s
	Interval time.Duration

	// AlertThreshold is the attempt ordinal within the window that
	// escalates a failing action. It is capped at the action's
	// MaxAttemptsPerWindow.
	// Default: 3
	AlertThreshold int

	// Window is the trailing period for attempt budgets.
	// Default: 24h
	Window time.Duration

	// ActionTimeout bounds a single Remediate call.
	// Default: 2m
	ActionTimeout time.Duration

	// Actions registered at construction. Invalid actions are logged and
	// skipped.
	Actions []Action

	Notifier    notify.Notifier
	Logger      observe.Logger
	Runner      *observe.Runner
	Instruments *observe.Instruments
}

type actionState struct {
	action      Action
	lastAttempt time.Time
	history     []Attempt

	// window holds the start times of attempts inside the budget window,
	// independent of the bounded history.
	window []time.Time

	// escalatedAt is the timestamp of the attempt that last escalated.
	escalatedAt time.Time
}

// Engine runs remediation cycles.
type Engine struct {
	prober   Prober
	cfg      Config
	notifier notify.Notifier
	logger   observe.Logger
	runner   *observe.Runner
	timeout  *resilience.Timeout
	task     *periodic.Task
	now      func() time.Time

	tickMu sync.Mutex

	mu      sync.RWMutex
	order   []string
	actions map[string]*actionState
}

// NewEngine creates a stopped Engine probing through prober.
func NewEngine(prober Prober, cfg Config) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.AlertThreshold <= 0 {
		cfg.AlertThreshold = DefaultAlertThreshold
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = DefaultActionTimeout
	}

	e := &Engine{
		prober:   prober,
		cfg:      cfg,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
		runner:   cfg.Runner,
		timeout:  resilience.NewTimeout(cfg.ActionTimeout),
		now:      time.Now,
		actions:  make(map[string]*actionState),
	}
	if e.notifier == nil {
		e.notifier = notify.Discard()
	}
	if e.logger == nil {
		e.logger = observe.NopLogger()
	}
	e.logger = e.logger.With(observe.F("component", "recovery"))
	if e.runner == nil {
		e.runner = observe.NewRunner(nil, nil, e.logger)
	}
	e.task = periodic.New(cfg.Interval, e.tick)

	for _, a := range cfg.Actions {
		if err := e.Register(a); err != nil {
			e.logger.Error(context.Background(), "skipping recovery action", observe.Err(err))
		}
	}
	return e
}

// Register adds an action. Actions are evaluated in registration order.
func (e *Engine) Register(a Action) error {
	if err := a.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.actions[a.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateAction, a.ID)
	}
	e.actions[a.ID] = &actionState{action: a}
	e.order = append(e.order, a.ID)
	return nil
}

// Actions returns the registered actions in registration order.
func (e *Engine) Actions() []Action {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Action, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.actions[id].action)
	}
	return out
}

// Start begins periodic cycles. Calling Start on a running Engine is a no-op.
func (e *Engine) Start(ctx context.Context) {
	if e.task.Start(ctx) {
		e.logger.Info(ctx, "recovery engine started",
			observe.F("interval", e.cfg.Interval.String()),
			observe.F("actions", len(e.Actions())))
	}
}

// Stop ends periodic cycles and waits for an in-flight cycle.
func (e *Engine) Stop() {
	if e.task.Stop() {
		e.logger.Info(context.Background(), "recovery engine stopped")
	}
}

// Running reports whether periodic cycles are active.
func (e *Engine) Running() bool { return e.task.Running() }

func (e *Engine) tick(ctx context.Context) {
	e.RunOnce(ctx)
}

// RunOnce performs one cycle and returns the attempts it made.
func (e *Engine) RunOnce(ctx context.Context) []Attempt {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	sh := e.prober.PerformHealthCheck(ctx)
	if sh.Overall == health.StatusHealthy {
		return nil
	}

	var attempts []Attempt
	for _, ts := range sh.Targets {
		if ts.State == health.StatusHealthy {
			continue
		}
		for _, a := range e.Actions() {
			if a.TargetService != ts.Target || !a.matches(ts) {
				continue
			}
			if reason, ok := e.eligible(a.ID); !ok {
				e.logger.Debug(ctx, "recovery action gated",
					observe.F("action", a.ID),
					observe.F("reason", reason))
				continue
			}
			attempts = append(attempts, e.execute(ctx, a, ts))
		}
	}
	return attempts
}

// eligible applies the cooldown and budget gates.
func (e *Engine) eligible(id string) (string, bool) {
	now := e.now()
	e.mu.RLock()
	defer e.mu.RUnlock()

	st := e.actions[id]
	if !st.lastAttempt.IsZero() && now.Sub(st.lastAttempt) <= st.action.Cooldown {
		return "cooldown", false
	}
	if e.inWindowLocked(st, now) >= st.action.MaxAttemptsPerWindow {
		return "budget", false
	}
	return "", true
}

func (e *Engine) inWindowLocked(st *actionState, now time.Time) int {
	cutoff := now.Add(-e.cfg.Window)
	n := 0
	for _, ts := range st.window {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}

// pruneWindowLocked drops attempt times that left the window.
func (e *Engine) pruneWindowLocked(st *actionState, now time.Time) {
	cutoff := now.Add(-e.cfg.Window)
	keep := st.window[:0]
	for _, ts := range st.window {
		if ts.After(cutoff) {
			keep = append(keep, ts)
		}
	}
	st.window = keep
}

func (e *Engine) execute(ctx context.Context, a Action, ts health.TargetStatus) Attempt {
	started := e.now()
	op := observe.Operation{
		Component: "recovery",
		Name:      a.ID,
		Attrs:     map[string]string{"target": ts.Target, "state": ts.State.String()},
	}
	err := e.runner.Run(ctx, op, func(ctx context.Context) error {
		return e.timeout.Execute(ctx, a.Remediate)
	})

	attempt := Attempt{
		ActionID:  a.ID,
		Target:    ts.Target,
		Timestamp: started,
		Duration:  e.now().Sub(started),
		Succeeded: err == nil,
	}
	if err != nil {
		attempt.Error = err.Error()
	}

	e.mu.Lock()
	st := e.actions[a.ID]
	attempt.AttemptNumber = e.inWindowLocked(st, started) + 1
	escalate := !attempt.Succeeded && e.shouldEscalateLocked(st, attempt)
	if escalate {
		attempt.Escalated = true
		st.escalatedAt = started
	}
	st.lastAttempt = started
	e.pruneWindowLocked(st, started)
	st.window = append(st.window, started)
	st.history = append(st.history, attempt)
	if over := len(st.history) - historySize; over > 0 {
		st.history = append([]Attempt(nil), st.history[over:]...)
	}
	e.mu.Unlock()

	e.cfg.Instruments.RecordRecovery(ctx, a.ID, attempt.Succeeded)

	switch {
	case attempt.Succeeded:
		e.logger.Info(ctx, "recovery succeeded",
			observe.F("action", a.ID),
			observe.F("target", ts.Target),
			observe.F("attempt", attempt.AttemptNumber))
		e.notifier.Notify(ctx, notify.New(NotificationSucceeded, notify.PriorityMedium,
			"Recovery succeeded: "+a.ID,
			fmt.Sprintf("%s recovered %s", describe(a), ts.Target),
			map[string]any{
				"action_id": a.ID,
				"target":    ts.Target,
				"attempt":   attempt.AttemptNumber,
			}))
	case escalate:
		e.cfg.Instruments.RecordEscalation(ctx, a.ID)
		e.logger.Error(ctx, "recovery escalated",
			observe.F("action", a.ID),
			observe.F("target", ts.Target),
			observe.F("attempt", attempt.AttemptNumber),
			observe.Err(err))
		e.notifier.Notify(ctx, notify.New(NotificationEscalation, notify.PriorityUrgent,
			"Manual intervention required: "+ts.Target,
			fmt.Sprintf("%s failed %d times in %s: %v", describe(a), attempt.AttemptNumber, e.cfg.Window, err),
			map[string]any{
				"action_id":  a.ID,
				"target":     ts.Target,
				"attempts":   attempt.AttemptNumber,
				"last_error": attempt.Error,
			}))
	default:
		e.logger.Warn(ctx, "recovery attempt failed",
			observe.F("action", a.ID),
			observe.F("target", ts.Target),
			observe.F("attempt", attempt.AttemptNumber),
			observe.Err(err))
	}
	return attempt
}

// shouldEscalateLocked fires once when the window ordinal first reaches the
// effective threshold, then stays quiet while the escalating attempt is
// still inside the window.
func (e *Engine) shouldEscalateLocked(st *actionState, at Attempt) bool {
	threshold := min(e.cfg.AlertThreshold, st.action.MaxAttemptsPerWindow)
	if at.AttemptNumber < threshold {
		return false
	}
	return st.escalatedAt.IsZero() || !st.escalatedAt.After(at.Timestamp.Add(-e.cfg.Window))
}

func describe(a Action) string {
	if a.Description != "" {
		return a.Description
	}
	return a.ID
}

// ActionStats summarises one action.
type ActionStats struct {
	ID                string        `json:"id"`
	Target            string        `json:"target"`
	Attempts          int           `json:"attempts"`
	Succeeded         int           `json:"succeeded"`
	Failed            int           `json:"failed"`
	AttemptsInWindow  int           `json:"attempts_in_window"`
	LastAttempt       time.Time     `json:"last_attempt,omitempty"`
	CooldownRemaining time.Duration `json:"cooldown_remaining"`
	Escalated         bool          `json:"escalated"`
}

// Stats summarises every action's recorded history.
type Stats struct {
	TotalAttempts int           `json:"total_attempts"`
	Succeeded     int           `json:"succeeded"`
	Failed        int           `json:"failed"`
	SuccessRate   float64       `json:"success_rate"`
	Escalations   int           `json:"escalations"`
	Actions       []ActionStats `json:"actions"`
}

// Stats returns counts over the retained history.
func (e *Engine) Stats() Stats {
	now := e.now()
	e.mu.RLock()
	defer e.mu.RUnlock()

	var s Stats
	for _, id := range e.order {
		st := e.actions[id]
		as := ActionStats{
			ID:               id,
			Target:           st.action.TargetService,
			Attempts:         len(st.history),
			AttemptsInWindow: e.inWindowLocked(st, now),
			LastAttempt:      st.lastAttempt,
			Escalated:        !st.escalatedAt.IsZero() && st.escalatedAt.After(now.Add(-e.cfg.Window)),
		}
		if !st.lastAttempt.IsZero() {
			as.CooldownRemaining = max(0, st.action.Cooldown-now.Sub(st.lastAttempt))
		}
		for _, at := range st.history {
			if at.Succeeded {
				as.Succeeded++
			} else {
				as.Failed++
			}
			if at.Escalated {
				s.Escalations++
			}
		}
		s.TotalAttempts += as.Attempts
		s.Succeeded += as.Succeeded
		s.Failed += as.Failed
		s.Actions = append(s.Actions, as)
	}
	if s.TotalAttempts > 0 {
		s.SuccessRate = float64(s.Succeeded) / float64(s.TotalAttempts)
	}
	return s
}

// History returns the retained attempts of actionID, oldest first. An empty
// actionID merges every action's history by time. An unknown actionID
// returns ErrActionNotFound.
func (e *Engine) History(actionID string) ([]Attempt, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if actionID != "" {
		st, ok := e.actions[actionID]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrActionNotFound, actionID)
		}
		out := make([]Attempt, len(st.history))
		copy(out, st.history)
		return out, nil
	}

	var out []Attempt
	for _, id := range e.order {
		out = append(out, e.actions[id].history...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}
