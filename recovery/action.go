package recovery

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/healthops/health"
)

// Action is one remediation the engine may run for a target.
type Action struct {
	ID            string
	TargetService string
	Description   string

	// Condition decides whether a non-healthy status warrants this action.
	// A nil Condition matches every non-healthy status of TargetService.
	// A panicking Condition is treated as false.
	Condition func(health.TargetStatus) bool

	// Remediate performs the fix. A nil error is success.
	Remediate func(ctx context.Context) error

	// Cooldown is the minimum time between two attempts, whatever their
	// outcome.
	Cooldown time.Duration

	// MaxAttemptsPerWindow caps attempts within the trailing window.
	MaxAttemptsPerWindow int
}

// Validate checks the action is complete.
func (a Action) Validate() error {
	switch {
	case a.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidAction)
	case a.TargetService == "":
		return fmt.Errorf("%w: %s: missing target service", ErrInvalidAction, a.ID)
	case a.Remediate == nil:
		return fmt.Errorf("%w: %s: missing remediate func", ErrInvalidAction, a.ID)
	case a.Cooldown < 0:
		return fmt.Errorf("%w: %s: negative cooldown", ErrInvalidAction, a.ID)
	case a.MaxAttemptsPerWindow <= 0:
		return fmt.Errorf("%w: %s: max attempts must be positive", ErrInvalidAction, a.ID)
	}
	return nil
}

// Attempt records one execution of an Action.
type Attempt struct {
	ActionID  string        `json:"action_id"`
	Target    string        `json:"target"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
	Succeeded bool          `json:"succeeded"`
	Error     string        `json:"error,omitempty"`

	// AttemptNumber is the attempt's ordinal within the trailing window,
	// starting at 1.
	AttemptNumber int `json:"attempt_number"`

	Escalated bool `json:"escalated,omitempty"`
}

// matches evaluates the Condition, recovering from panics.
func (a Action) matches(ts health.TargetStatus) (ok bool) {
	if a.Condition == nil {
		return true
	}
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return a.Condition(ts)
}
