package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewTimeout_Default(t *testing.T) {
	timeout := NewTimeout(0)

	if timeout.Duration() != DefaultTimeout {
		t.Errorf("Duration() = %v, want %v", timeout.Duration(), DefaultTimeout)
	}
}

func TestTimeout_ExecuteSuccess(t *testing.T) {
	timeout := NewTimeout(time.Second)

	executed := false
	err := timeout.Execute(context.Background(), func(ctx context.Context) error {
		executed = true
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if !executed {
		t.Error("Operation was not executed")
	}
}

func TestTimeout_ExecuteError(t *testing.T) {
	timeout := NewTimeout(time.Second)

	testErr := errors.New("connection refused")
	err := timeout.Execute(context.Background(), func(ctx context.Context) error {
		return testErr
	})

	if err != testErr {
		t.Errorf("Execute() error = %v, want %v", err, testErr)
	}
}

func TestCall_ReturnsValue(t *testing.T) {
	got, err := Call(context.Background(), time.Second, func(ctx context.Context) (int, error) {
		return 42, nil
	})

	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got != 42 {
		t.Errorf("Call() = %d, want 42", got)
	}
}

func TestCall_Timeout(t *testing.T) {
	start := time.Now()
	_, err := Call(context.Background(), 20*time.Millisecond, func(ctx context.Context) (int, error) {
		time.Sleep(500 * time.Millisecond)
		return 1, nil
	})

	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Call() error = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("Call() took %v, want it to return at the deadline", elapsed)
	}
}

func TestCall_Panic(t *testing.T) {
	_, err := Call(context.Background(), time.Second, func(ctx context.Context) (string, error) {
		panic("driver exploded")
	})

	if !errors.Is(err, ErrPanic) {
		t.Errorf("Call() error = %v, want ErrPanic", err)
	}
}

func TestCall_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Call(ctx, time.Second, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Call() error = %v, want context.Canceled", err)
	}
}

func TestCall_InvalidTimeout(t *testing.T) {
	called := false
	_, err := Call(context.Background(), -time.Second, func(ctx context.Context) (int, error) {
		called = true
		return 0, nil
	})

	if err == nil {
		t.Error("Call() with negative timeout should fail")
	}
	if called {
		t.Error("fn should not run with an invalid timeout")
	}
}
