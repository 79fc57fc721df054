package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/jonwraymond/healthops/notify"
	"github.com/jonwraymond/healthops/observe"
)

var (
	defaultMu         sync.Mutex
	defaultOrch       *Orchestrator
	defaultDispatcher *notify.Dispatcher
)

// Default returns the process-wide Orchestrator, building it on first use
// from DefaultConfig with only the resource probe and notifications written
// to a JSON log on stderr. It is not started.
func Default() *Orchestrator {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultOrch == nil {
		logger := observe.NewLogger("info")
		cfg := DefaultConfig()
		cfg.Probes.Database.Enabled = false
		cfg.Probes.Cache.Enabled = false
		cfg.Probes.External.Enabled = false

		defaultDispatcher = notify.NewDispatcher(notify.NewLogSender(logger), notify.DispatcherConfig{Logger: logger})
		defaultOrch = New(cfg, Dependencies{
			Notifier: defaultDispatcher,
			Logger:   logger,
		})
	}
	return defaultOrch
}

// Reinitialize stops the process-wide Orchestrator, if any, and replaces it
// with one built from cfg and deps.
func Reinitialize(cfg Config, deps Dependencies) *Orchestrator {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultOrch != nil {
		defaultOrch.Stop()
	}
	if defaultDispatcher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = defaultDispatcher.Close(ctx)
		cancel()
		defaultDispatcher = nil
	}

	defaultOrch = New(cfg, deps)
	return defaultOrch
}
