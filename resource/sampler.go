package resource

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
)

// Notification types emitted by the Sampler.
const (
	NotificationAlert    = "resource_alert"
	NotificationResolved = "resource_alert_resolved"
)

const (
	// DefaultInterval is the sampling period.
	DefaultInterval = 30 * time.Second

	// DefaultHistorySize is the ring buffer capacity.
	DefaultHistorySize = 1000

	alertHistorySize = 100
)

// Config configures a Sampler.
type Config struct {
	// Interval between samples.
	// Default: 30s
	Interval time.Duration

	// HistorySize bounds retained snapshots.
	// Default: 1000
	HistorySize int

	// Thresholds per category; unset pairs take DefaultThresholds.
	Thresholds Thresholds

	// Collector captures snapshots.
	// Default: NewRuntimeCollector()
	Collector Collector

	Notifier    notify.Notifier
	Logger      observe.Logger
	Instruments *observe.Instruments
}

// Sampler collects resource snapshots on a timer and maintains alerts.
type Sampler struct {
	cfg       Config
	collector Collector
	notifier  notify.Notifier
	logger    observe.Logger
	task      *periodic.Task
	now       func() time.Time

	// tickMu serializes Sample.
	tickMu sync.Mutex

	mu      sync.RWMutex
	history *ring
	active  map[Category]*Alert
	events  []AlertEvent
}

// NewSampler creates a stopped Sampler.
func NewSampler(cfg Config) *Sampler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultHistorySize
	}
	cfg.Thresholds = cfg.Thresholds.withDefaults()

	s := &Sampler{
		cfg:       cfg,
		collector: cfg.Collector,
		notifier:  cfg.Notifier,
		logger:    cfg.Logger,
		now:       time.Now,
		history:   newRing(cfg.HistorySize),
		active:    make(map[Category]*Alert),
	}
	if s.collector == nil {
		s.collector = NewRuntimeCollector()
	}
	if s.notifier == nil {
		s.notifier = notify.Discard()
	}
	if s.logger == nil {
		s.logger = observe.NopLogger()
	}
	s.logger = s.logger.With(observe.F("component", "resource_sampler"))
	s.task = periodic.New(cfg.Interval, s.tick)
	return s
}

// Start begins periodic sampling. Calling Start on a running Sampler is a
// no-op.
func (s *Sampler) Start(ctx context.Context) {
	if s.task.Start(ctx) {
		s.logger.Info(ctx, "resource sampler started",
			observe.F("interval", s.cfg.Interval.String()),
			observe.F("history_size", s.cfg.HistorySize))
	}
}

// Stop ends periodic sampling and waits for an in-flight sample.
func (s *Sampler) Stop() {
	if s.task.Stop() {
		s.logger.Info(context.Background(), "resource sampler stopped")
	}
}

// Running reports whether periodic sampling is active.
func (s *Sampler) Running() bool { return s.task.Running() }

// Thresholds returns the effective thresholds.
func (s *Sampler) Thresholds() Thresholds { return s.cfg.Thresholds }

func (s *Sampler) tick(ctx context.Context) {
	// Errors are logged and counted inside Sample.
	_ = s.Sample(ctx)
}

// Sample collects one snapshot, stores it, and evaluates alerts. A failed
// collection stores nothing and leaves alerts unchanged.
func (s *Sampler) Sample(ctx context.Context) error {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	m, err := s.collect(ctx)
	s.cfg.Instruments.RecordSample(ctx, err)
	if err != nil {
		s.logger.Error(ctx, "resource sample failed", observe.Err(err))
		return err
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = s.now()
	}

	s.mu.Lock()
	s.history.push(m)
	var pending []notify.Notification
	for _, c := range Categories {
		if n, ok := s.evaluateLocked(ctx, c, valueOf(m, c), m.Timestamp); ok {
			pending = append(pending, n)
		}
	}
	s.mu.Unlock()

	for _, n := range pending {
		s.notifier.Notify(ctx, n)
	}
	return nil
}

func (s *Sampler) collect(ctx context.Context) (m Metrics, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCollectorPanicked, r)
		}
	}()
	return s.collector.Collect(ctx)
}

func valueOf(m Metrics, c Category) float64 {
	switch c {
	case CategoryMemory:
		return m.Memory.Percentage
	case CategoryCPU:
		return m.CPU.Percent
	case CategorySchedulerDelay:
		return m.Scheduler.DelayMillis()
	case CategorySchedulerUtilization:
		return m.Scheduler.Utilization
	}
	return 0
}

// evaluateLocked applies one category's threshold to value. Critical is
// checked first, then warning, then resolution of an active alert.
func (s *Sampler) evaluateLocked(ctx context.Context, c Category, value float64, at time.Time) (notify.Notification, bool) {
	th := s.cfg.Thresholds.For(c)
	switch {
	case value > th.Critical:
		return s.raiseLocked(ctx, c, SeverityCritical, value, th.Critical, at)
	case value > th.Warning:
		return s.raiseLocked(ctx, c, SeverityWarning, value, th.Warning, at)
	default:
		return s.resolveLocked(ctx, c, value, at)
	}
}

func (s *Sampler) raiseLocked(ctx context.Context, c Category, sev Severity, value, threshold float64, at time.Time) (notify.Notification, bool) {
	existing, ok := s.active[c]
	if ok && sev.rank() <= existing.Severity.rank() {
		// Same or lower severity: refresh in place without notifying.
		existing.Severity = sev
		existing.Value = value
		existing.Threshold = threshold
		existing.Message = alertMessage(c, sev, value, threshold)
		existing.UpdatedAt = at
		return notify.Notification{}, false
	}

	kind := EventUpgraded
	raisedAt := at
	if ok {
		raisedAt = existing.RaisedAt
	} else {
		kind = EventRaised
	}

	alert := &Alert{
		ID:        string(c),
		Category:  c,
		Severity:  sev,
		Message:   alertMessage(c, sev, value, threshold),
		Value:     value,
		Threshold: threshold,
		RaisedAt:  raisedAt,
		UpdatedAt: at,
	}
	s.active[c] = alert
	s.recordEventLocked(kind, *alert, at)
	s.cfg.Instruments.RecordAlert(ctx, string(c), string(sev), false)

	s.logger.Warn(ctx, "resource alert "+string(kind),
		observe.F("category", string(c)),
		observe.F("severity", string(sev)),
		observe.F("value", value),
		observe.F("threshold", threshold))

	priority := notify.PriorityMedium
	if sev == SeverityCritical {
		priority = notify.PriorityHigh
	}
	return notify.New(NotificationAlert, priority,
		fmt.Sprintf("%s %s", c.label(), sev),
		alert.Message,
		map[string]any{
			"alert_id":  alert.ID,
			"category":  string(c),
			"severity":  string(sev),
			"value":     value,
			"threshold": threshold,
		}), true
}

func (s *Sampler) resolveLocked(ctx context.Context, c Category, value float64, at time.Time) (notify.Notification, bool) {
	existing, ok := s.active[c]
	if !ok {
		return notify.Notification{}, false
	}
	delete(s.active, c)

	resolved := existing.clone()
	resolved.Value = value
	resolved.UpdatedAt = at
	resolved.ResolvedAt = &at
	s.recordEventLocked(EventResolved, resolved, at)
	s.cfg.Instruments.RecordAlert(ctx, string(c), string(resolved.Severity), true)

	s.logger.Info(ctx, "resource alert resolved",
		observe.F("category", string(c)),
		observe.F("value", value))

	return notify.New(NotificationResolved, notify.PriorityLow,
		fmt.Sprintf("%s resolved", c.label()),
		resolvedMessage(c, value),
		map[string]any{
			"alert_id": resolved.ID,
			"category": string(c),
			"value":    value,
		}), true
}

func (s *Sampler) recordEventLocked(kind EventKind, a Alert, at time.Time) {
	s.events = append(s.events, AlertEvent{Kind: kind, Alert: a.clone(), At: at})
	if over := len(s.events) - alertHistorySize; over > 0 {
		s.events = append([]AlertEvent(nil), s.events[over:]...)
	}
}

// Current returns the most recent snapshot.
func (s *Sampler) Current() (Metrics, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.last()
}

// History returns up to limit of the newest snapshots, oldest first. A
// limit of zero or less returns the whole buffer.
func (s *Sampler) History(limit int) []Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.tail(limit)
}

// ActiveAlerts returns the active alerts ordered by category.
func (s *Sampler) ActiveAlerts() []Alert {
	s.mu.RLock()
	out := make([]Alert, 0, len(s.active))
	for _, a := range s.active {
		out = append(out, a.clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// AlertHistory returns the last raised, upgraded and resolved events,
// oldest first.
func (s *Sampler) AlertHistory() []AlertEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AlertEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Pressure returns the latest memory and CPU percentages. It implements
// health.PressureSource.
func (s *Sampler) Pressure() (health.ResourcePressure, bool) {
	m, ok := s.Current()
	if !ok {
		return health.ResourcePressure{}, false
	}
	return health.ResourcePressure{
		MemoryPercent: m.Memory.Percentage,
		CPUPercent:    m.CPU.Percent,
		CollectedAt:   m.Timestamp,
	}, true
}

var _ health.PressureSource = (*Sampler)(nil)
