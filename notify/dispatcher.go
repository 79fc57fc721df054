package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonwraymond/healthops/observe"
	"github.com/jonwraymond/healthops/resilience"
)

// ErrDispatcherClosed is returned by Close when called twice.
var ErrDispatcherClosed = errors.New("notify: dispatcher closed")

// Drop reasons reported to Instruments.
const (
	DropRateLimited = "rate_limited"
	DropQueueFull   = "queue_full"
	DropClosed      = "closed"
	DropSendFailed  = "send_failed"
)

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	// QueueSize bounds pending notifications.
	// Default: 256
	QueueSize int

	// SendTimeout bounds one Sender.Send call.
	// Default: 5s
	SendTimeout time.Duration

	// RateLimit gates admission into the queue.
	// Default: 10/s with a burst of 20
	RateLimit resilience.RateLimiterConfig

	Logger      observe.Logger
	Instruments *observe.Instruments
}

// Dispatcher is an asynchronous Notifier backed by a Sender.
type Dispatcher struct {
	sender  Sender
	cfg     DispatcherConfig
	limiter *resilience.RateLimiter
	logger  observe.Logger
	queue   chan queued

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

type queued struct {
	ctx context.Context
	n   Notification
}

// NewDispatcher starts a dispatcher delivering to sender.
func NewDispatcher(sender Sender, cfg DispatcherConfig) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}

	d := &Dispatcher{
		sender:  sender,
		cfg:     cfg,
		limiter: resilience.NewRateLimiter(cfg.RateLimit),
		logger:  logger.With(observe.F("component", "notify")),
		queue:   make(chan queued, cfg.QueueSize),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Notify enqueues n and returns immediately. Notifications over the rate
// limit, or arriving while the queue is full, are dropped. Urgent
// notifications are exempt from the rate limit.
func (d *Dispatcher) Notify(ctx context.Context, n Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(ctx, n, DropClosed)
		return
	}
	if n.Priority != PriorityUrgent && !d.limiter.Allow() {
		d.drop(ctx, n, DropRateLimited)
		return
	}

	select {
	case d.queue <- queued{ctx: context.WithoutCancel(ctx), n: n}:
	default:
		d.drop(ctx, n, DropQueueFull)
	}
}

// Close stops accepting notifications and waits for the queue to drain or
// ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for q := range d.queue {
		d.deliver(q.ctx, q.n)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n Notification) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error(ctx, "notification sender panicked",
				observe.F("notification_id", n.ID),
				observe.F("panic", r))
			d.cfg.Instruments.RecordNotificationDropped(ctx, DropSendFailed)
		}
	}()

	if err := d.sender.Send(ctx, n); err != nil {
		d.logger.Warn(ctx, "notification delivery failed",
			observe.F("notification_id", n.ID),
			observe.F("type", n.Type),
			observe.Err(err))
		d.cfg.Instruments.RecordNotificationDropped(ctx, DropSendFailed)
	}
}

func (d *Dispatcher) drop(ctx context.Context, n Notification, reason string) {
	d.logger.Warn(ctx, "notification dropped",
		observe.F("notification_id", n.ID),
		observe.F("type", n.Type),
		observe.F("reason", reason))
	d.cfg.Instruments.RecordNotificationDropped(ctx, reason)
}
