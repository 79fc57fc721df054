// Package notify carries alerts from the sampler and the recovery engine to
// human-facing channels.
//
// Emitters call Notifier.Notify and never wait for delivery. Dispatcher
// queues notifications, applies a token-bucket rate limit, and hands them to
// a Sender on its own goroutine; delivery failures are logged and counted,
// never retried.
package notify
