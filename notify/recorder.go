package notify

import (
	"context"
	"sync"
)

// Recorder keeps every notification it receives. It is both a Sender and a
// synchronous Notifier, which makes it the usual sink in tests.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Send(_ context.Context, n Notification) error {
	r.mu.Lock()
	r.sent = append(r.sent, n)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Notify(ctx context.Context, n Notification) {
	_ = r.Send(ctx, n)
}

// Notifications returns a copy of everything recorded so far.
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

// OfType returns the recorded notifications of one type.
func (r *Recorder) OfType(typ string) []Notification {
	var out []Notification
	for _, n := range r.Notifications() {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the number of recorded notifications.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

// Reset forgets everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.sent = nil
	r.mu.Unlock()
}
