package resource

import "time"

// ring is a fixed-capacity FIFO of snapshots; pushing onto a full ring
// evicts the oldest entry.
type ring struct {
	buf   []Metrics
	start int
	size  int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]Metrics, capacity)}
}

func (r *ring) push(m Metrics) {
	if len(r.buf) == 0 {
		return
	}
	idx := (r.start + r.size) % len(r.buf)
	r.buf[idx] = m
	if r.size < len(r.buf) {
		r.size++
		return
	}
	r.start = (r.start + 1) % len(r.buf)
}

func (r *ring) len() int { return r.size }

func (r *ring) at(i int) Metrics {
	return r.buf[(r.start+i)%len(r.buf)]
}

func (r *ring) last() (Metrics, bool) {
	if r.size == 0 {
		return Metrics{}, false
	}
	return r.at(r.size - 1), true
}

// tail returns up to limit of the newest entries, oldest first. A limit of
// zero or less returns everything.
func (r *ring) tail(limit int) []Metrics {
	n := r.size
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Metrics, n)
	for i := 0; i < n; i++ {
		out[i] = r.at(r.size - n + i)
	}
	return out
}

// since returns the entries stamped at or after t, oldest first.
func (r *ring) since(t time.Time) []Metrics {
	var out []Metrics
	for i := 0; i < r.size; i++ {
		if m := r.at(i); !m.Timestamp.Before(t) {
			out = append(out, m)
		}
	}
	return out
}
