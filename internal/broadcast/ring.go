package broadcast

// ring is a fixed-capacity circular buffer of recent messages.  When full,
// push overwrites the oldest element.  It is owned by a single channel
// goroutine and is not safe for concurrent use.
type ring struct {
	buf   []Message
	head  int
	count int
}

func newRing(capacity int) *ring {
	if capacity < 0 {
		capacity = 0
	}
	return &ring{buf: make([]Message, capacity)}
}

func (r *ring) push(m Message) {
	if len(r.buf) == 0 {
		return
	}
	idx := (r.head + r.count) % len(r.buf)
	r.buf[idx] = m
	if r.count == len(r.buf) {
		r.head = (r.head + 1) % len(r.buf)
	} else {
		r.count++
	}
}

// since returns the buffered messages with an id greater than after,
// oldest first.
func (r *ring) since(after uint64) []Message {
	var out []Message
	for i := 0; i < r.count; i++ {
		m := r.buf[(r.head+i)%len(r.buf)]
		if m.ID > after {
			out = append(out, m)
		}
	}
	return out
}
