package attachment

import "sync"

// List is the ordered, append-only set of encoded images of one form
type List struct {
	mu   sync.Mutex
	uris []string
}

func (l *List) Append(uris ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.uris = append(l.uris, uris...)
}

func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.uris)
}

// All returns a copy of the data URIs in insertion order
func (l *List) All() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.uris))
	copy(out, l.uris)
	return out
}
