// Package window keeps the bounded buffer of recently translated line pairs
// that is shown to the translator for continuity.
//
// The buffer is a FIFO of capacity W. It can be rebuilt from a chapter
// checkpoint so that a resumed run sees exactly the same context as an
// uninterrupted one.
package window

import "strings"

// Entry is one (source, target) line pair.
type Entry struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Window is a fixed-capacity FIFO of entries, oldest first.
type Window struct {
	size    int
	entries []Entry
}

// New returns an empty window holding at most size entries.
// A size below 1 is treated as 1.
func New(size int) *Window {
	if size < 1 {
		size = 1
	}
	return &Window{size: size, entries: make([]Entry, 0, size)}
}

// Size returns the capacity W.
func (w *Window) Size() int { return w.size }

// Len returns the number of buffered entries.
func (w *Window) Len() int { return len(w.entries) }

// Append pushes e to the tail and evicts the head once the capacity is exceeded.
func (w *Window) Append(e Entry) {
	w.entries = append(w.entries, e)
	if over := len(w.entries) - w.size; over > 0 {
		// shift in place so the backing array does not grow without bound
		n := copy(w.entries, w.entries[over:])
		w.entries = w.entries[:n]
	}
}

// Entries returns a copy of the buffer, oldest first.
func (w *Window) Entries() []Entry {
	out := make([]Entry, len(w.entries))
	copy(out, w.entries)
	return out
}

// Qualifier reports whether a translated line at index j contributed to the
// live window. The chapter state machine supplies one that mirrors its own
// append rule.
type Qualifier func(source, translated string) bool

// Rebuild reconstructs the window that existed after translated[len-1] was
// produced. It replays every checkpointed line in order and keeps only those
// accepted by qualifies, applying the same eviction rule as Append, so the
// result is identical to the buffer of an uninterrupted run.
//
// Lines beyond len(source) are ignored; a checkpoint longer than the source
// text cannot be replayed past the end.
func Rebuild(translated, source []string, size int, qualifies Qualifier) *Window {
	w := New(size)
	n := len(translated)
	if len(source) < n {
		n = len(source)
	}
	for j := 0; j < n; j++ {
		if !qualifies(source[j], translated[j]) {
			continue
		}
		w.Append(Entry{Source: strings.TrimSpace(source[j]), Target: translated[j]})
	}
	return w
}
