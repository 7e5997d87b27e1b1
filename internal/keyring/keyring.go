// Package keyring hands out provider credentials round-robin, with an
// independent cursor per operation category.
package keyring

import (
	"strings"
	"sync"
)

// Operation categories used by the backends.
const (
	CategoryTranslate = "translate"
	CategoryEmbed     = "embed"
)

// Rotator cycles through a fixed list of keys. Each category advances its own
// cursor, so translation and embedding traffic are spread independently.
type Rotator struct {
	mu      sync.Mutex
	keys    []string
	cursors map[string]int
}

// New builds a Rotator from keys, dropping blanks and duplicates while
// preserving order.
func New(keys ...string) *Rotator {
	seen := make(map[string]bool, len(keys))
	var clean []string
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		clean = append(clean, k)
	}
	return &Rotator{keys: clean, cursors: make(map[string]int)}
}

// Len returns the number of usable keys.
func (r *Rotator) Len() int { return len(r.keys) }

// Next returns the key for the next call in category. It returns "" when no
// keys are configured.
func (r *Rotator) Next(category string) string {
	if len(r.keys) == 0 {
		return ""
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.cursors[category]
	r.cursors[category] = (i + 1) % len(r.keys)
	return r.keys[i]
}
