package render

import "sync"

// Guard remembers the hash of the last drawn content so identical
// content is not drawn twice.
type Guard struct {
	mu   sync.Mutex
	last string
}

// Changed reports whether hash differs from the last recorded one, and
// records it.
func (g *Guard) Changed(hash string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if hash == g.last && hash != "" {
		return false
	}
	g.last = hash
	return true
}

// Reset forgets the last hash so the next draw always happens.
func (g *Guard) Reset() {
	g.mu.Lock()
	g.last = ""
	g.mu.Unlock()
}
