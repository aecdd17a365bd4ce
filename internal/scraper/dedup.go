package scraper

import "sync"

// DedupKey identifies a product within a run. Two cards with the same key
// are the same listing seen twice, usually through repeated pagination
// passes.
type DedupKey struct {
	Store    string
	Slug     string
	Size     string
	Category string
}

// DedupSet records seen keys; first occurrence wins. The mutex keeps it
// safe for a pooled adapter sharing one set across workers.
type DedupSet struct {
	mu   sync.Mutex
	seen map[DedupKey]struct{}
}

func NewDedupSet() *DedupSet {
	return &DedupSet{seen: make(map[DedupKey]struct{})}
}

// Add returns true when the key was not seen before.
func (s *DedupSet) Add(key DedupKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

func (s *DedupSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
