// Package vfs implements the staleness cache gating which files an indexing
// pass (re)indexes. A Stamper answers, idempotently, whether a file at a
// given modification time still needs indexing for a given pass mode, and
// at most one concurrent caller receives true per distinct key.
package vfs

import "sync"

// Pass modes. Full passes and body-skipping (unlinked-symbol) passes stamp
// under different keys so one does not shadow the other.
const (
	ModeFull      = 1
	ModeNoLinkage = 3
)

// Stamper is the staleness gate consulted by file staging.
type Stamper interface {
	// Stamp reports whether (path, mtime, mode) still needs indexing,
	// recording that the caller is about to do so. Later calls with the
	// same key return false.
	Stamp(path string, mtime int64, mode int) bool
}

type memKey struct {
	path string
	mode int
}

// MemStamper is the in-process Stamper: suitable for tests and single-shot
// runs. Safe for concurrent use.
type MemStamper struct {
	mu   sync.Mutex
	seen map[memKey]int64
}

// NewMemStamper creates an empty in-memory staleness cache.
func NewMemStamper() *MemStamper {
	return &MemStamper{seen: make(map[memKey]int64)}
}

// Stamp implements Stamper. A file needs indexing when it has never been
// stamped for this mode or its modification time changed.
func (s *MemStamper) Stamp(path string, mtime int64, mode int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memKey{path: path, mode: mode}
	if prev, ok := s.seen[k]; ok && prev == mtime {
		return false
	}
	s.seen[k] = mtime
	return true
}
