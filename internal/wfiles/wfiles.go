// Package wfiles is the working-file store: it supplies unsaved buffer
// contents that override on-disk files during an indexing pass.
package wfiles

import "sync"

// Store maps absolute paths to in-memory buffer contents. Safe for
// concurrent use.
type Store struct {
	mu      sync.RWMutex
	content map[string]string
}

// NewStore creates an empty working-file store.
func NewStore() *Store {
	return &Store{content: make(map[string]string)}
}

// GetContent returns the buffer for path, or "" if the file has no unsaved
// buffer.
func (s *Store) GetContent(path string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.content[path]
}

// Set installs or replaces the buffer for path.
func (s *Store) Set(path, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content[path] = content
}

// Delete removes the buffer for path, reverting reads to the filesystem.
func (s *Store) Delete(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.content, path)
}

// Snapshot returns a copy of all buffers, for building invocation remaps.
func (s *Store) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.content))
	for k, v := range s.content {
		out[k] = v
	}
	return out
}
