// Package groupmatch matches paths against ordered include/exclude glob
// groups. A Matcher is built once before any indexing pass and is read-only
// afterwards, so concurrent passes may share it.
package groupmatch

import (
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher holds compiled whitelist and blacklist glob groups.
type Matcher struct {
	whitelist []string
	blacklist []string
}

// New validates the glob groups and builds a matcher. Globs follow
// doublestar syntax ("**" crosses directory boundaries).
func New(whitelist, blacklist []string) (*Matcher, error) {
	for _, g := range append(append([]string{}, whitelist...), blacklist...) {
		if !doublestar.ValidatePattern(g) {
			return nil, fmt.Errorf("invalid glob %q", g)
		}
	}
	return &Matcher{whitelist: whitelist, blacklist: blacklist}, nil
}

// Matches reports whether path is selected: it must match some whitelist
// glob (an empty whitelist matches nothing) and no blacklist glob.
func (m *Matcher) Matches(path string) bool {
	if m == nil {
		return false
	}
	path = filepath.ToSlash(path)
	ok := false
	for _, g := range m.whitelist {
		if matched, _ := doublestar.Match(g, path); matched {
			ok = true
			break
		}
	}
	if !ok {
		return false
	}
	for _, g := range m.blacklist {
		if matched, _ := doublestar.Match(g, path); matched {
			return false
		}
	}
	return true
}
