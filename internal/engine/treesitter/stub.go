//go:build !cgo

// Package treesitter provides the tree-sitter backed analysis engine. This
// stub keeps non-CGO builds compiling; indexing requires CGO.
package treesitter

import (
	"errors"

	"cxref/internal/engine"
	"cxref/internal/logging"
)

// ErrNoCGO is returned when the analysis engine is unavailable due to
// missing CGO.
var ErrNoCGO = errors.New("indexing requires CGO (tree-sitter)")

// New reports that the engine is unavailable in this build.
func New(_ *logging.Logger) (engine.Engine, error) {
	return nil, ErrNoCGO
}
