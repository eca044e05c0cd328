//go:build cgo

package treesitter

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"

	"cxref/internal/engine"
	"cxref/internal/logging"
)

// Engine analyzes C/C++ translation units with tree-sitter. It stages every
// reachable file through a textual preprocessor scan, then walks each file's
// syntax tree into the consumer's event stream.
type Engine struct {
	logger *logging.Logger
}

// New creates a tree-sitter backed engine.
func New(logger *logging.Logger) (engine.Engine, error) {
	return &Engine{logger: logger}, nil
}

// BuildInvocation implements engine.Engine. Assembly inputs are not
// applicable; everything else is prepared for a run.
func (e *Engine) BuildInvocation(main string, args []string) (*engine.Invocation, error) {
	switch strings.ToLower(filepath.Ext(main)) {
	case ".s", ".asm":
		return nil, nil
	}
	return &engine.Invocation{Main: main, Args: args}, nil
}

// Run implements engine.Engine.
func (e *Engine) Run(inv *engine.Invocation, consumer engine.Consumer) error {
	tu := newTU()
	consumer.Initialize(tu)

	pp := newPreprocessor(tu, consumer, inv)
	mainFID, ok := pp.enter(inv.Main)
	if !ok {
		return fmt.Errorf("treesitter: cannot read %s", inv.Main)
	}
	tu.main = mainFID

	parser := sitter.NewParser()
	defer parser.Close()
	for _, fid := range pp.order {
		f := tu.files[fid]
		parser.SetLanguage(languageFor(f.path))
		tree, err := parser.ParseCtx(context.Background(), nil, []byte(f.content))
		if err != nil {
			e.logger.Warn("parse failed", map[string]any{
				"path":  f.path,
				"error": err.Error(),
			})
			continue
		}
		w := &walker{
			tu:       tu,
			consumer: consumer,
			fid:      fid,
			src:      []byte(f.content),
			skipBody: inv.SkipBody != nil && inv.SkipBody(fid),
		}
		w.walkFile(tree.RootNode())
		tree.Close()
	}
	return nil
}

// languageFor picks the grammar by extension. Headers parse as C++ so that
// mixed projects resolve class members.
func languageFor(path string) *sitter.Language {
	if strings.ToLower(filepath.Ext(path)) == ".c" {
		return c.GetLanguage()
	}
	return cpp.GetLanguage()
}
