package indexer

import (
	"sort"

	"cxref/internal/engine"
	"cxref/internal/groupmatch"
	"cxref/internal/logging"
	"cxref/internal/vfs"
	"cxref/internal/wfiles"
	"cxref/internal/xref"
)

// Options are the per-pass indexing knobs.
type Options struct {
	// Comments selects comment extraction: 0 disables it, 1 keeps doc
	// comments, 2 additionally retains plain comments.
	Comments int
	// MaxInitializerLines caps how many source lines of an initializer go
	// into hover text.
	MaxInitializerLines int
	// MultiVersion records occurrences of matched headers in every
	// translation unit that includes them.
	MultiVersion bool
}

// Indexer runs analysis passes and finalizes their per-file indexes.
type Indexer struct {
	engine  engine.Engine
	wfiles  *wfiles.Store
	stamper vfs.Stamper
	matcher *groupmatch.Matcher
	logger  *logging.Logger
	opts    Options
}

// NewIndexer creates an indexer. stamper may be nil to index without
// freshness gating; matcher may be nil when multi-version is off.
func NewIndexer(eng engine.Engine, wf *wfiles.Store, stamper vfs.Stamper,
	matcher *groupmatch.Matcher, logger *logging.Logger, opts Options) *Indexer {
	return &Indexer{
		engine:  eng,
		wfiles:  wf,
		stamper: stamper,
		matcher: matcher,
		logger:  logger,
		opts:    opts,
	}
}

// Index analyzes one main file and returns the finalized index of every
// file the pass claimed. ok is true when the pass completed, including the
// not-applicable case where no invocation could be built (e.g. an assembly
// file); it is false when the engine failed or crashed.
func (ix *Indexer) Index(main string, args []string, remapped []engine.Remapped,
	noLinkage bool) (results []*xref.IndexFile, ok bool) {
	inv, err := ix.engine.BuildInvocation(main, args)
	if err != nil {
		ix.logger.Error("failed to build invocation", map[string]any{
			"main":  main,
			"error": err.Error(),
		})
		return nil, false
	}
	if inv == nil {
		return nil, true
	}

	// Warnings are discarded anyway; comments beyond doc comments only
	// when asked for.
	inv.IgnoreWarnings = true
	inv.ParseAllComments = ix.opts.Comments > 1
	if ix.wfiles != nil && ix.wfiles.GetContent(main) != "" {
		inv.Remapped = remapped
	}

	param := newIndexParam(ix.stamper, ix.matcher, noLinkage)
	consumer := newPass(param, ix.logger, ix.opts)
	inv.SkipBody = func(fid engine.FileID) bool {
		return !(ix.opts.MultiVersion && param.useMultiVersion(fid)) &&
			param.consumeFile(fid) == nil
	}

	if err := ix.run(inv, consumer, main); err != nil {
		ix.logger.Error("failed to index", map[string]any{
			"main":  main,
			"error": err.Error(),
		})
		return nil, false
	}

	for _, entry := range param.seen {
		db := entry.db
		if db == nil {
			continue
		}
		db.MainFile = main
		db.Args = args
		db.FlattenFileTable()
		for _, fn := range db.USR2Func {
			// e.g. declaration + out-of-line definition
			fn.Derived = xref.Uniquify(fn.Derived)
			fn.Uses = xref.Uniquify(fn.Uses)
		}
		for _, t := range db.USR2Type {
			t.Derived = xref.Uniquify(t.Derived)
			t.Uses = xref.Uniquify(t.Uses)
			t.Def.Bases = xref.Uniquify(t.Def.Bases)
			t.Def.Funcs = xref.Uniquify(t.Def.Funcs)
		}
		for _, v := range db.USR2Var {
			v.Uses = xref.Uniquify(v.Uses)
		}

		// Stamp the dependency set: every other file staged during the
		// pass, except the main input itself.
		for _, file := range param.seen {
			if file.path == "" {
				continue
			}
			if file.path == db.Path {
				db.Mtime = file.mtime
			} else if file.path != main {
				db.Dependencies[file.path] = file.mtime
			}
		}
		results = append(results, db)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	return results, true
}

// run executes the engine pass behind a crash barrier so a misbehaving
// engine takes down one pass, not the process.
func (ix *Indexer) run(inv *engine.Invocation, consumer engine.Consumer, main string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			ix.logger.Error("engine crashed", map[string]any{
				"main":  main,
				"panic": r,
			})
			err = &crashError{main: main}
		}
	}()
	return ix.engine.Run(inv, consumer)
}

type crashError struct {
	main string
}

func (e *crashError) Error() string {
	return "engine crashed while indexing " + e.main
}
