package indexer

import (
	"os"

	"cxref/internal/engine"
	"cxref/internal/groupmatch"
	"cxref/internal/vfs"
	"cxref/internal/xref"
)

// fileEntry is the staged state for one file seen during a pass.
type fileEntry struct {
	path    string
	mtime   int64
	content string

	// db is non-nil once the file has been claimed for index output.
	db      *xref.IndexFile
	claimed bool

	multiVersion      bool
	multiVersionKnown bool
}

// indexParam accumulates per-pass state shared by every consumer callback.
// tu is attached when the engine hands over the translation unit.
type indexParam struct {
	tu      engine.TU
	stamper vfs.Stamper
	matcher *groupmatch.Matcher

	noLinkage bool

	// seen maps engine file handles to their staged entries; handles are
	// stable for the lifetime of one parse.
	seen map[engine.FileID]*fileEntry
}

func newIndexParam(stamper vfs.Stamper, matcher *groupmatch.Matcher, noLinkage bool) *indexParam {
	return &indexParam{
		stamper:   stamper,
		matcher:   matcher,
		noLinkage: noLinkage,
		seen:      make(map[engine.FileID]*fileEntry),
	}
}

// seenFile stages file metadata the first time a handle shows up.
func (p *indexParam) seenFile(fid engine.FileID) *fileEntry {
	if e, ok := p.seen[fid]; ok {
		return e
	}
	info, ok := p.tu.FileInfo(fid)
	if !ok || info.Path == "" {
		e := &fileEntry{}
		p.seen[fid] = e
		return e
	}
	mtime := info.Mtime
	if mtime == 0 {
		if st, err := os.Stat(info.Path); err == nil {
			mtime = st.ModTime().Unix()
		}
	}
	e := &fileEntry{path: info.Path, mtime: mtime, content: info.Content}
	p.seen[fid] = e
	return e
}

// consumeFile claims a file for output. The first pass to stamp a given
// (path, mode, mtime) triple owns the file; later passes get nil and treat
// occurrences in that file as already indexed.
func (p *indexParam) consumeFile(fid engine.FileID) *xref.IndexFile {
	e := p.seenFile(fid)
	if e.path == "" {
		return nil
	}
	if !e.claimed {
		e.claimed = true
		mode := vfs.ModeFull
		if p.noLinkage {
			mode = vfs.ModeNoLinkage
		}
		if p.stamper == nil || p.stamper.Stamp(e.path, e.mtime, mode) {
			e.db = xref.NewIndexFile(e.path, e.content, p.noLinkage)
		}
	}
	return e.db
}

// useMultiVersion reports whether occurrences in fid should be recorded in
// every file that includes it, not just the owning one. Memoized per file.
func (p *indexParam) useMultiVersion(fid engine.FileID) bool {
	e := p.seenFile(fid)
	if !e.multiVersionKnown {
		e.multiVersionKnown = true
		e.multiVersion = p.matcher.Matches(e.path)
	}
	return e.multiVersion
}
