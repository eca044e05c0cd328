//go:build cgo

package treesitter

import (
	"os"
	"path/filepath"
	"strings"

	"cxref/internal/engine"
	"cxref/internal/paths"
	"cxref/internal/xref"
)

// preprocessor walks the include graph depth-first, emitting preprocessor
// events in source order and staging every reached file into the TU. It is
// a textual scanner, not a full macro expander: conditionals other than
// literal "#if 0" are taken as true.
type preprocessor struct {
	tu       *tunit
	consumer engine.Consumer
	inc      []string // -I include directories, in argument order

	defined map[string]struct{}
	visited map[string]engine.FileID
	// order lists staged files in depth-first discovery order.
	order []engine.FileID
	// remapped buffer contents by normalized path.
	remapped map[string]string
}

func newPreprocessor(tu *tunit, consumer engine.Consumer, inv *engine.Invocation) *preprocessor {
	p := &preprocessor{
		tu:       tu,
		consumer: consumer,
		defined:  make(map[string]struct{}),
		visited:  make(map[string]engine.FileID),
		remapped: make(map[string]string),
	}
	for i := 0; i < len(inv.Args); i++ {
		a := inv.Args[i]
		switch {
		case a == "-I" && i+1 < len(inv.Args):
			i++
			p.inc = append(p.inc, inv.Args[i])
		case strings.HasPrefix(a, "-I"):
			p.inc = append(p.inc, a[2:])
		case a == "-isystem" && i+1 < len(inv.Args):
			i++
			p.inc = append(p.inc, inv.Args[i])
		case strings.HasPrefix(a, "-D"):
			name := a[2:]
			if eq := strings.IndexByte(name, '='); eq >= 0 {
				name = name[:eq]
			}
			if name != "" {
				p.defined[name] = struct{}{}
			}
		}
	}
	for _, rm := range inv.Remapped {
		p.remapped[paths.NormalizeFallback(rm.Path)] = rm.Content
	}
	return p
}

// enter stages path and processes it: directives first (recursing into
// includes), leaving the parse of the file body to the caller via the
// returned handle. Revisiting a file returns its existing handle without
// reprocessing, approximating include guards.
func (p *preprocessor) enter(path string) (engine.FileID, bool) {
	norm := paths.NormalizeFallback(path)
	if fid, ok := p.visited[norm]; ok {
		return fid, false
	}
	content, ok := p.remapped[norm]
	var mtime int64
	if !ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return engine.InvalidFile, false
		}
		content = string(data)
	}
	if st, err := os.Stat(path); err == nil {
		mtime = st.ModTime().Unix()
	}
	fid := p.tu.addFile(norm, mtime, content)
	p.visited[norm] = fid
	p.order = append(p.order, fid)
	p.consumer.HandleFileEntered(fid)
	p.scan(fid)
	return fid, true
}

// ppCond tracks one open preprocessor conditional.
type ppCond struct {
	zero     bool // literal #if 0
	openLine int32
}

// scan runs the directive scanner over one staged file.
func (p *preprocessor) scan(fid engine.FileID) {
	f := &p.tu.files[fid]
	lines := f.lines

	var conds []ppCond

	inBlockComment := false
	for ln := 0; ln < len(lines); ln++ {
		line := lines[ln]
		code, still := stripComments(line, inBlockComment)
		inBlockComment = still

		trimmed := strings.TrimLeft(code, " \t")
		if !strings.HasPrefix(trimmed, "#") {
			if !p.inSkipped(conds) {
				p.scanExpansions(fid, int32(ln), code)
			}
			continue
		}
		directive := strings.TrimLeft(trimmed[1:], " \t")
		word := directive
		if i := strings.IndexAny(word, " \t"); i >= 0 {
			word = word[:i]
		}
		rest := strings.TrimLeft(directive[len(word):], " \t")

		switch word {
		case "if", "ifdef", "ifndef":
			conds = append(conds, ppCond{
				zero:     word == "if" && strings.TrimSpace(rest) == "0",
				openLine: int32(ln),
			})
			continue
		case "elif", "else":
			if n := len(conds); n > 0 {
				if conds[n-1].zero {
					p.emitSkipped(fid, conds[n-1].openLine, int32(ln))
				}
				conds[n-1].zero = false
			}
			continue
		case "endif":
			if n := len(conds); n > 0 {
				if conds[n-1].zero {
					p.emitSkipped(fid, conds[n-1].openLine, int32(ln))
				}
				conds = conds[:n-1]
			}
			continue
		}
		if p.inSkipped(conds) {
			continue
		}

		switch word {
		case "include", "include_next":
			p.handleInclude(fid, int32(ln), line, rest)
		case "define":
			ln = p.handleDefine(fid, ln, line, rest)
		case "undef":
			name := strings.TrimSpace(rest)
			if i := strings.IndexAny(name, " \t"); i >= 0 {
				name = name[:i]
			}
			if name != "" {
				col := int32(strings.Index(line, name))
				p.consumer.HandleMacroUndefined(fid, name, tokenRange(int32(ln), col, len(name)))
				delete(p.defined, name)
			}
		}
	}
}

func (p *preprocessor) inSkipped(conds []ppCond) bool {
	for _, c := range conds {
		if c.zero {
			return true
		}
	}
	return false
}

func (p *preprocessor) emitSkipped(fid engine.FileID, open, close int32) {
	if close > open+1 {
		p.consumer.HandleRangeSkipped(fid, xref.Range{
			Start: xref.Pos{Line: open + 1, Column: 0},
			End:   xref.Pos{Line: close, Column: 0},
		})
	}
}

func (p *preprocessor) handleInclude(fid engine.FileID, ln int32, line, rest string) {
	if rest == "" {
		return
	}
	var name string
	var angled bool
	switch rest[0] {
	case '"':
		if end := strings.IndexByte(rest[1:], '"'); end >= 0 {
			name = rest[1 : 1+end]
		}
	case '<':
		angled = true
		if end := strings.IndexByte(rest, '>'); end > 0 {
			name = rest[1:end]
		}
	}
	if name == "" {
		return
	}
	// Spelling range covers the filename token including its delimiters.
	tok := string(rest[0]) + name
	col := int32(strings.Index(line, tok))
	spell := tokenRange(ln, col, len(name)+2)

	resolved := p.resolveInclude(fid, name, angled)
	if resolved == "" {
		return
	}
	p.consumer.HandleInclusion(fid, spell, resolved)
	if includableSource(resolved) {
		p.enter(resolved)
	}
}

// resolveInclude searches quote includes relative to the including file
// first, then the -I directories; angled includes skip the including file's
// directory.
func (p *preprocessor) resolveInclude(fid engine.FileID, name string, angled bool) string {
	var dirs []string
	if !angled {
		dirs = append(dirs, filepath.Dir(p.tu.files[fid].path))
	}
	dirs = append(dirs, p.inc...)
	for _, dir := range dirs {
		cand := filepath.Join(dir, filepath.FromSlash(name))
		if st, err := os.Stat(cand); err == nil && !st.IsDir() {
			return paths.NormalizeFallback(cand)
		}
	}
	return ""
}

// handleDefine emits the macro-defined event and returns the index of the
// last line consumed (backslash continuations extend the extent).
func (p *preprocessor) handleDefine(fid engine.FileID, ln int, line, rest string) int {
	name := rest
	for i := 0; i < len(name); i++ {
		if !isIdentByte(name[i]) {
			name = name[:i]
			break
		}
	}
	if name == "" {
		return ln
	}
	nameCol := int32(strings.Index(line, "define"))
	nameCol = int32(strings.Index(line[nameCol:], name)) + nameCol
	nameRng := tokenRange(int32(ln), nameCol, len(name))

	lines := p.tu.files[fid].lines
	endLn := ln
	for endLn < len(lines)-1 && strings.HasSuffix(strings.TrimRight(lines[endLn], " \t"), "\\") {
		endLn++
	}
	extent := xref.Range{
		Start: xref.Pos{Line: int32(ln), Column: nameCol},
		End:   xref.Pos{Line: int32(endLn), Column: int32(len(lines[endLn]))},
	}
	p.consumer.HandleMacroDefined(fid, name, nameRng, extent)
	p.defined[name] = struct{}{}
	return endLn
}

// scanExpansions reports identifier occurrences of defined macros on one
// non-directive line. code has comments blanked, preserving byte positions.
func (p *preprocessor) scanExpansions(fid engine.FileID, ln int32, code string) {
	for i := 0; i < len(code); {
		c := code[i]
		if c == '"' || c == '\'' {
			i = skipLiteral(code, i)
			continue
		}
		if !isIdentStart(c) {
			i++
			continue
		}
		j := i + 1
		for j < len(code) && isIdentByte(code[j]) {
			j++
		}
		name := code[i:j]
		if _, ok := p.defined[name]; ok {
			p.consumer.HandleMacroExpanded(fid, name, tokenRange(ln, int32(i), len(name)))
		}
		i = j
	}
}

// stripComments blanks comment bytes on one line so the scanner never
// matches inside them, preserving byte positions. Returns whether a block
// comment continues past the line.
func stripComments(line string, inBlock bool) (string, bool) {
	b := []byte(line)
	for i := 0; i < len(b); {
		if inBlock {
			if i+1 < len(b) && b[i] == '*' && b[i+1] == '/' {
				b[i], b[i+1] = ' ', ' '
				inBlock = false
				i += 2
				continue
			}
			b[i] = ' '
			i++
			continue
		}
		switch {
		case b[i] == '"' || b[i] == '\'':
			i = skipLiteral(string(b), i)
		case i+1 < len(b) && b[i] == '/' && b[i+1] == '/':
			for ; i < len(b); i++ {
				b[i] = ' '
			}
		case i+1 < len(b) && b[i] == '/' && b[i+1] == '*':
			b[i], b[i+1] = ' ', ' '
			i += 2
			inBlock = true
		default:
			i++
		}
	}
	return string(b), inBlock
}

// skipLiteral advances past a string or character literal starting at i.
func skipLiteral(s string, i int) int {
	quote := s[i]
	i++
	for i < len(s) {
		if s[i] == '\\' {
			i += 2
			continue
		}
		if s[i] == quote {
			return i + 1
		}
		i++
	}
	return i
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentByte(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

func tokenRange(line, col int32, length int) xref.Range {
	return xref.Range{
		Start: xref.Pos{Line: line, Column: col},
		End:   xref.Pos{Line: line, Column: col + int32(length)},
	}
}

// includableSource reports whether an included file should itself be
// scanned and walked.
func includableSource(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".h", ".hh", ".hpp", ".hxx", ".inc", ".inl", ".ipp", "":
		return true
	case ".c", ".cc", ".cpp", ".cxx":
		return true
	default:
		return false
	}
}
