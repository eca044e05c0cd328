//go:build cgo

package treesitter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cxref/internal/engine"
	"cxref/internal/xref"
)

type includeEvent struct {
	fid  engine.FileID
	path string
}

type macroEvent struct {
	fid     engine.FileID
	name    string
	nameRng xref.Range
	extent  xref.Range
}

// recorder captures preprocessor events for assertions.
type recorder struct {
	entered  []engine.FileID
	includes []includeEvent
	defines  []macroEvent
	expands  []macroEvent
	undefs   []macroEvent
	skips    []xref.Range
}

func (r *recorder) Initialize(engine.TU)        {}
func (r *recorder) HandleDecl(engine.DeclEvent) {}

func (r *recorder) HandleFileEntered(fid engine.FileID) {
	r.entered = append(r.entered, fid)
}

func (r *recorder) HandleInclusion(fid engine.FileID, _ xref.Range, resolved string) {
	r.includes = append(r.includes, includeEvent{fid: fid, path: resolved})
}

func (r *recorder) HandleMacroDefined(fid engine.FileID, name string, nameRng, extent xref.Range) {
	r.defines = append(r.defines, macroEvent{fid: fid, name: name, nameRng: nameRng, extent: extent})
}

func (r *recorder) HandleMacroExpanded(fid engine.FileID, name string, at xref.Range) {
	r.expands = append(r.expands, macroEvent{fid: fid, name: name, nameRng: at})
}

func (r *recorder) HandleMacroUndefined(fid engine.FileID, name string, at xref.Range) {
	r.undefs = append(r.undefs, macroEvent{fid: fid, name: name, nameRng: at})
}

func (r *recorder) HandleRangeSkipped(fid engine.FileID, rng xref.Range) {
	r.skips = append(r.skips, rng)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestPreprocessorScan(t *testing.T) {
	dir := t.TempDir()
	mainPath := filepath.Join(dir, "main.cc")
	writeFile(t, filepath.Join(dir, "a.h"), "#define A_H 1\nint a;\n")
	writeFile(t, mainPath, strings.Join([]string{
		`#include "a.h"`,
		`#include "a.h"`,
		"#define MAX 42",
		"int x = MAX; // MAX in comment",
		"#if 0",
		"disabled MAX",
		"#endif",
		"#undef MAX",
		"",
	}, "\n"))

	tu := newTU()
	rec := &recorder{}
	pp := newPreprocessor(tu, rec, &engine.Invocation{Main: mainPath})

	fid, fresh := pp.enter(mainPath)
	if !fresh || fid == engine.InvalidFile {
		t.Fatalf("enter = %v, %v", fid, fresh)
	}

	// The header is staged once despite being included twice.
	if len(pp.order) != 2 || len(rec.entered) != 2 {
		t.Fatalf("staged %d files, entered %d, want 2 each", len(pp.order), len(rec.entered))
	}
	if info, ok := tu.FileInfo(pp.order[1]); !ok || filepath.Base(info.Path) != "a.h" {
		t.Errorf("second staged file = %+v", info)
	}

	// Both include directives resolve to the same file.
	if len(rec.includes) != 2 || rec.includes[0].path != rec.includes[1].path ||
		filepath.Base(rec.includes[0].path) != "a.h" {
		t.Errorf("includes = %+v", rec.includes)
	}

	// a.h's define scans before main.cc's: enter recurses depth-first.
	if len(rec.defines) != 2 || rec.defines[0].name != "A_H" || rec.defines[1].name != "MAX" {
		t.Fatalf("defines = %+v", rec.defines)
	}
	max := rec.defines[1]
	if max.nameRng != tokenRange(2, 8, 3) {
		t.Errorf("MAX name range = %v", max.nameRng)
	}
	wantExtent := xref.Range{Start: xref.Pos{Line: 2, Column: 8}, End: xref.Pos{Line: 2, Column: 14}}
	if max.extent != wantExtent {
		t.Errorf("MAX extent = %v, want %v", max.extent, wantExtent)
	}

	// One expansion: the commented occurrence and the disabled region are
	// both invisible to the scanner.
	if len(rec.expands) != 1 || rec.expands[0].name != "MAX" ||
		rec.expands[0].nameRng != tokenRange(3, 8, 3) {
		t.Errorf("expands = %+v", rec.expands)
	}

	if len(rec.undefs) != 1 || rec.undefs[0].name != "MAX" ||
		rec.undefs[0].nameRng.Start.Line != 7 {
		t.Errorf("undefs = %+v", rec.undefs)
	}

	wantSkip := xref.Range{Start: xref.Pos{Line: 5, Column: 0}, End: xref.Pos{Line: 6, Column: 0}}
	if len(rec.skips) != 1 || rec.skips[0] != wantSkip {
		t.Errorf("skips = %+v, want %v", rec.skips, wantSkip)
	}
}

func TestPreprocessorIncludeDirs(t *testing.T) {
	dir := t.TempDir()
	incDir := filepath.Join(dir, "include")
	if err := os.MkdirAll(incDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(incDir, "lib.h"), "int lib;\n")
	mainPath := filepath.Join(dir, "main.cc")
	writeFile(t, mainPath, "#include <lib.h>\n")

	tu := newTU()
	rec := &recorder{}

	// Without -I the angled include does not resolve.
	pp := newPreprocessor(tu, rec, &engine.Invocation{Main: mainPath})
	pp.enter(mainPath)
	if len(rec.includes) != 0 {
		t.Errorf("unresolvable include still reported: %+v", rec.includes)
	}

	tu = newTU()
	rec = &recorder{}
	pp = newPreprocessor(tu, rec, &engine.Invocation{
		Main: mainPath,
		Args: []string{"-I", incDir},
	})
	pp.enter(mainPath)
	if len(rec.includes) != 1 || filepath.Base(rec.includes[0].path) != "lib.h" {
		t.Errorf("includes = %+v", rec.includes)
	}
	if len(rec.entered) != 2 {
		t.Errorf("entered %d files, want 2", len(rec.entered))
	}
}

func TestDefineContinuation(t *testing.T) {
	dir := t.TempDir()
	mainPath := filepath.Join(dir, "main.cc")
	writeFile(t, mainPath, "#define SUM(a, b) \\\n  ((a) + (b))\nint y = SUM(1, 2);\n")

	tu := newTU()
	rec := &recorder{}
	pp := newPreprocessor(tu, rec, &engine.Invocation{Main: mainPath})
	pp.enter(mainPath)

	if len(rec.defines) != 1 || rec.defines[0].name != "SUM" {
		t.Fatalf("defines = %+v", rec.defines)
	}
	ext := rec.defines[0].extent
	if ext.Start.Line != 0 || ext.End.Line != 1 {
		t.Errorf("continuation extent = %v", ext)
	}
	// The continuation body itself must not count as an expansion.
	if len(rec.expands) != 1 || rec.expands[0].nameRng != tokenRange(2, 8, 3) {
		t.Errorf("expands = %+v", rec.expands)
	}
}

func TestRemappedContent(t *testing.T) {
	dir := t.TempDir()
	mainPath := filepath.Join(dir, "main.cc")
	writeFile(t, mainPath, "#define OLD 1\n")

	tu := newTU()
	rec := &recorder{}
	pp := newPreprocessor(tu, rec, &engine.Invocation{
		Main: mainPath,
		Remapped: []engine.Remapped{
			{Path: mainPath, Content: "#define NEW 1\n"},
		},
	})
	pp.enter(mainPath)

	if len(rec.defines) != 1 || rec.defines[0].name != "NEW" {
		t.Errorf("remapped buffer not used: %+v", rec.defines)
	}
}

func TestStripComments(t *testing.T) {
	code, inBlock := stripComments("int x; // trailing", false)
	if inBlock || strings.Contains(code, "trailing") || len(code) != len("int x; // trailing") {
		t.Errorf("line comment: %q, %v", code, inBlock)
	}

	code, inBlock = stripComments("a /* open", false)
	if !inBlock || strings.Contains(code, "open") {
		t.Errorf("block open: %q, %v", code, inBlock)
	}
	code, inBlock = stripComments("still */ b", true)
	if inBlock || strings.Contains(code, "still") || !strings.Contains(code, "b") {
		t.Errorf("block close: %q, %v", code, inBlock)
	}

	lit := `s = "// not a comment";`
	code, inBlock = stripComments(lit, false)
	if inBlock || code != lit {
		t.Errorf("string literal mangled: %q", code)
	}
}

func TestSkipLiteral(t *testing.T) {
	s := `"ab\"c" x`
	if got := skipLiteral(s, 0); got != 7 {
		t.Errorf("skipLiteral = %d, want 7", got)
	}
	if got := skipLiteral(`"unterminated`, 0); got != len(`"unterminated`) {
		t.Errorf("unterminated = %d", got)
	}
}

func TestIncludableSource(t *testing.T) {
	for _, path := range []string{"a.h", "b.hpp", "c.inc", "d.inl", "e", "f.CC"} {
		if !includableSource(path) {
			t.Errorf("includableSource(%q) = false", path)
		}
	}
	for _, path := range []string{"lib.so", "data.json", "img.png"} {
		if includableSource(path) {
			t.Errorf("includableSource(%q) = true", path)
		}
	}
}

func TestBuildUSRFrom(t *testing.T) {
	w := &walker{}
	frames := []scopeFrame{
		{name: "ns", cat: engine.CatNamespace},
		{anon: true, cat: engine.CatNamespace},
		{name: "Cls", cat: engine.CatRecord},
	}
	got := w.buildUSRFrom(frames, "@F@", "f", "#int#")
	if got != "c:@N@ns@aN@S@Cls@F@f#int#" {
		t.Errorf("buildUSRFrom = %q", got)
	}

	got = w.buildUSRFrom(nil, "@S@", "Top", "")
	if got != "c:@S@Top" {
		t.Errorf("top-level = %q", got)
	}
}

func TestCollapseWS(t *testing.T) {
	if got := collapseWS("  void \t f ( ) \n {}"); got != "void f ( ) {}" {
		t.Errorf("collapseWS = %q", got)
	}
}

func TestParseIntLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"42", 42, true},
		{"0x2A", 42, true},
		{"0X2a", 42, true},
		{"42u", 42, true},
		{"10L", 10, true},
		{"7ull", 7, true},
		{"-7", -7, true},
		{"0", 0, true},
		{"", 0, false},
		{"abc", 0, false},
		{"0x", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseIntLiteral(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseIntLiteral(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestItoa(t *testing.T) {
	for _, tt := range []struct {
		in   int
		want string
	}{{0, "0"}, {7, "7"}, {42, "42"}, {-13, "-13"}} {
		if got := itoa(tt.in); got != tt.want {
			t.Errorf("itoa(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
