package store

import (
	"errors"
	"os"
	"testing"

	"cxref/internal/paths"
	"cxref/internal/xref"
)

// sampleIndex builds an entry exercising every persisted section.
func sampleIndex() *xref.IndexFile {
	f := xref.NewIndexFile("/src/widget.cc", "", false)
	f.Mtime = 1700000000
	f.MainFile = "/src/widget.cc"
	f.Args = []string{"-Iinclude", "-DNDEBUG"}
	f.Language = xref.LangCpp
	f.Includes = []xref.Include{{Line: 0, ResolvedPath: "/src/widget.h"}}
	f.SkippedRanges = []xref.Range{
		{Start: xref.Pos{Line: 10, Column: 0}, End: xref.Pos{Line: 14, Column: 0}},
	}
	f.Dependencies["/src/widget.h"] = 1699990000

	f.AddLocalFile(3, "/src/widget.h")
	f.FlattenFileTable()

	fn := f.ToFunc(101)
	fn.Def.DetailedName = "void Widget::draw()"
	fn.Def.QualNameOffset = 5
	fn.Def.ShortNameOffset = 13
	fn.Def.ShortNameSize = 4
	fn.Def.Kind = xref.SymMethod
	fn.Def.ParentKind = xref.SymClass
	fn.Def.Comments = "Draws the widget."
	fn.Def.Spell = &xref.DeclRef{
		Use: xref.Use{
			Range:  xref.Range{Start: xref.Pos{Line: 20, Column: 13}, End: xref.Pos{Line: 20, Column: 17}},
			Role:   xref.RoleDefinition,
			FileID: -1,
		},
		Extent: xref.Range{Start: xref.Pos{Line: 20, Column: 0}, End: xref.Pos{Line: 24, Column: 1}},
	}
	fn.Def.Callees = []xref.SymbolRef{
		{
			Range: xref.Range{Start: xref.Pos{Line: 22, Column: 2}, End: xref.Pos{Line: 22, Column: 7}},
			Usr:   202,
			Kind:  xref.KindFunc,
			Role:  xref.RoleCall,
		},
	}
	fn.Uses = []xref.Use{
		{Range: xref.Range{Start: xref.Pos{Line: 30, Column: 4}, End: xref.Pos{Line: 30, Column: 8}},
			Role: xref.RoleCall | xref.RoleReference, FileID: -1},
	}
	fn.Derived = []xref.Usr{303}

	ty := f.ToType(404)
	ty.Def.DetailedName = "Widget"
	ty.Def.ShortNameSize = 6
	ty.Def.Kind = xref.SymClass
	ty.Def.Bases = []xref.Usr{505}
	ty.Def.Funcs = []xref.Usr{101}
	ty.Def.Vars = []xref.SymOffset{{Usr: 606, Offset: 8}, {Usr: 607, Offset: -1}}
	ty.Def.AliasOf = 0
	ty.Instances = []xref.Usr{606}

	v := f.ToVar(606)
	v.Def.DetailedName = "int Widget::width"
	v.Def.Kind = xref.SymField
	v.Def.Type = 404
	v.Declarations = []xref.DeclRef{
		{
			Use: xref.Use{
				Range:  xref.Range{Start: xref.Pos{Line: 5, Column: 6}, End: xref.Pos{Line: 5, Column: 11}},
				Role:   xref.RoleDeclaration,
				FileID: 0,
			},
			Extent: xref.Range{Start: xref.Pos{Line: 5, Column: 2}, End: xref.Pos{Line: 5, Column: 12}},
		},
	}
	return f
}

func assertRoundTrip(t *testing.T, format Format) {
	t.Helper()
	dir := t.TempDir()
	s, err := New(dir, format)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer s.Close()

	orig := sampleIndex()
	if err := s.Save(orig); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.Load(orig.Path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got.Path != orig.Path || got.Mtime != orig.Mtime || got.MainFile != orig.MainFile {
		t.Errorf("identity fields differ: %+v", got)
	}
	if len(got.Args) != 2 || got.Args[0] != "-Iinclude" {
		t.Errorf("Args = %v", got.Args)
	}
	if got.Language != xref.LangCpp {
		t.Errorf("Language = %v", got.Language)
	}
	if len(got.Includes) != 1 || got.Includes[0].ResolvedPath != "/src/widget.h" {
		t.Errorf("Includes = %+v", got.Includes)
	}
	if len(got.SkippedRanges) != 1 || got.SkippedRanges[0] != orig.SkippedRanges[0] {
		t.Errorf("SkippedRanges = %+v", got.SkippedRanges)
	}
	if got.Dependencies["/src/widget.h"] != 1699990000 {
		t.Errorf("Dependencies = %v", got.Dependencies)
	}
	if len(got.FileTable) != 1 || got.FileTable[0].Path != "/src/widget.h" {
		t.Errorf("FileTable = %+v", got.FileTable)
	}

	fn, ok := got.USR2Func[101]
	if !ok {
		t.Fatal("function entity missing")
	}
	if fn.Def.DetailedName != "void Widget::draw()" || fn.Def.ShortName() != "draw" {
		t.Errorf("function names: %q / %q", fn.Def.DetailedName, fn.Def.ShortName())
	}
	if fn.Def.Spell == nil || *fn.Def.Spell != *sampleIndex().USR2Func[101].Def.Spell {
		t.Errorf("Spell = %+v", fn.Def.Spell)
	}
	if len(fn.Def.Callees) != 1 || fn.Def.Callees[0].Usr != 202 {
		t.Errorf("Callees = %+v", fn.Def.Callees)
	}
	if len(fn.Uses) != 1 || len(fn.Derived) != 1 || fn.Derived[0] != 303 {
		t.Errorf("Uses/Derived = %+v / %+v", fn.Uses, fn.Derived)
	}

	ty, ok := got.USR2Type[404]
	if !ok {
		t.Fatal("type entity missing")
	}
	if len(ty.Def.Vars) != 2 || ty.Def.Vars[0] != (xref.SymOffset{Usr: 606, Offset: 8}) {
		t.Errorf("type Vars = %+v", ty.Def.Vars)
	}
	if len(ty.Def.Bases) != 1 || ty.Def.Bases[0] != 505 {
		t.Errorf("type Bases = %+v", ty.Def.Bases)
	}
	if len(ty.Instances) != 1 || ty.Instances[0] != 606 {
		t.Errorf("Instances = %+v", ty.Instances)
	}

	v, ok := got.USR2Var[606]
	if !ok {
		t.Fatal("variable entity missing")
	}
	if v.Def.Type != 404 || len(v.Declarations) != 1 || v.Declarations[0].FileID != 0 {
		t.Errorf("variable = %+v", v)
	}
}

func TestSaveLoadJSON(t *testing.T) {
	assertRoundTrip(t, FormatJSON)
}

func TestSaveLoadBinary(t *testing.T) {
	assertRoundTrip(t, FormatBinary)
}

func TestLoadMissing(t *testing.T) {
	s, err := New(t.TempDir(), FormatJSON)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer s.Close()

	if _, err := s.Load("/no/such/file.cc"); err == nil {
		t.Error("Load of missing entry succeeded, want error")
	}
}

func TestVersionMismatch(t *testing.T) {
	t.Run("binary", func(t *testing.T) {
		dir := t.TempDir()
		s, err := New(dir, FormatBinary)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer s.Close()

		orig := sampleIndex()
		if err := s.Save(orig); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		// Corrupt the stored version pair.
		p := paths.CachePath(dir, orig.Path, "blob.zst")
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}
		raw, err := s.dec.DecodeAll(data, nil)
		if err != nil {
			t.Fatalf("decompress failed: %v", err)
		}
		raw[4] ^= 0xFF // major version low byte follows the 4-byte magic
		recompressed := s.enc.EncodeAll(raw, nil)
		if err := os.WriteFile(p, recompressed, 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}

		if _, err := s.Load(orig.Path); !errors.Is(err, ErrVersionMismatch) {
			t.Errorf("Load error = %v, want ErrVersionMismatch", err)
		}
	})

	t.Run("json", func(t *testing.T) {
		dir := t.TempDir()
		s, err := New(dir, FormatJSON)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer s.Close()

		orig := sampleIndex()
		if err := s.Save(orig); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		p := paths.CachePath(dir, orig.Path, "json.zst")
		stale := s.enc.EncodeAll([]byte(`{"major_version":1,"minor_version":0,"index":{}}`), nil)
		if err := os.WriteFile(p, stale, 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}

		if _, err := s.Load(orig.Path); !errors.Is(err, ErrVersionMismatch) {
			t.Errorf("Load error = %v, want ErrVersionMismatch", err)
		}
	})
}

func TestNoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, FormatJSON)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer s.Close()

	if err := s.Save(sampleIndex()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if len(e.Name()) > 4 && e.Name()[len(e.Name())-4:] == ".tmp" {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
