//go:build cgo

package treesitter

import (
	"io"
	"path/filepath"
	"strings"
	"testing"

	"cxref/internal/indexer"
	"cxref/internal/logging"
	"cxref/internal/wfiles"
	"cxref/internal/xref"
)

func quietLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{
		Format: logging.HumanFormat,
		Level:  logging.ErrorLevel,
		Output: io.Discard,
	})
}

// indexSource runs one full pass over a single source file and returns the
// finalized index of the main file.
func indexSource(t *testing.T, name, src string) *xref.IndexFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	writeFile(t, path, src)

	eng, err := New(quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	ix := indexer.NewIndexer(eng, wfiles.NewStore(), nil, nil, quietLogger(),
		indexer.Options{Comments: 2, MaxInitializerLines: 5})
	results, ok := ix.Index(path, nil, nil, false)
	if !ok {
		t.Fatalf("indexing %s failed", name)
	}
	for _, db := range results {
		if strings.HasSuffix(db.Path, name) {
			return db
		}
	}
	t.Fatalf("no index entry for %s in %d results", name, len(results))
	return nil
}

func findType(t *testing.T, db *xref.IndexFile, detailed string) (xref.Usr, *xref.IndexType) {
	t.Helper()
	for usr, typ := range db.USR2Type {
		if typ.Def.DetailedName == detailed {
			return usr, typ
		}
	}
	t.Fatalf("no type named %q", detailed)
	return 0, nil
}

func findFunc(t *testing.T, db *xref.IndexFile, detailed string) (xref.Usr, *xref.IndexFunc) {
	t.Helper()
	for usr, fn := range db.USR2Func {
		if fn.Def.DetailedName == detailed {
			return usr, fn
		}
	}
	t.Fatalf("no function named %q", detailed)
	return 0, nil
}

func findVar(t *testing.T, db *xref.IndexFile, detailed string) (xref.Usr, *xref.IndexVar) {
	t.Helper()
	for usr, v := range db.USR2Var {
		if v.Def.DetailedName == detailed {
			return usr, v
		}
	}
	t.Fatalf("no variable named %q", detailed)
	return 0, nil
}

func TestRecordMembers(t *testing.T) {
	db := indexSource(t, "main.cc", strings.Join([]string{
		"struct A {",
		"  int x;",
		"  int y;",
		"};",
	}, "\n")+"\n")

	usrX, _ := findVar(t, db, "int A::x")
	usrY, _ := findVar(t, db, "int A::y")

	_, typ := findType(t, db, "A")
	if typ.Def.Kind != xref.SymStruct {
		t.Errorf("A kind = %v, want SymStruct", typ.Def.Kind)
	}
	if len(typ.Def.Vars) != 2 {
		t.Fatalf("A member vars = %d, want 2", len(typ.Def.Vars))
	}
	if typ.Def.Vars[0].Usr != usrX || typ.Def.Vars[1].Usr != usrY {
		t.Errorf("A member vars = %v, want [x y] = [%v %v]",
			typ.Def.Vars, usrX, usrY)
	}
	// Layout is unknown to a syntactic pass.
	for _, m := range typ.Def.Vars {
		if m.Offset != -1 {
			t.Errorf("member %v offset = %d, want -1", m.Usr, m.Offset)
		}
	}
}

func TestTypedefNamesAnonymousRecord(t *testing.T) {
	db := indexSource(t, "main.c", strings.Join([]string{
		"typedef struct {",
		"  int x;",
		"} Foo;",
	}, "\n")+"\n")

	usrX, _ := findVar(t, db, "int x")
	recUsr, rec := findType(t, db, "anon struct Foo")
	if len(rec.Def.Vars) != 1 || rec.Def.Vars[0].Usr != usrX {
		t.Errorf("anon record vars = %v, want [%v]", rec.Def.Vars, usrX)
	}

	_, alias := findType(t, db, "typedef struct Foo")
	if alias.Def.AliasOf != recUsr {
		t.Errorf("alias AliasOf = %v, want %v", alias.Def.AliasOf, recUsr)
	}
}

func TestDerivedRecord(t *testing.T) {
	db := indexSource(t, "main.cc", strings.Join([]string{
		"struct B {",
		"  virtual void f();",
		"};",
		"struct D : B {",
		"  void f() override;",
		"};",
	}, "\n")+"\n")

	usrB, typB := findType(t, db, "B")
	usrD, typD := findType(t, db, "D")
	if len(typD.Def.Bases) != 1 || typD.Def.Bases[0] != usrB {
		t.Errorf("D bases = %v, want [%v]", typD.Def.Bases, usrB)
	}
	if len(typB.Derived) != 1 || typB.Derived[0] != usrD {
		t.Errorf("B derived = %v, want [%v]", typB.Derived, usrD)
	}
	// The base clause spells a reference to B.
	var refs int
	for _, u := range typB.Uses {
		if u.Role&xref.RoleReference != 0 {
			refs++
		}
	}
	if refs == 0 {
		t.Error("no reference use of B recorded for the base clause")
	}

	usrBF, fnBF := findFunc(t, db, "void B::f()")
	usrDF, fnDF := findFunc(t, db, "void D::f() override")
	if len(fnDF.Def.Bases) != 1 || fnDF.Def.Bases[0] != usrBF {
		t.Errorf("D::f bases = %v, want [%v]", fnDF.Def.Bases, usrBF)
	}
	if len(fnBF.Derived) != 1 || fnBF.Derived[0] != usrDF {
		t.Errorf("B::f derived = %v, want [%v]", fnBF.Derived, usrDF)
	}
}

func TestOutOfLineMethod(t *testing.T) {
	db := indexSource(t, "main.cc", strings.Join([]string{
		"struct S {",
		"  void m();",
		"};",
		"void S::m() {",
		"}",
	}, "\n")+"\n")

	_, typS := findType(t, db, "S")
	usrM, fn := findFunc(t, db, "void S::m()")

	if fn.Def.Spell == nil {
		t.Fatal("out-of-line definition did not set the spell")
	}
	// The defining spell narrows to the name tokens on line 4.
	if got := fn.Def.Spell.Range; got.Start.Line != 3 || got.Start.Column != 8 {
		t.Errorf("definition spell = %v, want start 3:8", got)
	}
	if fn.Def.Spell.Extent.End.Line != 4 {
		t.Errorf("definition extent = %v, want end on line 4", fn.Def.Spell.Extent)
	}
	if len(fn.Declarations) != 1 {
		t.Errorf("declarations = %d, want 1 (the in-class prototype)", len(fn.Declarations))
	}
	if fn.Declarations[0].Range.Start.Line != 1 {
		t.Errorf("declaration spell = %v, want line 1", fn.Declarations[0].Range)
	}
	// Both occurrences attach the method to S exactly once.
	if len(typS.Def.Funcs) != 1 || typS.Def.Funcs[0] != usrM {
		t.Errorf("S funcs = %v, want [%v]", typS.Def.Funcs, usrM)
	}
}

func TestMacroEntities(t *testing.T) {
	db := indexSource(t, "main.cc", strings.Join([]string{
		"#define MAX 42",
		"int x = MAX;",
	}, "\n")+"\n")

	_, macro := findVar(t, db, "MAX")
	if macro.Def.Kind != xref.SymMacro {
		t.Errorf("MAX kind = %v, want SymMacro", macro.Def.Kind)
	}
	if macro.Def.Hover != "#define MAX 42" {
		t.Errorf("MAX hover = %q, want %q", macro.Def.Hover, "#define MAX 42")
	}
	if len(macro.Uses) != 1 {
		t.Fatalf("MAX uses = %d, want 1", len(macro.Uses))
	}
	use := macro.Uses[0]
	if use.Role != xref.RoleDynamic || use.FileID != -1 {
		t.Errorf("MAX use = %+v, want dynamic role in the owning file", use)
	}
	if use.Range.Start.Line != 1 || use.Range.Start.Column != 8 {
		t.Errorf("MAX use range = %v, want start 1:8", use.Range)
	}

	_, v := findVar(t, db, "int x")
	if v.Def.Hover != "int x = MAX" {
		t.Errorf("x hover = %q, want %q", v.Def.Hover, "int x = MAX")
	}
}
