//go:build cgo

package treesitter

import (
	"errors"
	"strings"

	"cxref/internal/engine"
	"cxref/internal/xref"
)

// declRec is one declaration node in the per-pass arena. Slot 0 is unused so
// the zero NodeID stays invalid.
type declRec struct {
	info      engine.DeclInfo
	shortName string
	qualified string
	usr       string
	// printed is the rendered declaration syntax; set during the walk.
	printed string
	// comment is the raw doc comment preceding the declaration, with the
	// 1-based column of its first character.
	comment    string
	commentCol int32
	// local is set for declarations without linkage: locals, parameters,
	// template parameters.
	local bool
}

// typeRec is one type in the per-pass arena: either a builtin tag or a
// reference to a declaring node.
type typeRec struct {
	name      string
	decl      engine.NodeID
	builtin   uint8
	isBuiltin bool
	deduced   bool
}

// fileRec is one physical file staged into the pass.
type fileRec struct {
	path    string
	mtime   int64
	content string
	lines   []string
}

// tunit is the per-pass translation unit: arenas of files, declarations and
// types plus the canonicalization table. It implements engine.TU.
type tunit struct {
	files []fileRec // index 0 unused
	decls []declRec // index 0 unused
	types []typeRec // index 0 unused

	main engine.FileID

	// canon maps a node to the first node sharing its USR.
	canon   map[engine.NodeID]engine.NodeID
	byUsr   map[string]engine.NodeID
	typeIdx map[string]engine.TypeID

	// syms is the TU-wide name table used to bind references.
	syms *symtab
}

func newTU() *tunit {
	return &tunit{
		files:   make([]fileRec, 1),
		decls:   make([]declRec, 1),
		types:   make([]typeRec, 1),
		canon:   make(map[engine.NodeID]engine.NodeID),
		byUsr:   make(map[string]engine.NodeID),
		typeIdx: make(map[string]engine.TypeID),
		syms:    newSymtab(),
	}
}

func (t *tunit) addFile(path string, mtime int64, content string) engine.FileID {
	t.files = append(t.files, fileRec{
		path:    path,
		mtime:   mtime,
		content: content,
		lines:   strings.Split(content, "\n"),
	})
	return engine.FileID(len(t.files) - 1)
}

// addDecl appends a declaration record and canonicalizes it by USR: the
// first record with a given USR becomes canonical for all later ones.
func (t *tunit) addDecl(rec declRec) engine.NodeID {
	t.decls = append(t.decls, rec)
	id := engine.NodeID(len(t.decls) - 1)
	if first, ok := t.byUsr[rec.usr]; ok {
		t.canon[id] = first
	} else {
		t.byUsr[rec.usr] = id
		t.canon[id] = id
	}
	return id
}

func (t *tunit) decl(id engine.NodeID) *declRec {
	if id <= 0 || int(id) >= len(t.decls) {
		return nil
	}
	return &t.decls[id]
}

// internType registers a named type, binding it to its declaring node when
// one exists.
func (t *tunit) internType(name string, decl engine.NodeID) engine.TypeID {
	if id, ok := t.typeIdx[name]; ok {
		if decl != engine.InvalidNode && t.types[id].decl == engine.InvalidNode {
			t.types[id].decl = decl
		}
		return id
	}
	rec := typeRec{name: name, decl: decl}
	if b, ok := builtinTypes[name]; ok {
		rec.builtin = b
		rec.isBuiltin = true
	}
	rec.deduced = name == "auto" || strings.HasPrefix(name, "decltype(")
	t.types = append(t.types, rec)
	id := engine.TypeID(len(t.types) - 1)
	t.typeIdx[name] = id
	return id
}

// builtinTypes tags the primitive C/C++ type spellings. Values follow a
// fixed private numbering; only identity matters.
var builtinTypes = map[string]uint8{
	"void":               1,
	"bool":               2,
	"char":               3,
	"signed char":        4,
	"unsigned char":      5,
	"wchar_t":            6,
	"char16_t":           7,
	"char32_t":           8,
	"short":              9,
	"unsigned short":     10,
	"int":                11,
	"unsigned":           12,
	"unsigned int":       12,
	"long":               13,
	"unsigned long":      14,
	"long long":          15,
	"unsigned long long": 16,
	"float":              17,
	"double":             18,
	"long double":        19,
	"size_t":             20,
	"ssize_t":            21,
	"int8_t":             22,
	"uint8_t":            23,
	"int16_t":            24,
	"uint16_t":           25,
	"int32_t":            26,
	"uint32_t":           27,
	"int64_t":            28,
	"uint64_t":           29,
}

var errNoUSR = errors.New("declaration has no unique reference")

// MainFile implements engine.TU.
func (t *tunit) MainFile() engine.FileID { return t.main }

// FileInfo implements engine.TU.
func (t *tunit) FileInfo(fid engine.FileID) (engine.FileInfo, bool) {
	if fid <= 0 || int(fid) >= len(t.files) {
		return engine.FileInfo{}, false
	}
	f := &t.files[fid]
	return engine.FileInfo{Path: f.path, Mtime: f.mtime, Content: f.content}, true
}

// SourceText implements engine.TU.
func (t *tunit) SourceText(fid engine.FileID, r xref.Range) string {
	if fid <= 0 || int(fid) >= len(t.files) || !r.Valid() {
		return ""
	}
	lines := t.files[fid].lines
	if int(r.Start.Line) >= len(lines) || int(r.End.Line) >= len(lines) {
		return ""
	}
	if r.Start.Line == r.End.Line {
		line := lines[r.Start.Line]
		if int(r.Start.Column) > len(line) || int(r.End.Column) > len(line) ||
			r.Start.Column > r.End.Column {
			return ""
		}
		return line[r.Start.Column:r.End.Column]
	}
	var b strings.Builder
	first := lines[r.Start.Line]
	if int(r.Start.Column) > len(first) {
		return ""
	}
	b.WriteString(first[r.Start.Column:])
	for l := r.Start.Line + 1; l < r.End.Line; l++ {
		b.WriteByte('\n')
		b.WriteString(lines[l])
	}
	last := lines[r.End.Line]
	if int(r.End.Column) > len(last) {
		return ""
	}
	b.WriteByte('\n')
	b.WriteString(last[:r.End.Column])
	return b.String()
}

// Canonical implements engine.TU.
func (t *tunit) Canonical(id engine.NodeID) engine.NodeID {
	if c, ok := t.canon[id]; ok {
		return c
	}
	return id
}

// Info implements engine.TU.
func (t *tunit) Info(id engine.NodeID) engine.DeclInfo {
	if d := t.decl(id); d != nil {
		return d.info
	}
	return engine.DeclInfo{}
}

// USR implements engine.TU.
func (t *tunit) USR(id engine.NodeID) (string, error) {
	if d := t.decl(id); d != nil && d.usr != "" {
		return d.usr, nil
	}
	return "", errNoUSR
}

// ShortName implements engine.TU.
func (t *tunit) ShortName(id engine.NodeID) string {
	if d := t.decl(id); d != nil {
		return d.shortName
	}
	return ""
}

// QualifiedName implements engine.TU.
func (t *tunit) QualifiedName(id engine.NodeID) string {
	if d := t.decl(id); d != nil {
		return d.qualified
	}
	return ""
}

// PrintDecl implements engine.TU.
func (t *tunit) PrintDecl(id engine.NodeID) string {
	if d := t.decl(id); d != nil {
		return d.printed
	}
	return ""
}

// PrintType implements engine.TU.
func (t *tunit) PrintType(tid engine.TypeID) string {
	if tid <= 0 || int(tid) >= len(t.types) {
		return ""
	}
	return t.types[tid].name
}

// Comment implements engine.TU.
func (t *tunit) Comment(id engine.NodeID) (string, int32, bool) {
	d := t.decl(id)
	if d == nil {
		return "", 0, false
	}
	// Any redeclaration's comment serves.
	if d.comment == "" {
		canon := t.Canonical(id)
		for i := range t.decls[1:] {
			nid := engine.NodeID(i + 1)
			if t.Canonical(nid) == canon && t.decls[nid].comment != "" {
				d = &t.decls[nid]
				break
			}
		}
	}
	if d.comment == "" {
		return "", 0, false
	}
	return d.comment, d.commentCol, true
}

// ResolveType implements engine.TU. The tree-sitter engine never visits
// implicit specializations, so specialization is true whenever the type
// name carries template arguments but resolves to the primary template.
func (t *tunit) ResolveType(tid engine.TypeID) (engine.NodeID, bool) {
	if tid <= 0 || int(tid) >= len(t.types) {
		return engine.InvalidNode, false
	}
	rec := &t.types[tid]
	if rec.decl != engine.InvalidNode {
		return rec.decl, false
	}
	// Strip template arguments and retry against the primary template.
	if i := strings.IndexByte(rec.name, '<'); i > 0 {
		if base, ok := t.typeIdx[rec.name[:i]]; ok && t.types[base].decl != engine.InvalidNode {
			return t.types[base].decl, true
		}
	}
	return engine.InvalidNode, false
}

// BuiltinType implements engine.TU.
func (t *tunit) BuiltinType(tid engine.TypeID) (uint8, bool) {
	if tid <= 0 || int(tid) >= len(t.types) {
		return 0, false
	}
	rec := &t.types[tid]
	return rec.builtin, rec.isBuiltin
}

// IsDeducedType implements engine.TU.
func (t *tunit) IsDeducedType(tid engine.TypeID) bool {
	if tid <= 0 || int(tid) >= len(t.types) {
		return false
	}
	return t.types[tid].deduced
}

// FieldOffsetBytes implements engine.TU. Syntactic analysis cannot compute
// record layout, so offsets are never known.
func (t *tunit) FieldOffsetBytes(engine.NodeID) (int64, bool) {
	return 0, false
}

// RecordOfType implements engine.TU.
func (t *tunit) RecordOfType(tid engine.TypeID) engine.NodeID {
	decl, _ := t.ResolveType(tid)
	if d := t.decl(decl); d != nil && d.info.Category == engine.CatRecord {
		return decl
	}
	return engine.InvalidNode
}
