package store

import (
	"encoding/binary"
	"fmt"
	"sort"

	"cxref/internal/xref"
)

// Binary entry layout: magic, major/minor version, then the index fields in
// fixed order. Strings are uvarint-length-prefixed; location records use
// the fixed-field forms from the xref package; entity maps are written
// sorted by key so identical indexes produce identical bytes.
var binaryMagic = [4]byte{'C', 'X', 'I', 'X'}

func appendString(b []byte, s string) []byte {
	b = binary.AppendUvarint(b, uint64(len(s)))
	return append(b, s...)
}

func appendBool(b []byte, v bool) []byte {
	if v {
		return append(b, 1)
	}
	return append(b, 0)
}

func appendUsrs(b []byte, usrs []xref.Usr) []byte {
	b = binary.AppendUvarint(b, uint64(len(usrs)))
	for _, u := range usrs {
		b = binary.LittleEndian.AppendUint64(b, uint64(u))
	}
	return b
}

func appendDeclRefs(b []byte, refs []xref.DeclRef) []byte {
	b = binary.AppendUvarint(b, uint64(len(refs)))
	for _, r := range refs {
		b = xref.AppendBinaryDeclRef(b, r)
	}
	return b
}

func appendUses(b []byte, uses []xref.Use) []byte {
	b = binary.AppendUvarint(b, uint64(len(uses)))
	for _, u := range uses {
		b = xref.AppendBinaryUse(b, u)
	}
	return b
}

func appendOptDeclRef(b []byte, r *xref.DeclRef) []byte {
	if r == nil {
		return append(b, 0)
	}
	b = append(b, 1)
	return xref.AppendBinaryDeclRef(b, *r)
}

func appendNameMixin(b []byte, n *xref.NameMixin) []byte {
	b = appendString(b, n.DetailedName)
	b = binary.AppendVarint(b, int64(n.QualNameOffset))
	b = binary.AppendVarint(b, int64(n.ShortNameOffset))
	b = binary.AppendVarint(b, int64(n.ShortNameSize))
	return b
}

func sortedUsrKeys[T any](m map[xref.Usr]T) []xref.Usr {
	keys := make([]xref.Usr, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func encodeBinary(f *xref.IndexFile) []byte {
	b := append([]byte(nil), binaryMagic[:]...)
	b = binary.LittleEndian.AppendUint16(b, uint16(xref.MajorVersion))
	b = binary.LittleEndian.AppendUint16(b, uint16(xref.MinorVersion))

	b = appendString(b, f.Path)
	b = binary.AppendVarint(b, f.Mtime)
	b = appendBool(b, f.NoLinkage)
	b = appendString(b, f.MainFile)
	b = binary.AppendUvarint(b, uint64(len(f.Args)))
	for _, a := range f.Args {
		b = appendString(b, a)
	}
	b = append(b, byte(f.Language))

	b = binary.AppendUvarint(b, uint64(len(f.Includes)))
	for _, inc := range f.Includes {
		b = binary.AppendVarint(b, int64(inc.Line))
		b = appendString(b, inc.ResolvedPath)
	}
	b = binary.AppendUvarint(b, uint64(len(f.SkippedRanges)))
	for _, r := range f.SkippedRanges {
		b = xref.AppendBinaryRange(b, r)
	}

	deps := make([]string, 0, len(f.Dependencies))
	for p := range f.Dependencies {
		deps = append(deps, p)
	}
	sort.Strings(deps)
	b = binary.AppendUvarint(b, uint64(len(deps)))
	for _, p := range deps {
		b = appendString(b, p)
		b = binary.AppendVarint(b, f.Dependencies[p])
	}

	b = binary.AppendUvarint(b, uint64(len(f.FileTable)))
	for _, lf := range f.FileTable {
		b = binary.AppendVarint(b, int64(lf.ID))
		b = appendString(b, lf.Path)
	}

	b = binary.AppendUvarint(b, uint64(len(f.USR2Func)))
	for _, usr := range sortedUsrKeys(f.USR2Func) {
		fn := f.USR2Func[usr]
		b = binary.LittleEndian.AppendUint64(b, uint64(usr))
		b = appendNameMixin(b, &fn.Def.NameMixin)
		b = appendString(b, fn.Def.Hover)
		b = appendString(b, fn.Def.Comments)
		b = appendOptDeclRef(b, fn.Def.Spell)
		b = appendUsrs(b, fn.Def.Bases)
		b = appendUsrs(b, fn.Def.Vars)
		b = binary.AppendUvarint(b, uint64(len(fn.Def.Callees)))
		for _, c := range fn.Def.Callees {
			b = xref.AppendBinarySymbolRef(b, c)
		}
		b = append(b, byte(fn.Def.Kind), byte(fn.Def.ParentKind), byte(fn.Def.Storage))
		b = appendDeclRefs(b, fn.Declarations)
		b = appendUses(b, fn.Uses)
		b = appendUsrs(b, fn.Derived)
	}

	b = binary.AppendUvarint(b, uint64(len(f.USR2Type)))
	for _, usr := range sortedUsrKeys(f.USR2Type) {
		t := f.USR2Type[usr]
		b = binary.LittleEndian.AppendUint64(b, uint64(usr))
		b = appendNameMixin(b, &t.Def.NameMixin)
		b = appendString(b, t.Def.Hover)
		b = appendString(b, t.Def.Comments)
		b = appendOptDeclRef(b, t.Def.Spell)
		b = appendUsrs(b, t.Def.Bases)
		b = appendUsrs(b, t.Def.Funcs)
		b = appendUsrs(b, t.Def.Types)
		b = binary.AppendUvarint(b, uint64(len(t.Def.Vars)))
		for _, v := range t.Def.Vars {
			b = binary.LittleEndian.AppendUint64(b, uint64(v.Usr))
			b = binary.AppendVarint(b, v.Offset)
		}
		b = binary.LittleEndian.AppendUint64(b, uint64(t.Def.AliasOf))
		b = append(b, byte(t.Def.Kind), byte(t.Def.ParentKind))
		b = appendDeclRefs(b, t.Declarations)
		b = appendUses(b, t.Uses)
		b = appendUsrs(b, t.Derived)
		b = appendUsrs(b, t.Instances)
	}

	b = binary.AppendUvarint(b, uint64(len(f.USR2Var)))
	for _, usr := range sortedUsrKeys(f.USR2Var) {
		v := f.USR2Var[usr]
		b = binary.LittleEndian.AppendUint64(b, uint64(usr))
		b = appendNameMixin(b, &v.Def.NameMixin)
		b = appendString(b, v.Def.Hover)
		b = appendString(b, v.Def.Comments)
		b = appendOptDeclRef(b, v.Def.Spell)
		b = binary.LittleEndian.AppendUint64(b, uint64(v.Def.Type))
		b = append(b, byte(v.Def.Kind), byte(v.Def.ParentKind), byte(v.Def.Storage))
		b = appendDeclRefs(b, v.Declarations)
		b = appendUses(b, v.Uses)
	}
	return b
}

// binReader is a cursor over a binary entry; the first failure sticks and
// zeroes every later read.
type binReader struct {
	b   []byte
	err error
}

func (r *binReader) fail(what string) {
	if r.err == nil {
		r.err = fmt.Errorf("truncated cache entry at %s", what)
	}
}

func (r *binReader) bytes(n int, what string) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.b) < n {
		r.fail(what)
		return nil
	}
	out := r.b[:n]
	r.b = r.b[n:]
	return out
}

func (r *binReader) uvarint(what string) uint64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Uvarint(r.b)
	if n <= 0 {
		r.fail(what)
		return 0
	}
	r.b = r.b[n:]
	return v
}

func (r *binReader) varint(what string) int64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Varint(r.b)
	if n <= 0 {
		r.fail(what)
		return 0
	}
	r.b = r.b[n:]
	return v
}

func (r *binReader) str(what string) string {
	n := r.uvarint(what)
	return string(r.bytes(int(n), what))
}

func (r *binReader) boolean(what string) bool {
	b := r.bytes(1, what)
	return len(b) == 1 && b[0] != 0
}

func (r *binReader) byteVal(what string) byte {
	b := r.bytes(1, what)
	if len(b) != 1 {
		return 0
	}
	return b[0]
}

func (r *binReader) u64(what string) uint64 {
	b := r.bytes(8, what)
	if len(b) != 8 {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *binReader) u16(what string) uint16 {
	b := r.bytes(2, what)
	if len(b) != 2 {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *binReader) rng(what string) xref.Range {
	b := r.bytes(xref.RangeBinaryLen, what)
	if b == nil {
		return xref.Range{}
	}
	v, err := xref.ReadBinaryRange(b)
	if err != nil && r.err == nil {
		r.err = err
	}
	return v
}

func (r *binReader) use(what string) xref.Use {
	b := r.bytes(xref.UseBinaryLen, what)
	if b == nil {
		return xref.Use{}
	}
	v, err := xref.ReadBinaryUse(b)
	if err != nil && r.err == nil {
		r.err = err
	}
	return v
}

func (r *binReader) declRef(what string) xref.DeclRef {
	b := r.bytes(xref.DeclRefBinaryLen, what)
	if b == nil {
		return xref.DeclRef{}
	}
	v, err := xref.ReadBinaryDeclRef(b)
	if err != nil && r.err == nil {
		r.err = err
	}
	return v
}

func (r *binReader) symbolRef(what string) xref.SymbolRef {
	b := r.bytes(xref.SymbolRefBinaryLen, what)
	if b == nil {
		return xref.SymbolRef{}
	}
	v, err := xref.ReadBinarySymbolRef(b)
	if err != nil && r.err == nil {
		r.err = err
	}
	return v
}

func (r *binReader) usrs(what string) []xref.Usr {
	n := r.uvarint(what)
	if r.err != nil || n == 0 {
		return nil
	}
	out := make([]xref.Usr, 0, n)
	for i := uint64(0); i < n && r.err == nil; i++ {
		out = append(out, xref.Usr(r.u64(what)))
	}
	return out
}

func (r *binReader) declRefs(what string) []xref.DeclRef {
	n := r.uvarint(what)
	if r.err != nil || n == 0 {
		return nil
	}
	out := make([]xref.DeclRef, 0, n)
	for i := uint64(0); i < n && r.err == nil; i++ {
		out = append(out, r.declRef(what))
	}
	return out
}

func (r *binReader) uses(what string) []xref.Use {
	n := r.uvarint(what)
	if r.err != nil || n == 0 {
		return nil
	}
	out := make([]xref.Use, 0, n)
	for i := uint64(0); i < n && r.err == nil; i++ {
		out = append(out, r.use(what))
	}
	return out
}

func (r *binReader) optDeclRef(what string) *xref.DeclRef {
	if !r.boolean(what) {
		return nil
	}
	v := r.declRef(what)
	return &v
}

func (r *binReader) nameMixin(n *xref.NameMixin, what string) {
	n.DetailedName = r.str(what)
	n.QualNameOffset = int32(r.varint(what))
	n.ShortNameOffset = int32(r.varint(what))
	n.ShortNameSize = int32(r.varint(what))
}

func decodeBinary(raw []byte) (*xref.IndexFile, error) {
	r := &binReader{b: raw}
	magic := r.bytes(4, "magic")
	if r.err != nil {
		return nil, r.err
	}
	if string(magic) != string(binaryMagic[:]) {
		return nil, fmt.Errorf("not a binary cache entry")
	}
	major, minor := int(r.u16("version")), int(r.u16("version"))
	if major != xref.MajorVersion || minor != xref.MinorVersion {
		return nil, fmt.Errorf("%w: got %d.%d, want %d.%d", ErrVersionMismatch,
			major, minor, xref.MajorVersion, xref.MinorVersion)
	}

	f := xref.NewIndexFile(r.str("path"), "", false)
	f.Mtime = r.varint("mtime")
	f.NoLinkage = r.boolean("no_linkage")
	f.MainFile = r.str("main_file")
	if n := r.uvarint("args"); n > 0 {
		f.Args = make([]string, 0, n)
		for i := uint64(0); i < n && r.err == nil; i++ {
			f.Args = append(f.Args, r.str("args"))
		}
	}
	f.Language = xref.Language(r.byteVal("language"))

	if n := r.uvarint("includes"); n > 0 {
		f.Includes = make([]xref.Include, 0, n)
		for i := uint64(0); i < n && r.err == nil; i++ {
			line := int32(r.varint("includes"))
			f.Includes = append(f.Includes, xref.Include{Line: line, ResolvedPath: r.str("includes")})
		}
	}
	if n := r.uvarint("skipped_ranges"); n > 0 {
		f.SkippedRanges = make([]xref.Range, 0, n)
		for i := uint64(0); i < n && r.err == nil; i++ {
			f.SkippedRanges = append(f.SkippedRanges, r.rng("skipped_ranges"))
		}
	}
	for i, n := uint64(0), r.uvarint("dependencies"); i < n && r.err == nil; i++ {
		p := r.str("dependencies")
		f.Dependencies[p] = r.varint("dependencies")
	}
	if n := r.uvarint("file_table"); n > 0 {
		f.FileTable = make([]xref.LocalFile, 0, n)
		for i := uint64(0); i < n && r.err == nil; i++ {
			id := int32(r.varint("file_table"))
			f.FileTable = append(f.FileTable, xref.LocalFile{ID: id, Path: r.str("file_table")})
		}
	}

	for i, n := uint64(0), r.uvarint("funcs"); i < n && r.err == nil; i++ {
		fn := f.ToFunc(xref.Usr(r.u64("funcs")))
		r.nameMixin(&fn.Def.NameMixin, "funcs")
		fn.Def.Hover = r.str("funcs")
		fn.Def.Comments = r.str("funcs")
		fn.Def.Spell = r.optDeclRef("funcs")
		fn.Def.Bases = r.usrs("funcs")
		fn.Def.Vars = r.usrs("funcs")
		if c := r.uvarint("callees"); c > 0 {
			fn.Def.Callees = make([]xref.SymbolRef, 0, c)
			for j := uint64(0); j < c && r.err == nil; j++ {
				fn.Def.Callees = append(fn.Def.Callees, r.symbolRef("callees"))
			}
		}
		fn.Def.Kind = xref.SymbolKind(r.byteVal("funcs"))
		fn.Def.ParentKind = xref.SymbolKind(r.byteVal("funcs"))
		fn.Def.Storage = xref.StorageClass(r.byteVal("funcs"))
		fn.Declarations = r.declRefs("funcs")
		fn.Uses = r.uses("funcs")
		fn.Derived = r.usrs("funcs")
	}

	for i, n := uint64(0), r.uvarint("types"); i < n && r.err == nil; i++ {
		t := f.ToType(xref.Usr(r.u64("types")))
		r.nameMixin(&t.Def.NameMixin, "types")
		t.Def.Hover = r.str("types")
		t.Def.Comments = r.str("types")
		t.Def.Spell = r.optDeclRef("types")
		t.Def.Bases = r.usrs("types")
		t.Def.Funcs = r.usrs("types")
		t.Def.Types = r.usrs("types")
		if c := r.uvarint("type vars"); c > 0 {
			t.Def.Vars = make([]xref.SymOffset, 0, c)
			for j := uint64(0); j < c && r.err == nil; j++ {
				usr := xref.Usr(r.u64("type vars"))
				t.Def.Vars = append(t.Def.Vars, xref.SymOffset{Usr: usr, Offset: r.varint("type vars")})
			}
		}
		t.Def.AliasOf = xref.Usr(r.u64("types"))
		t.Def.Kind = xref.SymbolKind(r.byteVal("types"))
		t.Def.ParentKind = xref.SymbolKind(r.byteVal("types"))
		t.Declarations = r.declRefs("types")
		t.Uses = r.uses("types")
		t.Derived = r.usrs("types")
		t.Instances = r.usrs("types")
	}

	for i, n := uint64(0), r.uvarint("vars"); i < n && r.err == nil; i++ {
		v := f.ToVar(xref.Usr(r.u64("vars")))
		r.nameMixin(&v.Def.NameMixin, "vars")
		v.Def.Hover = r.str("vars")
		v.Def.Comments = r.str("vars")
		v.Def.Spell = r.optDeclRef("vars")
		v.Def.Type = xref.Usr(r.u64("vars"))
		v.Def.Kind = xref.SymbolKind(r.byteVal("vars"))
		v.Def.ParentKind = xref.SymbolKind(r.byteVal("vars"))
		v.Def.Storage = xref.StorageClass(r.byteVal("vars"))
		v.Declarations = r.declRefs("vars")
		v.Uses = r.uses("vars")
	}

	if r.err != nil {
		return nil, r.err
	}
	return f, nil
}
