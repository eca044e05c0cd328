// Package xref defines the per-file symbol cross-reference data model: the
// stable symbol key, location records, entity records for functions, types
// and variables, and the IndexFile that holds everything extracted from one
// physical file during an indexing pass.
package xref

// Usr is a stable 64-bit symbol key derived from the canonicalized textual
// reference of a declaration. Two occurrences of the same logical symbol,
// anywhere in a pass, resolve to the same Usr.
type Usr uint64

// Kind is the coarse storage kind of a symbol: which of the three entity
// maps it lives in.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindFile
	KindType
	KindFunc
	KindVar
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindType:
		return "type"
	case KindFunc:
		return "func"
	case KindVar:
		return "var"
	default:
		return "invalid"
	}
}

// SymbolKind is the fine-grained symbol kind. Values 1..26 follow the LSP
// numbering; values above 250 are local extensions.
type SymbolKind uint8

const (
	SymUnknown SymbolKind = 0

	SymFile          SymbolKind = 1
	SymModule        SymbolKind = 2
	SymNamespace     SymbolKind = 3
	SymPackage       SymbolKind = 4
	SymClass         SymbolKind = 5
	SymMethod        SymbolKind = 6
	SymProperty      SymbolKind = 7
	SymField         SymbolKind = 8
	SymConstructor   SymbolKind = 9
	SymEnum          SymbolKind = 10
	SymInterface     SymbolKind = 11
	SymFunction      SymbolKind = 12
	SymVariable      SymbolKind = 13
	SymConstant      SymbolKind = 14
	SymEnumMember    SymbolKind = 22
	SymStruct        SymbolKind = 23
	SymTypeParameter SymbolKind = 26

	// Local extensions.
	SymTypeAlias    SymbolKind = 252
	SymParameter    SymbolKind = 253
	SymStaticMethod SymbolKind = 254
	SymMacro        SymbolKind = 255
)

// Role is a bitset describing how a location relates to a symbol. Flags are
// not mutually exclusive; a single record may carry several.
type Role uint16

const (
	RoleDeclaration Role = 1 << iota
	RoleDefinition
	RoleReference
	RoleRead
	RoleWrite
	RoleCall
	// RoleDynamic marks macro-driven or otherwise indirect occurrences.
	RoleDynamic
	RoleAddress
	// RoleImplicit widens the recorded span by one column on each side when
	// rendered; used for implicit constructor/conversion references.
	RoleImplicit

	RoleNone Role = 0
)

// Language is a bitmask of source-language tags observed in one file.
type Language uint8

const (
	LangUnknown Language = 0
	LangC       Language = 1 << 0
	LangCpp     Language = 1 << 1
	LangObjC    Language = 1 << 2
)

// StorageClass mirrors the declared storage of a variable.
type StorageClass uint8

const (
	StorageNone StorageClass = iota
	StorageExtern
	StorageStatic
	StoragePrivateExtern
	StorageAuto
	StorageRegister
)

// Pos is a zero-based line/column position.
type Pos struct {
	Line   int32
	Column int32
}

// Range is a half-open [Start, End) span within one file.
type Range struct {
	Start Pos
	End   Pos
}

// Valid reports whether the range carries real coordinates.
func (r Range) Valid() bool { return r.Start.Line >= 0 }

// Contains reports whether p lies within the range.
func (r Range) Contains(line, column int32) bool {
	if line < r.Start.Line || line > r.End.Line {
		return false
	}
	if line == r.Start.Line && column < r.Start.Column {
		return false
	}
	if line == r.End.Line && column >= r.End.Column {
		return false
	}
	return true
}

// SymbolRef locates one symbol occurrence together with its key, coarse
// kind and roles. Used for callee edges.
type SymbolRef struct {
	Range Range
	Usr   Usr
	Kind  Kind
	Role  Role
}

// Use is a plain occurrence record. FileID is the local file index within
// the owning IndexFile's file table, or -1 for the owning file itself.
type Use struct {
	Range  Range
	Role   Role
	FileID int32
}

// DeclRef is a Use extended with the declaration's full extent, as opposed
// to just its name span.
type DeclRef struct {
	Use
	Extent Range
}

// Uniquify removes duplicates from a slice preserving first-seen order.
// Applying it twice yields the same result as applying it once.
func Uniquify[T comparable](a []T) []T {
	seen := make(map[T]struct{}, len(a))
	n := 0
	for _, v := range a {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		a[n] = v
		n++
	}
	return a[:n]
}
