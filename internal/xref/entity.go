package xref

// NameMixin carries the rendered signature of a symbol and the byte offsets
// locating its name within that rendition. ShortNameOffset points at the
// (qualified) short name; QualNameOffset points at the start of the
// qualification scan.
type NameMixin struct {
	DetailedName    string `json:"detailed_name"`
	QualNameOffset  int32  `json:"qual_name_offset"`
	ShortNameOffset int32  `json:"short_name_offset"`
	ShortNameSize   int32  `json:"short_name_size"`
}

// ShortName returns the short display name sliced out of the detailed name.
func (n *NameMixin) ShortName() string {
	end := n.ShortNameOffset + n.ShortNameSize
	if n.ShortNameOffset < 0 || end > int32(len(n.DetailedName)) {
		return ""
	}
	return n.DetailedName[n.ShortNameOffset:end]
}

// FuncDef is the authoritative definition record of a function entity.
type FuncDef struct {
	NameMixin
	Hover    string `json:"hover,omitempty"`
	Comments string `json:"comments,omitempty"`
	// Spell is the defining occurrence: name span plus full extent.
	Spell *DeclRef `json:"spell,omitempty"`
	// Bases holds the keys of overridden virtual methods.
	Bases []Usr `json:"bases,omitempty"`
	// Vars holds contained local variables and parameters.
	Vars []Usr `json:"vars,omitempty"`
	// Callees are call edges out of this function's body.
	Callees []SymbolRef `json:"callees,omitempty"`
	Kind    SymbolKind  `json:"kind"`
	// ParentKind is the fine kind of the semantic container at definition.
	ParentKind SymbolKind   `json:"parent_kind"`
	Storage    StorageClass `json:"storage"`
}

// IndexFunc is a function entity within one IndexFile.
type IndexFunc struct {
	Usr          Usr       `json:"usr"`
	Def          FuncDef   `json:"def"`
	Declarations []DeclRef `json:"declarations,omitempty"`
	Uses         []Use     `json:"uses,omitempty"`
	Derived      []Usr     `json:"derived,omitempty"`
}

// SymOffset pairs a member variable key with its byte offset within the
// containing record, or -1 when the offset is not statically known.
type SymOffset struct {
	Usr    Usr   `json:"usr"`
	Offset int64 `json:"offset"`
}

// TypeDef is the authoritative definition record of a type entity.
type TypeDef struct {
	NameMixin
	Hover    string   `json:"hover,omitempty"`
	Comments string   `json:"comments,omitempty"`
	Spell    *DeclRef `json:"spell,omitempty"`
	// Bases/derived reconstruct inheritance, template-specialization
	// provenance and namespace nesting.
	Bases []Usr `json:"bases,omitempty"`
	// Funcs holds contained member functions, Types contained member types.
	Funcs []Usr `json:"funcs,omitempty"`
	Types []Usr `json:"types,omitempty"`
	// Vars holds member variables with byte offsets.
	Vars []SymOffset `json:"vars,omitempty"`
	// AliasOf is the key of the aliased type for typedefs/alias decls.
	AliasOf    Usr        `json:"alias_of,omitempty"`
	Kind       SymbolKind `json:"kind"`
	ParentKind SymbolKind `json:"parent_kind"`
}

// IndexType is a type entity within one IndexFile.
type IndexType struct {
	Usr          Usr       `json:"usr"`
	Def          TypeDef   `json:"def"`
	Declarations []DeclRef `json:"declarations,omitempty"`
	Uses         []Use     `json:"uses,omitempty"`
	Derived      []Usr     `json:"derived,omitempty"`
	// Instances are variable keys whose static type is this type.
	Instances []Usr `json:"instances,omitempty"`
}

// VarDef is the authoritative definition record of a variable entity.
type VarDef struct {
	NameMixin
	Hover    string   `json:"hover,omitempty"`
	Comments string   `json:"comments,omitempty"`
	Spell    *DeclRef `json:"spell,omitempty"`
	// Type is the key of the variable's static type when resolvable.
	Type       Usr          `json:"type,omitempty"`
	Kind       SymbolKind   `json:"kind"`
	ParentKind SymbolKind   `json:"parent_kind"`
	Storage    StorageClass `json:"storage"`
}

// IsLocal reports whether the variable is a function-local or parameter.
func (d *VarDef) IsLocal() bool {
	return d.Spell != nil &&
		(d.Kind == SymVariable || d.Kind == SymParameter) &&
		(d.ParentKind == SymFunction || d.ParentKind == SymMethod ||
			d.ParentKind == SymStaticMethod || d.ParentKind == SymConstructor)
}

// IndexVar is a variable entity within one IndexFile. Macros are stored as
// Var entities with Kind == SymMacro.
type IndexVar struct {
	Usr          Usr       `json:"usr"`
	Def          VarDef    `json:"def"`
	Declarations []DeclRef `json:"declarations,omitempty"`
	Uses         []Use     `json:"uses,omitempty"`
}
