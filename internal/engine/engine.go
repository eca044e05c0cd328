// Package engine defines the contract with the semantic analysis engine:
// the declaration and preprocessor event stream emitted while analyzing one
// translation unit, and the per-unit query services (canonical-declaration
// resolution, unique textual references, deterministic printing, source
// text) the indexer consumes.
package engine

import (
	"cxref/internal/xref"
)

// FileID is an engine-internal handle to a physical file within one pass.
// Valid handles start at 1; the zero value marks locations that cannot be
// mapped to a file.
type FileID int32

// InvalidFile marks locations that cannot be mapped to a file.
const InvalidFile FileID = 0

// NodeID is a dense handle to one declaration node, stable within one pass.
// Distinct redeclarations of the same symbol have distinct NodeIDs; the
// engine maps them to a single canonical node. Valid handles start at 1.
type NodeID int32

// InvalidNode marks absent node references.
const InvalidNode NodeID = 0

// TypeID is a handle to a type within one pass. Valid handles start at 1.
type TypeID int32

// InvalidType marks absent type references.
const InvalidType TypeID = 0

// Category is the closed set of declaration categories the engine reports.
type Category uint8

const (
	CatUnknown Category = iota
	CatTranslationUnit
	CatLinkageSpec
	CatNamespace
	CatNamespaceAlias
	CatRecord // struct/class/union by tag
	CatClassTemplate
	CatClassTemplateSpecialization
	CatClassTemplatePartialSpecialization
	CatFunctionTemplate
	CatTypeAliasTemplate
	CatVarTemplate
	CatTemplateTypeParm
	CatTemplateTemplateParm
	CatNonTypeTemplateParm
	CatEnum
	CatEnumConstant
	CatTypeAlias
	CatTypedef
	CatUsing
	CatBinding
	CatField
	CatFunction
	CatMethod
	CatConstructor
	CatConversion
	CatDestructor
	CatVar
	CatDecomposition
	CatImplicitParam
	CatParam
	CatVarTemplateSpecialization
	CatVarTemplatePartialSpecialization
	CatUnresolvedUsingValue
	CatUnresolvedUsingTypename
	CatObjCInterface
	CatObjCProtocol
	CatObjCCategory
	CatObjCCategoryImpl
	CatObjCImplementation
	CatObjCMethod
	CatObjCProperty
	CatObjCIvar
)

// TagKind distinguishes record declarations by their tag keyword.
type TagKind uint8

const (
	TagStruct TagKind = iota
	TagClass
	TagUnion
	TagInterface
	TagEnum
)

// DeclInfo is the engine-reported metadata of one declaration node.
type DeclInfo struct {
	Category Category
	Tag      TagKind
	Storage  xref.StorageClass

	HasName    bool
	HasLinkage bool
	IsStatic   bool
	// IsFirstDecl is set on the first redeclaration of a namespace.
	IsFirstDecl bool
	IsAnonymous bool
	// Record validity for member collection.
	IsCompleteDefinition bool
	IsDependent          bool
	IsInvalid            bool
	// ExplicitlyWritten is set on template specializations the user wrote
	// out; unset for implicit instantiations.
	ExplicitlyWritten bool

	// SemContainer is the semantic container declaration.
	SemContainer NodeID
	// SpecializedFrom points a specialization at its template or partial
	// specialization; InstantiatedFromMember points a member instantiated
	// from a template's member at that member.
	SpecializedFrom        NodeID
	InstantiatedFromMember NodeID

	// Aliased is the target declaration of a namespace alias.
	Aliased NodeID

	// Type is the declared static type of a value declaration.
	Type TypeID
	// TypeIncomplete/TypeDependent describe that type, used when validating
	// record layouts during member collection.
	TypeIncomplete bool
	TypeDependent  bool
	// UnderlyingType is the aliased type for typedefs and alias decls.
	UnderlyingType TypeID
	// TypeLoc is where the underlying type is spelled, for alias decls.
	TypeLoc Loc

	// Bases are direct base class types (records, definitions only).
	Bases []TypeID
	// Overridden are virtual methods this method overrides.
	Overridden []NodeID
	// Fields are a record's field declarations in order.
	Fields []NodeID

	// TypedefNameForAnon is the typedef name attached to an anonymous tag,
	// if any.
	TypedefNameForAnon string

	// Enumerator value.
	EnumValue    int64
	EnumUnsigned bool

	// Initializer source span, when present.
	HasInitializer bool
	InitLoc        Loc

	// NameLoc is the name token span; ExtentLoc the declaration's full span.
	NameLoc   Loc
	ExtentLoc Loc
}

// Loc pairs a file handle with a range inside it.
type Loc struct {
	File  FileID
	Range xref.Range
}

// FileInfo is the engine-reported metadata of one physical file.
type FileInfo struct {
	Path    string
	Mtime   int64
	Content string
}

// TU exposes per-translation-unit query services. All methods are
// deterministic for the lifetime of one pass and must only be called from
// the pass's thread.
type TU interface {
	// MainFile returns the handle of the pass's main input.
	MainFile() FileID
	// FileInfo resolves a file handle; ok is false for synthetic files.
	FileInfo(FileID) (FileInfo, bool)
	// SourceText returns the exact source in a range, or "" if unavailable.
	SourceText(FileID, xref.Range) string

	// Canonical maps a node to its single canonical redeclaration.
	Canonical(NodeID) NodeID
	// Info returns the node's metadata.
	Info(NodeID) DeclInfo
	// USR returns the globally-unique textual reference of a declaration.
	USR(NodeID) (string, error)
	// ShortName and QualifiedName render display names under the fixed
	// printing policy.
	ShortName(NodeID) string
	QualifiedName(NodeID) string
	// PrintDecl renders the node's full declaration syntax: terse, no
	// initializers, tag keywords suppressed.
	PrintDecl(NodeID) string
	// PrintType renders a type under the same policy.
	PrintType(TypeID) string
	// Comment returns the raw documentation comment attached to any
	// redeclaration of the node plus the 1-based column where it starts.
	Comment(NodeID) (text string, startColumn int32, ok bool)

	// ResolveType walks a type to its declaring node; specialization
	// reports that the walk passed through an unvisited specialization.
	ResolveType(TypeID) (decl NodeID, specialization bool)
	// BuiltinType reports a primitive type's tag, used directly as a key.
	BuiltinType(TypeID) (uint8, bool)
	// IsDeducedType reports auto/decltype/deduced forms.
	IsDeducedType(TypeID) bool
	// FieldOffsetBytes returns a field's byte offset within its record.
	FieldOffsetBytes(NodeID) (int64, bool)
	// RecordOfType returns the record declaration behind a type, or
	// InvalidNode.
	RecordOfType(TypeID) NodeID
}

// DeclEvent is one declaration occurrence. Node is the engine's adjusted
// view of the declaration; Orig the unadjusted original, used for spans and
// comments.
type DeclEvent struct {
	Node NodeID
	Orig NodeID
	// Roles is the occurrence's role bitset.
	Roles xref.Role
	// File and Rng locate the expansion of the occurrence.
	File FileID
	Rng  xref.Range
	// Spell locates the spelling token; differs from the expansion only
	// inside macro expansions.
	Spell Loc
	// InMainFile reports whether the expansion is physically written in the
	// pass's main file.
	InMainFile bool
	// LexContainer is the lexical container declaration.
	LexContainer NodeID
}

// Consumer receives the mixed event stream of one pass. The engine calls
// the methods synchronously and sequentially.
type Consumer interface {
	// Initialize is called once before any event, handing over the TU.
	Initialize(TU)

	HandleDecl(DeclEvent)

	// Preprocessor events, invisible to the declaration stream.
	HandleFileEntered(FileID)
	HandleInclusion(file FileID, spell xref.Range, resolvedPath string)
	HandleMacroDefined(file FileID, name string, nameRng, extent xref.Range)
	HandleMacroExpanded(file FileID, name string, at xref.Range)
	HandleMacroUndefined(file FileID, name string, at xref.Range)
	HandleRangeSkipped(file FileID, rng xref.Range)
}

// Remapped substitutes in-memory content for a file path, supplying unsaved
// buffer contents.
type Remapped struct {
	Path    string
	Content string
}

// Invocation is one ready-to-run analysis over a main file.
type Invocation struct {
	Main     string
	Args     []string
	Remapped []Remapped
	// SkipBody, when non-nil, lets the driver skip analyzing bodies of
	// declarations owned by files it will not index.
	SkipBody func(FileID) bool
	// IgnoreWarnings disables emission of discardable warnings.
	IgnoreWarnings bool
	// ParseAllComments retains plain (non-doc) comments for documentation.
	ParseAllComments bool
}

// Engine builds and runs analysis invocations.
type Engine interface {
	// BuildInvocation prepares a run. A nil invocation with a nil error
	// means the input is not applicable (e.g. an assembly file).
	BuildInvocation(main string, args []string) (*Invocation, error)
	// Run executes the pass, streaming events into the consumer. It returns
	// the engine-reported failure, if any; the TU handed to the consumer is
	// only valid until Run returns.
	Run(inv *Invocation, consumer Consumer) error
}
