// Package scip converts cross-reference index files into a SCIP index for
// consumption by SCIP-based tooling.
package scip

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"cxref/internal/xref"
)

// Exporter accumulates index files and renders one SCIP index.
type Exporter struct {
	projectRoot string
	toolVersion string
	docs        []*scippb.Document
}

// NewExporter creates an exporter rooted at projectRoot.
func NewExporter(projectRoot, toolVersion string) *Exporter {
	return &Exporter{projectRoot: projectRoot, toolVersion: toolVersion}
}

// typeSymbol/funcSymbol/varSymbol render SCIP symbol strings. Keys are
// globally unique already, so the descriptor is the key in hex with the
// suffix distinguishing the three namespaces.
func typeSymbol(usr xref.Usr) string { return fmt.Sprintf("cxref . . . %016x#", uint64(usr)) }
func funcSymbol(usr xref.Usr) string { return fmt.Sprintf("cxref . . . %016x().", uint64(usr)) }
func varSymbol(usr xref.Usr) string  { return fmt.Sprintf("cxref . . . %016x.", uint64(usr)) }

// scipRange encodes a half-open range the compact SCIP way: three elements
// when it fits on one line.
func scipRange(r xref.Range) []int32 {
	if r.Start.Line == r.End.Line {
		return []int32{r.Start.Line, r.Start.Column, r.End.Column}
	}
	return []int32{r.Start.Line, r.Start.Column, r.End.Line, r.End.Column}
}

func scipRoles(role xref.Role) int32 {
	var out int32
	if role&xref.RoleDefinition != 0 {
		out |= int32(scippb.SymbolRole_Definition)
	}
	if role&xref.RoleWrite != 0 {
		out |= int32(scippb.SymbolRole_WriteAccess)
	}
	if role&xref.RoleRead != 0 {
		out |= int32(scippb.SymbolRole_ReadAccess)
	}
	return out
}

var kindMap = map[xref.SymbolKind]scippb.SymbolInformation_Kind{
	xref.SymFile:          scippb.SymbolInformation_File,
	xref.SymNamespace:     scippb.SymbolInformation_Namespace,
	xref.SymClass:         scippb.SymbolInformation_Class,
	xref.SymMethod:        scippb.SymbolInformation_Method,
	xref.SymField:         scippb.SymbolInformation_Field,
	xref.SymConstructor:   scippb.SymbolInformation_Constructor,
	xref.SymEnum:          scippb.SymbolInformation_Enum,
	xref.SymInterface:     scippb.SymbolInformation_Interface,
	xref.SymFunction:      scippb.SymbolInformation_Function,
	xref.SymVariable:      scippb.SymbolInformation_Variable,
	xref.SymConstant:      scippb.SymbolInformation_Constant,
	xref.SymEnumMember:    scippb.SymbolInformation_EnumMember,
	xref.SymStruct:        scippb.SymbolInformation_Struct,
	xref.SymTypeParameter: scippb.SymbolInformation_TypeParameter,
	xref.SymTypeAlias:     scippb.SymbolInformation_TypeAlias,
	xref.SymParameter:     scippb.SymbolInformation_Parameter,
	xref.SymStaticMethod:  scippb.SymbolInformation_StaticMethod,
	xref.SymMacro:         scippb.SymbolInformation_Macro,
}

func scipKind(k xref.SymbolKind) scippb.SymbolInformation_Kind {
	if mapped, ok := kindMap[k]; ok {
		return mapped
	}
	return scippb.SymbolInformation_UnspecifiedKind
}

// Add converts one index file into a SCIP document. Occurrences whose file
// id points away from the owning file belong to other documents and are
// skipped.
func (e *Exporter) Add(f *xref.IndexFile) {
	doc := &scippb.Document{
		Language:     docLanguage(f.Language),
		RelativePath: e.relPath(f.Path),
	}

	addOcc := func(sym string, u xref.Use) {
		if u.FileID != -1 {
			return
		}
		doc.Occurrences = append(doc.Occurrences, &scippb.Occurrence{
			Range:       scipRange(u.Range),
			Symbol:      sym,
			SymbolRoles: scipRoles(u.Role),
		})
	}

	for _, usr := range sortedUsrs(f.USR2Func) {
		fn := f.USR2Func[usr]
		sym := funcSymbol(usr)
		info := &scippb.SymbolInformation{
			Symbol:      sym,
			DisplayName: fn.Def.ShortName(),
			Kind:        scipKind(fn.Def.Kind),
		}
		if fn.Def.Comments != "" {
			info.Documentation = append(info.Documentation, fn.Def.Comments)
		}
		if fn.Def.Hover != "" {
			info.Documentation = append(info.Documentation, "```cpp\n"+fn.Def.Hover+"\n```")
		} else if fn.Def.DetailedName != "" {
			info.Documentation = append(info.Documentation, "```cpp\n"+fn.Def.DetailedName+"\n```")
		}
		for _, base := range fn.Def.Bases {
			info.Relationships = append(info.Relationships, &scippb.Relationship{
				Symbol:           funcSymbol(base),
				IsImplementation: true,
			})
		}
		doc.Symbols = append(doc.Symbols, info)

		if fn.Def.Spell != nil {
			addOcc(sym, fn.Def.Spell.Use)
		}
		for _, d := range fn.Declarations {
			addOcc(sym, d.Use)
		}
		for _, u := range fn.Uses {
			addOcc(sym, u)
		}
	}

	for _, usr := range sortedUsrs(f.USR2Type) {
		t := f.USR2Type[usr]
		sym := typeSymbol(usr)
		info := &scippb.SymbolInformation{
			Symbol:      sym,
			DisplayName: t.Def.ShortName(),
			Kind:        scipKind(t.Def.Kind),
		}
		if t.Def.Comments != "" {
			info.Documentation = append(info.Documentation, t.Def.Comments)
		}
		if t.Def.DetailedName != "" {
			info.Documentation = append(info.Documentation, "```cpp\n"+t.Def.DetailedName+"\n```")
		}
		for _, base := range t.Def.Bases {
			info.Relationships = append(info.Relationships, &scippb.Relationship{
				Symbol:           typeSymbol(base),
				IsImplementation: true,
			})
		}
		if t.Def.AliasOf != 0 {
			info.Relationships = append(info.Relationships, &scippb.Relationship{
				Symbol:      typeSymbol(t.Def.AliasOf),
				IsReference: true,
			})
		}
		doc.Symbols = append(doc.Symbols, info)

		if t.Def.Spell != nil {
			addOcc(sym, t.Def.Spell.Use)
		}
		for _, d := range t.Declarations {
			addOcc(sym, d.Use)
		}
		for _, u := range t.Uses {
			addOcc(sym, u)
		}
	}

	for _, usr := range sortedUsrs(f.USR2Var) {
		v := f.USR2Var[usr]
		sym := varSymbol(usr)
		info := &scippb.SymbolInformation{
			Symbol:      sym,
			DisplayName: v.Def.ShortName(),
			Kind:        scipKind(v.Def.Kind),
		}
		if v.Def.Comments != "" {
			info.Documentation = append(info.Documentation, v.Def.Comments)
		}
		if v.Def.Hover != "" {
			info.Documentation = append(info.Documentation, "```cpp\n"+v.Def.Hover+"\n```")
		} else if v.Def.DetailedName != "" {
			info.Documentation = append(info.Documentation, "```cpp\n"+v.Def.DetailedName+"\n```")
		}
		doc.Symbols = append(doc.Symbols, info)

		if v.Def.Spell != nil {
			addOcc(sym, v.Def.Spell.Use)
		}
		for _, d := range v.Declarations {
			addOcc(sym, d.Use)
		}
		for _, u := range v.Uses {
			addOcc(sym, u)
		}
	}

	sort.Slice(doc.Occurrences, func(i, j int) bool {
		a, b := doc.Occurrences[i].Range, doc.Occurrences[j].Range
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
	e.docs = append(e.docs, doc)
}

// Index assembles the accumulated documents into a SCIP index.
func (e *Exporter) Index() *scippb.Index {
	sort.Slice(e.docs, func(i, j int) bool {
		return e.docs[i].RelativePath < e.docs[j].RelativePath
	})
	return &scippb.Index{
		Metadata: &scippb.Metadata{
			Version: scippb.ProtocolVersion_UnspecifiedProtocolVersion,
			ToolInfo: &scippb.ToolInfo{
				Name:    "cxref",
				Version: e.toolVersion,
			},
			ProjectRoot:          "file://" + filepath.ToSlash(e.projectRoot),
			TextDocumentEncoding: scippb.TextEncoding_UTF8,
		},
		Documents: e.docs,
	}
}

// WriteFile marshals the index and writes it to path.
func (e *Exporter) WriteFile(path string) error {
	data, err := proto.Marshal(e.Index())
	if err != nil {
		return fmt.Errorf("marshal scip index: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write scip index: %w", err)
	}
	return nil
}

func (e *Exporter) relPath(path string) string {
	if e.projectRoot != "" {
		if rel, err := filepath.Rel(e.projectRoot, path); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(path)
}

func docLanguage(lang xref.Language) string {
	switch {
	case lang&xref.LangCpp != 0:
		return "cpp"
	case lang&xref.LangObjC != 0:
		return "objective-c"
	case lang&xref.LangC != 0:
		return "c"
	default:
		return "cpp"
	}
}

func sortedUsrs[V any](m map[xref.Usr]V) []xref.Usr {
	keys := make([]xref.Usr, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
