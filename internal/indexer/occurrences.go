package indexer

import (
	"strconv"
	"strings"

	"cxref/internal/engine"
	"cxref/internal/logging"
	"cxref/internal/xref"
)

// pass consumes the event stream of one translation unit and routes every
// occurrence into the IndexFile of the file that owns it.
type pass struct {
	param *indexParam
	tu    engine.TU
	res   *resolver

	logger *logging.Logger

	comments            int
	maxInitializerLines int
	multiVersion        bool
}

func newPass(param *indexParam, logger *logging.Logger, opts Options) *pass {
	return &pass{
		param:               param,
		logger:              logger,
		comments:            opts.Comments,
		maxInitializerLines: opts.MaxInitializerLines,
		multiVersion:        opts.MultiVersion,
	}
}

func (p *pass) Initialize(tu engine.TU) {
	p.tu = tu
	p.param.tu = tu
	p.res = newResolver(tu)
}

// kindOf classifies an arbitrary node, dropping the known flag.
func (p *pass) kindOf(node engine.NodeID) (xref.Kind, xref.SymbolKind) {
	info := p.tu.Info(node)
	kind, sym, _ := classify(&info)
	return kind, sym
}

// skipAnonNamespaces walks a container chain out of anonymous namespaces so
// their members attach to the enclosing named scope.
func (p *pass) skipAnonNamespaces(node engine.NodeID) engine.NodeID {
	for node != engine.InvalidNode {
		info := p.tu.Info(node)
		if info.Category != engine.CatNamespace || !info.IsAnonymous {
			break
		}
		node = info.SemContainer
	}
	return node
}

// fileLID registers fid in db's local file table and returns the local
// index, or -1 when the handle has no resolvable path.
func (p *pass) fileLID(db *xref.IndexFile, fid engine.FileID) int32 {
	if lid := db.LocalFileID(int32(fid)); lid >= 0 {
		return lid
	}
	info, ok := p.tu.FileInfo(fid)
	if !ok || info.Path == "" {
		return -1
	}
	return db.AddLocalFile(int32(fid), info.Path)
}

// addMacroUse records the spelling position of an occurrence expanded from
// a macro, attributed to the file that spells the macro body.
func (p *pass) addMacroUse(db *xref.IndexFile, usr xref.Usr, kind xref.Kind, spell engine.Loc) {
	lid := p.fileLID(db, spell.File)
	if lid < 0 {
		return
	}
	use := xref.Use{Range: spell.Range, Role: xref.RoleDynamic, FileID: lid}
	switch kind {
	case xref.KindFunc:
		fn := db.ToFunc(usr)
		fn.Uses = append(fn.Uses, use)
	case xref.KindType:
		t := db.ToType(usr)
		t.Uses = append(t.Uses, use)
	case xref.KindVar:
		v := db.ToVar(usr)
		v.Uses = append(v.Uses, use)
	}
}

// entitySlots exposes the per-entity fields the definition/declaration/use
// routing writes to, independent of the entity's concrete type.
type entitySlots struct {
	spell      **xref.DeclRef
	parentKind *xref.SymbolKind
	comments   *string
	decls      *[]xref.DeclRef
	uses       *[]xref.Use
}

// recordOccurrence routes one occurrence into the definition spell, the
// declaration list or the use list, and fills comments on the first
// defining or declaring occurrence.
func (p *pass) recordOccurrence(s entitySlots, use xref.Use, extent xref.Range,
	isDef, isDecl bool, sem, orig engine.NodeID) {
	switch {
	case isDef:
		dr := xref.DeclRef{Use: use, Extent: extent}
		*s.spell = &dr
		if sem != engine.InvalidNode {
			_, pk := p.kindOf(sem)
			*s.parentKind = pk
		}
	case isDecl:
		*s.decls = append(*s.decls, xref.DeclRef{Use: use, Extent: extent})
	default:
		*s.uses = append(*s.uses, use)
		return
	}
	if *s.comments == "" && p.comments != 0 {
		*s.comments = p.extractComment(orig)
	}
}

func (p *pass) HandleDecl(ev engine.DeclEvent) {
	nodeInfo := p.tu.Info(ev.Node)
	if !p.param.noLinkage && !nodeInfo.HasLinkage {
		return
	}
	if ev.File == engine.InvalidFile {
		return
	}

	loc := ev.Rng
	lid := int32(-1)
	var db *xref.IndexFile
	if p.multiVersion && p.param.useMultiVersion(ev.File) {
		db = p.param.consumeFile(p.tu.MainFile())
		if db == nil {
			return
		}
		p.param.seenFile(ev.File)
		if !ev.InMainFile {
			lid = p.fileLID(db, ev.File)
		}
	} else {
		db = p.param.consumeFile(ev.File)
		if db == nil {
			return
		}
	}

	// Spell, extent and comments come from the original redeclaration; most
	// everything else uses the adjusted node.
	origInfo := p.tu.Info(ev.Orig)
	sem := p.skipAnonNamespaces(origInfo.SemContainer)
	lex := p.skipAnonNamespaces(ev.LexContainer)

	role := ev.Roles
	db.Language |= declLanguage(nodeInfo.Category)

	isDecl := role&xref.RoleDeclaration != 0
	isDef := role&xref.RoleDefinition != 0
	// Structured bindings report only a declaration.
	if isDecl && nodeInfo.Category == engine.CatBinding {
		isDef = true
	}

	kind, symKind, known := classify(&nodeInfo)

	node := ev.Node
	spellsExpansion := ev.Spell.File == ev.File && ev.Spell.Range == ev.Rng
	if isDef {
		// Defining occurrences of operators and destructors report the full
		// head; narrow to the name tokens.
		switch nodeInfo.Category {
		case engine.CatConversion, engine.CatDestructor, engine.CatMethod,
			engine.CatFunction:
			if spellsExpansion && origInfo.NameLoc.File == ev.File {
				loc = origInfo.NameLoc.Range
			}
		}
	} else {
		// e.g. typedef Foo<int> gg; delivers the unadjusted template.
		if d1 := p.res.adjusted(node); d1 != engine.InvalidNode && d1 != node {
			node = d1
		}
	}

	usr, names := p.res.resolve(node)
	adjInfo := nodeInfo
	if node != ev.Node {
		adjInfo = p.tu.Info(node)
	}

	extent := loc
	if origInfo.ExtentLoc.File == ev.File {
		extent = origInfo.ExtentLoc.Range
	}

	var fn *xref.IndexFunc
	var typ *xref.IndexType
	var v *xref.IndexVar
	switch kind {
	case xref.KindInvalid:
		if !known {
			p.logger.Info("unhandled declaration category", map[string]any{
				"category": int(nodeInfo.Category),
				"name":     names.qualified,
				"path":     db.Path,
				"line":     loc.Start.Line + 1,
				"column":   loc.Start.Column + 1,
			})
		}
		return
	case xref.KindFile:
		return
	case xref.KindFunc:
		fn = db.ToFunc(usr)
		fn.Def.Kind = symKind
		// Implicit constructor/conversion references span one more column
		// on each side when rendered.
		if !isDef && !isDecl &&
			(nodeInfo.Category == engine.CatConstructor ||
				nodeInfo.Category == engine.CatConversion) {
			role |= xref.RoleImplicit
		}
		use := xref.Use{Range: loc, Role: role, FileID: lid}
		p.recordOccurrence(entitySlots{
			spell:      &fn.Def.Spell,
			parentKind: &fn.Def.ParentKind,
			comments:   &fn.Def.Comments,
			decls:      &fn.Declarations,
			uses:       &fn.Uses,
		}, use, extent, isDef, isDecl, sem, ev.Orig)
		if !spellsExpansion {
			p.addMacroUse(db, usr, xref.KindFunc, ev.Spell)
		}
		if fn.Def.DetailedName == "" {
			setName(p.tu, node, names.shortName, names.qualified, &fn.Def.NameMixin)
		}
		if isDef || isDecl {
			if k, _ := p.kindOf(sem); k == xref.KindType {
				owner := db.ToType(p.res.usrOf(sem))
				owner.Def.Funcs = append(owner.Def.Funcs, usr)
			}
		} else {
			if k, _ := p.kindOf(lex); k == xref.KindFunc {
				caller := db.ToFunc(p.res.usrOf(lex))
				caller.Def.Callees = append(caller.Def.Callees,
					xref.SymbolRef{Range: loc, Usr: usr, Kind: xref.KindFunc, Role: role})
			}
		}
	case xref.KindType:
		typ = db.ToType(usr)
		typ.Def.Kind = symKind
		use := xref.Use{Range: loc, Role: role, FileID: lid}
		p.recordOccurrence(entitySlots{
			spell:      &typ.Def.Spell,
			parentKind: &typ.Def.ParentKind,
			comments:   &typ.Def.Comments,
			decls:      &typ.Declarations,
			uses:       &typ.Uses,
		}, use, extent, isDef, isDecl, sem, ev.Orig)
		if !spellsExpansion {
			p.addMacroUse(db, usr, xref.KindType, ev.Spell)
		}
		if (isDef || typ.Def.DetailedName == "") && names.shortName != "" {
			if nodeInfo.Category == engine.CatTemplateTypeParm {
				typ.Def.DetailedName = names.shortName
			} else {
				// The original redeclaration may be the detailed one, e.g.
				// "struct D : B {}".
				setName(p.tu, ev.Orig, names.shortName, names.qualified, &typ.Def.NameMixin)
			}
		}
		if isDef || isDecl {
			if k, _ := p.kindOf(sem); k == xref.KindType {
				owner := db.ToType(p.res.usrOf(sem))
				owner.Def.Types = append(owner.Def.Types, usr)
			}
		}
	case xref.KindVar:
		v = db.ToVar(usr)
		v.Def.Kind = symKind
		use := xref.Use{Range: loc, Role: role, FileID: lid}
		p.recordOccurrence(entitySlots{
			spell:      &v.Def.Spell,
			parentKind: &v.Def.ParentKind,
			comments:   &v.Def.Comments,
			decls:      &v.Declarations,
			uses:       &v.Uses,
		}, use, extent, isDef, isDecl, sem, ev.Orig)
		if !spellsExpansion {
			p.addMacroUse(db, usr, xref.KindVar, ev.Spell)
		}
		if v.Def.DetailedName == "" {
			p.setVarName(node, names.shortName, names.qualified, &v.Def)
		}
		if isDef || isDecl {
			semKind, semSym := p.kindOf(sem)
			v.Def.ParentKind = semSym
			switch {
			case semKind == xref.KindFunc:
				owner := db.ToFunc(p.res.usrOf(sem))
				owner.Def.Vars = append(owner.Def.Vars, usr)
			case semKind == xref.KindType && p.tu.Info(sem).Category != engine.CatRecord:
				owner := db.ToType(p.res.usrOf(sem))
				owner.Def.Vars = append(owner.Def.Vars, xref.SymOffset{Usr: usr, Offset: -1})
			}
			if adjInfo.Type != engine.InvalidType {
				if bt, ok := p.tu.BuiltinType(adjInfo.Type); ok {
					usr1 := xref.Usr(bt)
					v.Def.Type = usr1
					if nodeInfo.Category != engine.CatEnumConstant {
						inst := db.ToType(usr1)
						inst.Instances = append(inst.Instances, usr)
					}
				} else if decl, _ := p.tu.ResolveType(adjInfo.Type); decl != engine.InvalidNode {
					if d1 := p.res.adjusted(decl); d1 != engine.InvalidNode {
						usr1 := p.res.usrOf(d1)
						v.Def.Type = usr1
						if nodeInfo.Category != engine.CatEnumConstant {
							inst := db.ToType(usr1)
							inst.Instances = append(inst.Instances, usr)
						}
					}
				}
			}
		} else if v.Def.Spell == nil && len(v.Declarations) == 0 {
			// e.g. lambda parameter: referenced before any declaring
			// occurrence arrives.
			if adjInfo.NameLoc.File == ev.File {
				ext := adjInfo.NameLoc.Range
				if adjInfo.ExtentLoc.File == ev.File {
					ext = adjInfo.ExtentLoc.Range
				}
				v.Def.Spell = &xref.DeclRef{
					Use:    xref.Use{Range: adjInfo.NameLoc.Range, Role: xref.RoleDefinition, FileID: lid},
					Extent: ext,
				}
				v.Def.ParentKind = xref.SymMethod
			}
		}
	}

	switch adjInfo.Category {
	case engine.CatNamespace:
		if adjInfo.IsFirstDecl && adjInfo.SemContainer != engine.InvalidNode {
			parent := adjInfo.SemContainer
			if p.tu.Info(parent).Category == engine.CatNamespace {
				usr1 := p.res.usrOf(parent)
				typ.Def.Bases = append(typ.Def.Bases, usr1)
				outer := db.ToType(usr1)
				outer.Derived = append(outer.Derived, usr)
			}
		}
	case engine.CatNamespaceAlias:
		if adjInfo.Aliased != engine.InvalidNode {
			usr1 := p.res.usrOf(adjInfo.Aliased)
			typ.Def.AliasOf = usr1
			db.ToType(usr1)
		}
	case engine.CatRecord:
		if isDef {
			for _, base := range adjInfo.Bases {
				decl, _ := p.tu.ResolveType(base)
				if d1 := p.res.adjusted(decl); d1 != engine.InvalidNode {
					usr1 := p.res.usrOf(d1)
					typ.Def.Bases = append(typ.Def.Bases, usr1)
					baseT := db.ToType(usr1)
					baseT.Derived = append(baseT.Derived, usr)
				}
			}
		}
		if typ.Def.DetailedName == "" && names.shortName == "" {
			name := "anon " + tagName(adjInfo.Tag)
			if adjInfo.TypedefNameForAnon != "" {
				name += " " + adjInfo.TypedefNameForAnon
			}
			typ.Def.DetailedName = name
			typ.Def.ShortNameSize = int32(len(name))
		}
		if isDef {
			p.collectRecordMembers(typ, ev.Orig)
		}
	case engine.CatClassTemplateSpecialization,
		engine.CatClassTemplatePartialSpecialization:
		typ.Def.Kind = xref.SymClass
		if isDef {
			p.collectRecordMembers(typ, ev.Orig)
			origin := adjInfo.SpecializedFrom
			if origin == engine.InvalidNode {
				origin = adjInfo.InstantiatedFromMember
			}
			if origin != engine.InvalidNode {
				usr1 := p.res.usrOf(origin)
				typ.Def.Bases = append(typ.Def.Bases, usr1)
				tmpl := db.ToType(usr1)
				tmpl.Derived = append(tmpl.Derived, usr)
			}
		}
	case engine.CatTypeAlias, engine.CatTypedef, engine.CatUnresolvedUsingTypename:
		if adjInfo.UnderlyingType != engine.InvalidType {
			decl, specialization := p.tu.ResolveType(adjInfo.UnderlyingType)
			if d1 := p.res.adjusted(decl); d1 != engine.InvalidNode {
				usr1 := p.res.usrOf(d1)
				aliased := db.ToType(usr1)
				typ.Def.AliasOf = usr1
				// The aliased specialization itself is never visited, e.g.
				// template<class T> struct B { typedef A<T> t; };
				if specialization && adjInfo.TypeLoc.File == ev.File {
					aliased.Uses = append(aliased.Uses, xref.Use{
						Range:  adjInfo.TypeLoc.Range,
						Role:   xref.RoleReference,
						FileID: lid,
					})
				}
			}
		}
	case engine.CatMethod:
		if isDef || isDecl {
			for _, over := range adjInfo.Overridden {
				usr1 := p.res.usrOf(over)
				fn.Def.Bases = append(fn.Def.Bases, usr1)
				overFn := db.ToFunc(usr1)
				overFn.Derived = append(overFn.Derived, usr)
			}
		}
	case engine.CatEnumConstant:
		if isDef && !strings.ContainsRune(v.Def.DetailedName, '=') {
			var val string
			if adjInfo.EnumUnsigned {
				val = strconv.FormatUint(uint64(adjInfo.EnumValue), 10)
			} else {
				val = strconv.FormatInt(adjInfo.EnumValue, 10)
			}
			v.Def.Hover = v.Def.DetailedName + " = " + val
		}
	}
}

func tagName(tag engine.TagKind) string {
	switch tag {
	case engine.TagStruct:
		return "struct"
	case engine.TagClass:
		return "class"
	case engine.TagUnion:
		return "union"
	case engine.TagInterface:
		return "__interface"
	case engine.TagEnum:
		return "enum"
	default:
		return "struct"
	}
}

// collectRecordMembers records the member variables of a record definition
// together with their byte offsets. Anonymous record members recurse with
// the accumulated offset; records whose layout cannot be computed poison
// the offsets to -1 but still list the members.
func (p *pass) collectRecordMembers(typ *xref.IndexType, record engine.NodeID) {
	type item struct {
		node   engine.NodeID
		offset int64
	}
	stack := []item{{record, 0}}
	seen := map[engine.NodeID]struct{}{record: {}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		info := p.tu.Info(it.node)
		offset := it.offset
		if !info.IsCompleteDefinition || info.IsDependent || info.IsInvalid ||
			!p.validateRecord(it.node) {
			offset = -1
		}
		for _, fd := range info.Fields {
			fi := p.tu.Info(fd)
			off1 := int64(-1)
			if offset >= 0 {
				if fo, ok := p.tu.FieldOffsetBytes(fd); ok {
					off1 = offset + fo
				}
			}
			if fi.HasName {
				typ.Def.Vars = append(typ.Def.Vars,
					xref.SymOffset{Usr: p.res.usrOf(fd), Offset: off1})
			} else if rd := p.tu.RecordOfType(fi.Type); rd != engine.InvalidNode {
				if _, dup := seen[rd]; !dup {
					seen[rd] = struct{}{}
					stack = append(stack, item{rd, off1})
				}
			}
		}
	}
}

// validateRecord reports whether every field of the record, recursively,
// has a complete non-dependent type, so that layout queries are safe.
func (p *pass) validateRecord(record engine.NodeID) bool {
	info := p.tu.Info(record)
	for _, fd := range info.Fields {
		fi := p.tu.Info(fd)
		if fi.TypeIncomplete || fi.TypeDependent {
			return false
		}
		if rd := p.tu.RecordOfType(fi.Type); rd != engine.InvalidNode && !p.validateRecord(rd) {
			return false
		}
	}
	return true
}
