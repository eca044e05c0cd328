//go:build cgo

package treesitter

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"cxref/internal/engine"
	"cxref/internal/xref"
)

// scopeFrame is one entry of the lexical/semantic container stack.
type scopeFrame struct {
	node engine.NodeID
	name string
	cat  engine.Category
	anon bool
}

// walker turns one file's syntax tree into declaration events. Name lookup
// for references goes through the TU-wide symbol table, so headers walked
// earlier bind references in later files.
type walker struct {
	tu       *tunit
	consumer engine.Consumer
	fid      engine.FileID
	src      []byte
	skipBody bool

	scopes []scopeFrame
	// locals maps short names to nodes declared in enclosing function
	// bodies; innermost last.
	locals []map[string]engine.NodeID
	// typedefNameHint carries the typedef name into the anonymous record of
	// "typedef struct {...} Name;"; consumed by walkRecord.
	typedefNameHint string
}

// symbol table lives on the tunit so all files share it.
type symtab struct {
	byQualified map[string]engine.NodeID
	byShort     map[string][]engine.NodeID
}

func newSymtab() *symtab {
	return &symtab{
		byQualified: make(map[string]engine.NodeID),
		byShort:     make(map[string][]engine.NodeID),
	}
}

func (s *symtab) add(short, qualified string, id engine.NodeID) {
	if short == "" {
		return
	}
	if _, ok := s.byQualified[qualified]; !ok {
		s.byQualified[qualified] = id
	}
	s.byShort[short] = append(s.byShort[short], id)
}

func pointPos(p sitter.Point) xref.Pos {
	return xref.Pos{Line: int32(p.Row), Column: int32(p.Column)}
}

func nodeRange(n *sitter.Node) xref.Range {
	return xref.Range{Start: pointPos(n.StartPoint()), End: pointPos(n.EndPoint())}
}

func (w *walker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(w.src)
}

func (w *walker) scopeNode() engine.NodeID {
	if len(w.scopes) == 0 {
		return engine.InvalidNode
	}
	return w.scopes[len(w.scopes)-1].node
}

// qualify builds the fully-qualified display name for a short name in the
// current scope.
func (w *walker) qualify(short string) string {
	var parts []string
	for _, s := range w.scopes {
		if s.anon && s.cat == engine.CatNamespace {
			parts = append(parts, "(anonymous namespace)")
		} else if s.name != "" {
			parts = append(parts, s.name)
		}
	}
	parts = append(parts, short)
	return strings.Join(parts, "::")
}

// collapseWS normalizes a source snippet to single spaces, the way a
// declaration printer renders reconstructed syntax.
func collapseWS(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// precedingComment finds the comment block immediately above a declaration
// node: adjacent comment siblings with no blank line in between.
func (w *walker) precedingComment(n *sitter.Node) (string, int32) {
	prev := n.PrevNamedSibling()
	if prev == nil || prev.Type() != "comment" {
		return "", 0
	}
	if int32(prev.EndPoint().Row) < int32(n.StartPoint().Row)-1 {
		return "", 0
	}
	first := prev
	for {
		p := first.PrevNamedSibling()
		if p == nil || p.Type() != "comment" ||
			int32(p.EndPoint().Row) < int32(first.StartPoint().Row)-1 {
			break
		}
		first = p
	}
	var b strings.Builder
	for c := first; ; c = c.NextNamedSibling() {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(w.text(c))
		if c == prev || c.Equal(prev) {
			break
		}
	}
	return b.String(), int32(first.StartPoint().Column) + 1
}

// declare materializes a declaration record, indexes it for reference
// resolution and emits its event.
func (w *walker) declare(rec declRec, nameRng, extent xref.Range, roles xref.Role) engine.NodeID {
	id := w.register(rec, nameRng, extent)
	w.emitRef(id, nameRng, roles)
	return id
}

// register adds a declaration to the arena and the lookup tables without
// emitting its event. Declarations whose DeclInfo is completed by walking
// nested syntax (record members) register first and emit afterwards, since
// the consumer reads DeclInfo synchronously at event time.
func (w *walker) register(rec declRec, nameRng, extent xref.Range) engine.NodeID {
	rec.info.SemContainer = w.scopeNode()
	rec.info.NameLoc = engine.Loc{File: w.fid, Range: nameRng}
	rec.info.ExtentLoc = engine.Loc{File: w.fid, Range: extent}
	id := w.tu.addDecl(rec)
	if !rec.local {
		w.tu.syms.add(rec.shortName, rec.qualified, id)
	} else if len(w.locals) > 0 && rec.shortName != "" {
		w.locals[len(w.locals)-1][rec.shortName] = id
	}
	return id
}

// emitRef emits an occurrence of an already-registered node.
func (w *walker) emitRef(id engine.NodeID, rng xref.Range, roles xref.Role) {
	w.consumer.HandleDecl(engine.DeclEvent{
		Node:         id,
		Orig:         id,
		Roles:        roles,
		File:         w.fid,
		Rng:          rng,
		Spell:        engine.Loc{File: w.fid, Range: rng},
		InMainFile:   w.fid == w.tu.main,
		LexContainer: w.scopeNode(),
	})
}

// lookup resolves a short name against locals, then enclosing scopes from
// the innermost out, then the global scope.
func (w *walker) lookup(short string) engine.NodeID {
	for i := len(w.locals) - 1; i >= 0; i-- {
		if id, ok := w.locals[i][short]; ok {
			return id
		}
	}
	var prefix []string
	for _, s := range w.scopes {
		if !s.anon && s.name != "" {
			prefix = append(prefix, s.name)
		}
	}
	for n := len(prefix); n >= 0; n-- {
		q := strings.Join(append(append([]string{}, prefix[:n]...), short), "::")
		if id, ok := w.tu.syms.byQualified[q]; ok {
			return id
		}
	}
	// Qualified references (a::b) land here directly.
	if id, ok := w.tu.syms.byQualified[short]; ok {
		return id
	}
	return engine.InvalidNode
}

// walkFile drives the walker over one staged file's tree.
func (w *walker) walkFile(root *sitter.Node) {
	w.walkScopeBody(root)
}

// walkScopeBody visits the declarations of a scope-level node body.
func (w *walker) walkScopeBody(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		w.walkDecl(n.NamedChild(i))
	}
}

func (w *walker) walkDecl(n *sitter.Node) {
	switch n.Type() {
	case "namespace_definition":
		w.walkNamespace(n)
	case "namespace_alias_definition":
		w.walkNamespaceAlias(n)
	case "class_specifier", "struct_specifier", "union_specifier":
		w.walkRecord(n, nil)
	case "enum_specifier":
		w.walkEnum(n, nil)
	case "function_definition":
		w.walkFunction(n, true, nil)
	case "declaration", "field_declaration":
		w.walkDeclaration(n)
	case "alias_declaration":
		w.walkAlias(n)
	case "type_definition":
		w.walkTypedef(n)
	case "template_declaration":
		w.walkTemplate(n)
	case "linkage_specification":
		if body := n.ChildByFieldName("body"); body != nil {
			if body.Type() == "declaration_list" {
				w.walkScopeBody(body)
			} else {
				w.walkDecl(body)
			}
		}
	case "preproc_if", "preproc_ifdef", "preproc_else", "preproc_elif":
		// Conditional regions keep their declarations visible; the
		// preprocessor scanner already reported skipped ranges.
		w.walkScopeBody(n)
	case "expression_statement", "compound_statement":
		w.walkStatement(n)
	default:
		// Statements and stray expressions at file scope still get their
		// references collected.
		w.collectRefs(n)
	}
}

func (w *walker) walkNamespace(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	short := w.text(nameNode)
	anon := short == ""
	qualified := w.qualify(short)
	if anon {
		qualified = w.qualify("(anonymous namespace)")
	}
	usr := w.buildUSR("@N@", short, "")

	first := true
	if _, ok := w.tu.syms.byQualified[qualified]; ok && !anon {
		first = false
	}
	rec := declRec{
		info: engine.DeclInfo{
			Category:    engine.CatNamespace,
			HasName:     !anon,
			HasLinkage:  true,
			IsFirstDecl: first,
			IsAnonymous: anon,
		},
		shortName: short,
		qualified: qualified,
		usr:       usr,
		printed:   short,
	}
	rec.comment, rec.commentCol = w.precedingComment(n)

	nameRng := nodeRange(n)
	if nameNode != nil {
		nameRng = nodeRange(nameNode)
	}
	id := w.declare(rec, nameRng, nodeRange(n), xref.RoleDefinition)

	w.scopes = append(w.scopes, scopeFrame{node: id, name: short, cat: engine.CatNamespace, anon: anon})
	if body := n.ChildByFieldName("body"); body != nil {
		w.walkScopeBody(body)
	}
	w.scopes = w.scopes[:len(w.scopes)-1]
}

func (w *walker) walkNamespaceAlias(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	short := w.text(nameNode)
	if short == "" {
		return
	}
	var target *sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c != nameNode && (c.Type() == "namespace_identifier" || c.Type() == "nested_namespace_specifier" || c.Type() == "qualified_identifier") {
			target = c
		}
	}
	aliased := engine.InvalidNode
	if target != nil {
		aliased = w.lookup(strings.ReplaceAll(w.text(target), " ", ""))
	}
	rec := declRec{
		info: engine.DeclInfo{
			Category:   engine.CatNamespaceAlias,
			HasName:    true,
			HasLinkage: true,
			Aliased:    aliased,
		},
		shortName: short,
		qualified: w.qualify(short),
		usr:       w.buildUSR("@NA@", short, ""),
		printed:   short,
	}
	rec.comment, rec.commentCol = w.precedingComment(n)
	w.declare(rec, nodeRange(nameNode), nodeRange(n), xref.RoleDefinition)
	if target != nil && aliased != engine.InvalidNode {
		w.emitRef(aliased, nodeRange(target), xref.RoleReference)
	}
}

// walkRecord handles class/struct/union specifiers. templateParams carries
// the parameter declarations of an enclosing template_declaration.
func (w *walker) walkRecord(n *sitter.Node, templateParams *sitter.Node) engine.NodeID {
	typedefName := w.typedefNameHint
	w.typedefNameHint = ""

	nameNode := n.ChildByFieldName("name")
	short := w.text(nameNode)
	body := n.ChildByFieldName("body")
	if short == "" && body == nil {
		return engine.InvalidNode
	}

	var tag engine.TagKind
	switch n.Type() {
	case "class_specifier":
		tag = engine.TagClass
	case "union_specifier":
		tag = engine.TagUnion
	default:
		tag = engine.TagStruct
	}
	cat := engine.CatRecord
	if templateParams != nil {
		cat = engine.CatClassTemplate
	}
	if nameNode != nil && nameNode.Type() == "template_type" {
		// An explicit specialization: struct Foo<int> { ... };
		cat = engine.CatClassTemplateSpecialization
		short = w.text(nameNode.ChildByFieldName("name"))
	}

	rec := declRec{
		info: engine.DeclInfo{
			Category:             cat,
			Tag:                  tag,
			HasName:              short != "",
			HasLinkage:           true,
			IsAnonymous:          short == "",
			IsCompleteDefinition: body != nil,
			ExplicitlyWritten:    cat == engine.CatClassTemplateSpecialization,
			TypedefNameForAnon:   typedefName,
		},
		shortName: short,
		qualified: w.qualify(short),
		usr:       w.buildUSR(recordUSRTag(tag), w.recordUSRName(n, short), ""),
		printed:   short,
	}
	rec.comment, rec.commentCol = w.precedingComment(recordCommentAnchor(n))

	if cat == engine.CatClassTemplateSpecialization {
		if primary, ok := w.tu.syms.byQualified[w.qualify(short)]; ok {
			rec.info.SpecializedFrom = primary
		}
	}

	nameRng := nodeRange(n)
	if nameNode != nil {
		nameRng = nodeRange(nameNode)
	}
	roles := xref.RoleDeclaration
	if body != nil {
		roles = xref.RoleDefinition
	}

	// Base clause first so Bases is ready when the definition event fires.
	if body != nil {
		if bases := findChildType(n, "base_class_clause"); bases != nil {
			for i := 0; i < int(bases.NamedChildCount()); i++ {
				b := bases.NamedChild(i)
				switch b.Type() {
				case "type_identifier", "qualified_identifier", "template_type":
					baseName := collapseWS(w.text(b))
					baseDecl := w.lookup(strings.ReplaceAll(baseName, " ", ""))
					rec.info.Bases = append(rec.info.Bases, w.tu.internType(baseName, baseDecl))
					if baseDecl != engine.InvalidNode {
						defer w.emitRef(baseDecl, nodeRange(b), xref.RoleReference)
					}
				}
			}
		}
	}

	// Register now, emit after the body walk: the consumer reads Fields off
	// the arena when the definition event arrives, so every member must be
	// declared first.
	id := w.register(rec, nameRng, nodeRange(n))
	w.tu.internType(rec.qualified, id)

	if body == nil {
		w.emitRef(id, nameRng, roles)
		return id
	}
	w.scopes = append(w.scopes, scopeFrame{node: id, name: short, cat: engine.CatRecord, anon: short == ""})
	var fields []engine.NodeID
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		switch c.Type() {
		case "field_declaration":
			fields = append(fields, w.walkField(c)...)
		case "function_definition":
			w.walkFunction(c, true, nil)
		case "declaration":
			w.walkDeclaration(c)
		case "class_specifier", "struct_specifier", "union_specifier":
			w.walkRecord(c, nil)
		case "enum_specifier":
			w.walkEnum(c, nil)
		case "alias_declaration":
			w.walkAlias(c)
		case "type_definition":
			w.walkTypedef(c)
		case "template_declaration":
			w.walkTemplate(c)
		}
	}
	w.scopes = w.scopes[:len(w.scopes)-1]
	w.tu.decls[id].info.Fields = fields
	w.emitRef(id, nameRng, roles)
	return id
}

// recordCommentAnchor climbs out of the wrapping declaration so the comment
// above "struct X {...};" is found even though the specifier is nested.
func recordCommentAnchor(n *sitter.Node) *sitter.Node {
	if p := n.Parent(); p != nil &&
		(p.Type() == "declaration" || p.Type() == "template_declaration" || p.Type() == "type_definition") {
		return p
	}
	return n
}

func recordUSRTag(tag engine.TagKind) string {
	if tag == engine.TagUnion {
		return "@U@"
	}
	return "@S@"
}

// recordUSRName disambiguates anonymous records by position.
func (w *walker) recordUSRName(n *sitter.Node, short string) string {
	if short != "" {
		return short
	}
	return "(anon)@" + itoa(int(n.StartPoint().Row)) + ":" + itoa(int(n.StartPoint().Column))
}

func (w *walker) walkEnum(n *sitter.Node, templateParams *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	short := w.text(nameNode)
	body := n.ChildByFieldName("body")
	if short == "" && body == nil {
		return
	}
	rec := declRec{
		info: engine.DeclInfo{
			Category:             engine.CatEnum,
			Tag:                  engine.TagEnum,
			HasName:              short != "",
			HasLinkage:           true,
			IsAnonymous:          short == "",
			IsCompleteDefinition: body != nil,
		},
		shortName: short,
		qualified: w.qualify(short),
		usr:       w.buildUSR("@E@", w.recordUSRName(n, short), ""),
		printed:   short,
	}
	rec.comment, rec.commentCol = w.precedingComment(recordCommentAnchor(n))

	nameRng := nodeRange(n)
	if nameNode != nil {
		nameRng = nodeRange(nameNode)
	}
	roles := xref.RoleDeclaration
	if body != nil {
		roles = xref.RoleDefinition
	}
	id := w.declare(rec, nameRng, nodeRange(n), roles)
	w.tu.internType(rec.qualified, id)
	if body == nil {
		return
	}

	// Enumerators of unscoped enums live in the enclosing scope; scoped
	// enums (enum class) nest. Either way they attach to the enum node.
	scoped := false
	for i := 0; i < int(n.ChildCount()); i++ {
		t := n.Child(i).Type()
		if t == "class" || t == "struct" {
			scoped = true
		}
	}
	if scoped {
		w.scopes = append(w.scopes, scopeFrame{node: id, name: short, cat: engine.CatEnum})
	}
	var next int64
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		if c.Type() != "enumerator" {
			continue
		}
		eName := c.ChildByFieldName("name")
		eShort := w.text(eName)
		if eShort == "" {
			continue
		}
		val := next
		hasValue := false
		if v := c.ChildByFieldName("value"); v != nil {
			if parsed, ok := parseIntLiteral(w.text(v)); ok {
				val = parsed
				hasValue = true
			}
		}
		next = val + 1
		eRec := declRec{
			info: engine.DeclInfo{
				Category:       engine.CatEnumConstant,
				HasName:        true,
				HasLinkage:     true,
				EnumValue:      val,
				HasInitializer: hasValue,
			},
			shortName: eShort,
			qualified: w.qualify(eShort),
			usr:       rec.usr + "@" + eShort,
			printed:   eShort,
		}
		eRec.info.Type = w.tu.internType(rec.qualified, id)
		eRec.comment, eRec.commentCol = w.precedingComment(c)
		w.declare(eRec, nodeRange(eName), nodeRange(c), xref.RoleDefinition)
	}
	if scoped {
		w.scopes = w.scopes[:len(w.scopes)-1]
	}
}

func (w *walker) walkAlias(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	short := w.text(nameNode)
	if short == "" {
		return
	}
	typeNode := n.ChildByFieldName("type")
	w.declareAlias(n, nameNode, typeNode, short, engine.CatTypeAlias)
}

func (w *walker) walkTypedef(n *sitter.Node) {
	typeNode := n.ChildByFieldName("type")
	// The aliased specifier may itself declare a record: typedef struct {..} T;
	if typeNode != nil {
		switch typeNode.Type() {
		case "struct_specifier", "class_specifier", "union_specifier":
			w.walkRecordTypedef(n, typeNode)
			return
		case "enum_specifier":
			w.walkEnum(typeNode, nil)
		}
	}
	decl := n.ChildByFieldName("declarator")
	if decl == nil {
		return
	}
	short := w.text(innermostDeclaratorName(decl))
	if short == "" {
		return
	}
	w.declareAlias(n, innermostDeclaratorName(decl), typeNode, short, engine.CatTypedef)
}

// walkRecordTypedef handles "typedef struct {...} Name;": the record is
// declared (possibly anonymous, named by the typedef), then the alias.
func (w *walker) walkRecordTypedef(n, spec *sitter.Node) {
	decl := n.ChildByFieldName("declarator")
	typedefName := w.text(innermostDeclaratorName(decl))
	// An anonymous record takes its name from the typedef.
	if spec.ChildByFieldName("name") == nil {
		w.typedefNameHint = typedefName
	}
	recordID := w.walkRecord(spec, nil)
	if typedefName == "" || recordID == engine.InvalidNode {
		return
	}
	rec := declRec{
		info: engine.DeclInfo{
			Category:       engine.CatTypedef,
			HasName:        true,
			HasLinkage:     true,
			UnderlyingType: w.tu.internType(w.tu.decls[recordID].qualified, recordID),
			TypeLoc:        engine.Loc{File: w.fid, Range: nodeRange(spec)},
		},
		shortName: typedefName,
		qualified: w.qualify(typedefName),
		usr:       w.buildUSR("@T@", typedefName, ""),
		printed:   "typedef " + collapseWS(w.text(spec.Child(0))) + " " + typedefName,
	}
	rec.comment, rec.commentCol = w.precedingComment(n)
	id := w.declare(rec, nodeRange(innermostDeclaratorName(decl)), nodeRange(n), xref.RoleDefinition)
	w.tu.internType(rec.qualified, id)
}

func (w *walker) declareAlias(n, nameNode, typeNode *sitter.Node, short string, cat engine.Category) {
	var underlying engine.TypeID
	var typeLoc engine.Loc
	if typeNode != nil {
		tname := collapseWS(w.text(typeNode))
		underlying = w.tu.internType(tname, w.lookup(strings.ReplaceAll(tname, " ", "")))
		typeLoc = engine.Loc{File: w.fid, Range: nodeRange(typeNode)}
	}
	printed := short
	if cat == engine.CatTypeAlias && typeNode != nil {
		printed = "using " + short + " = " + collapseWS(w.text(typeNode))
	} else if cat == engine.CatTypedef && typeNode != nil {
		printed = "typedef " + collapseWS(w.text(typeNode)) + " " + short
	}
	rec := declRec{
		info: engine.DeclInfo{
			Category:       cat,
			HasName:        true,
			HasLinkage:     true,
			UnderlyingType: underlying,
			TypeLoc:        typeLoc,
		},
		shortName: short,
		qualified: w.qualify(short),
		usr:       w.buildUSR("@T@", short, ""),
		printed:   printed,
	}
	rec.comment, rec.commentCol = w.precedingComment(n)
	id := w.declare(rec, nodeRange(nameNode), nodeRange(n), xref.RoleDefinition)
	w.tu.internType(rec.qualified, id)
	if typeNode != nil {
		if target, _ := w.tu.ResolveType(underlying); target != engine.InvalidNode {
			w.emitRef(target, nodeRange(typeNode), xref.RoleReference)
		}
	}
}

func (w *walker) walkTemplate(n *sitter.Node) {
	params := n.ChildByFieldName("parameters")
	// Template parameters are declared in a scope wrapping the templated
	// entity; they have no linkage.
	if params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			c := params.NamedChild(i)
			switch c.Type() {
			case "type_parameter_declaration", "template_template_parameter_declaration":
				short := ""
				for j := 0; j < int(c.NamedChildCount()); j++ {
					if cc := c.NamedChild(j); cc.Type() == "type_identifier" {
						short = w.text(cc)
					}
				}
				if short == "" {
					continue
				}
				cat := engine.CatTemplateTypeParm
				if c.Type() == "template_template_parameter_declaration" {
					cat = engine.CatTemplateTemplateParm
				}
				rec := declRec{
					info: engine.DeclInfo{
						Category: cat,
						HasName:  true,
					},
					shortName: short,
					qualified: w.qualify(short),
					usr:       w.buildUSR("@TP@", short, "@"+itoa(int(c.StartPoint().Row))),
					printed:   short,
					local:     true,
				}
				id := w.declare(rec, nodeRange(c), nodeRange(c), xref.RoleDefinition)
				w.tu.internType(short, id)
			case "parameter_declaration":
				// Non-type template parameter.
				if name := innermostDeclaratorName(c.ChildByFieldName("declarator")); name != nil {
					short := w.text(name)
					rec := declRec{
						info: engine.DeclInfo{
							Category: engine.CatNonTypeTemplateParm,
							HasName:  true,
							Type:     w.tu.internType(collapseWS(w.text(c.ChildByFieldName("type"))), engine.InvalidNode),
						},
						shortName: short,
						qualified: w.qualify(short),
						usr:       w.buildUSR("@TP@", short, "@"+itoa(int(c.StartPoint().Row))),
						printed:   collapseWS(w.text(c)),
						local:     true,
					}
					w.declare(rec, nodeRange(name), nodeRange(c), xref.RoleDefinition)
				}
			}
		}
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "class_specifier", "struct_specifier", "union_specifier":
			w.walkRecord(c, params)
		case "function_definition":
			w.walkFunction(c, true, params)
		case "declaration", "field_declaration":
			w.walkDeclaration(c)
		case "alias_declaration":
			w.walkAlias(c)
		case "template_declaration":
			w.walkTemplate(c)
		}
	}
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	var b [12]byte
	i := len(b)
	neg := v < 0
	if neg {
		v = -v
	}
	for v > 0 {
		i--
		b[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		b[i] = '-'
	}
	return string(b[i:])
}

func parseIntLiteral(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	base := int64(10)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		s = s[2:]
	}
	if s == "" {
		return 0, false
	}
	var v int64
	for i := 0; i < len(s); i++ {
		c := s[i]
		var d int64
		switch {
		case c >= '0' && c <= '9':
			d = int64(c - '0')
		case base == 16 && c >= 'a' && c <= 'f':
			d = int64(c-'a') + 10
		case base == 16 && c >= 'A' && c <= 'F':
			d = int64(c-'A') + 10
		case c == 'u' || c == 'U' || c == 'l' || c == 'L':
			continue
		default:
			return 0, false
		}
		v = v*base + d
	}
	if neg {
		v = -v
	}
	return v, true
}

func findChildType(n *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == typ {
			return c
		}
	}
	return nil
}

// innermostDeclaratorName unwraps pointer/array/reference/function
// declarators down to the declared identifier node.
func innermostDeclaratorName(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Type() {
		case "identifier", "field_identifier", "type_identifier",
			"operator_name", "destructor_name", "qualified_identifier":
			return n
		case "pointer_declarator", "array_declarator", "reference_declarator",
			"function_declarator", "parenthesized_declarator", "init_declarator":
			if d := n.ChildByFieldName("declarator"); d != nil {
				n = d
				continue
			}
			if n.NamedChildCount() > 0 {
				n = n.NamedChild(0)
				continue
			}
			return nil
		default:
			return nil
		}
	}
	return nil
}
