//go:build cgo

package treesitter

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"cxref/internal/engine"
	"cxref/internal/xref"
)

// findFunctionDeclarator unwraps a declarator chain to the
// function_declarator, if the declaration declares a function.
func findFunctionDeclarator(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Type() {
		case "function_declarator":
			return n
		case "pointer_declarator", "reference_declarator", "init_declarator",
			"parenthesized_declarator":
			n = n.ChildByFieldName("declarator")
		default:
			return nil
		}
	}
	return nil
}

// signature renders the USR overload suffix from the parameter type list.
func (w *walker) signature(fdecl *sitter.Node) string {
	params := fdecl.ChildByFieldName("parameters")
	if params == nil {
		return "#"
	}
	var b strings.Builder
	b.WriteByte('#')
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		if p.Type() != "parameter_declaration" && p.Type() != "optional_parameter_declaration" {
			continue
		}
		t := collapseWS(w.text(p.ChildByFieldName("type")))
		// Pointer/reference shape lives in the declarator.
		if d := p.ChildByFieldName("declarator"); d != nil {
			for c := d; c != nil; {
				switch c.Type() {
				case "pointer_declarator":
					t += "*"
					c = c.ChildByFieldName("declarator")
				case "reference_declarator":
					t += "&"
					c = c.ChildByFieldName("declarator")
				default:
					c = nil
				}
			}
		}
		b.WriteString(t)
		b.WriteByte('#')
	}
	return b.String()
}

// functionCategory classifies a function by its name shape and scope.
func (w *walker) functionCategory(short string, inRecord bool, recordName string, templated bool) engine.Category {
	switch {
	case strings.HasPrefix(short, "~"):
		return engine.CatDestructor
	case strings.HasPrefix(short, "operator ") && !strings.ContainsAny(short, "+-*/%<>=!&|^~[]("):
		return engine.CatConversion
	case inRecord && short == recordName:
		return engine.CatConstructor
	case inRecord:
		return engine.CatMethod
	case templated:
		return engine.CatFunctionTemplate
	default:
		return engine.CatFunction
	}
}

// qualifierFrames maps the written qualifier of an out-of-line name
// ("ns::Cls::f") onto scope frames, resolving each segment's category.
func (w *walker) qualifierFrames(qual *sitter.Node) []scopeFrame {
	frames := append([]scopeFrame{}, w.scopes...)
	for qual != nil && qual.Type() == "qualified_identifier" {
		seg := qual.ChildByFieldName("scope")
		if seg == nil {
			break
		}
		name := w.text(seg)
		if i := strings.IndexByte(name, '<'); i > 0 {
			name = name[:i]
		}
		cat := engine.CatRecord
		if id := w.lookupFrom(frames, name); id != engine.InvalidNode {
			switch w.tu.decls[id].info.Category {
			case engine.CatNamespace:
				cat = engine.CatNamespace
			case engine.CatEnum:
				cat = engine.CatEnum
			}
		}
		frames = append(frames, scopeFrame{name: name, cat: cat})
		qual = qual.ChildByFieldName("name")
	}
	return frames
}

// lookupFrom resolves a short name against an explicit frame stack.
func (w *walker) lookupFrom(frames []scopeFrame, short string) engine.NodeID {
	var prefix []string
	for _, s := range frames {
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
	return engine.InvalidNode
}

// walkFunction handles function_definition nodes and declarations whose
// declarator is a function_declarator.
func (w *walker) walkFunction(n *sitter.Node, isDef bool, templateParams *sitter.Node) {
	declarator := n.ChildByFieldName("declarator")
	fdecl := findFunctionDeclarator(declarator)
	if fdecl == nil {
		return
	}
	nameNode := innermostDeclaratorName(fdecl.ChildByFieldName("declarator"))
	if nameNode == nil {
		// Conversion operators: "operator int" parses as operator_cast.
		nameNode = findChildType(fdecl, "operator_cast")
	}
	if nameNode == nil {
		return
	}

	frames := w.scopes
	short := w.text(nameNode)
	spellNode := nameNode
	if nameNode.Type() == "qualified_identifier" {
		frames = w.qualifierFrames(nameNode)
		leaf := nameNode
		for leaf.Type() == "qualified_identifier" {
			leaf = leaf.ChildByFieldName("name")
		}
		short = w.text(leaf)
		spellNode = leaf
	}
	if i := strings.IndexByte(short, '<'); i > 0 && !strings.HasPrefix(short, "operator") {
		short = short[:i]
	}

	inRecord := len(frames) > 0 && frames[len(frames)-1].cat == engine.CatRecord
	recordName := ""
	if inRecord {
		recordName = frames[len(frames)-1].name
	}
	cat := w.functionCategory(short, inRecord, recordName, templateParams != nil)

	storage := xref.StorageNone
	isStatic := false
	retType := collapseWS(w.text(n.ChildByFieldName("type")))
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "storage_class_specifier" {
			switch w.text(c) {
			case "static":
				storage = xref.StorageStatic
				isStatic = true
			case "extern":
				storage = xref.StorageExtern
			}
		}
	}

	var qparts []string
	for _, s := range frames {
		if s.anon && s.cat == engine.CatNamespace {
			qparts = append(qparts, "(anonymous namespace)")
		} else if s.name != "" {
			qparts = append(qparts, s.name)
		}
	}
	qualified := strings.Join(append(qparts, short), "::")

	rec := declRec{
		info: engine.DeclInfo{
			Category:   cat,
			HasName:    true,
			HasLinkage: true,
			IsStatic:   isStatic,
			Storage:    storage,
		},
		shortName: short,
		qualified: qualified,
		usr:       w.buildUSRFrom(frames, "@F@", short, w.signature(fdecl)),
	}
	rec.comment, rec.commentCol = w.precedingComment(n)

	// Rendered syntax: everything before the body, initializers dropped.
	printed := retType
	if printed != "" {
		printed += " "
	}
	printed += collapseWS(w.text(declarator))
	rec.printed = strings.TrimSpace(printed)

	if inRecord && isVirtual(n) {
		if over := w.findOverridden(frames, short); over != engine.InvalidNode {
			rec.info.Overridden = []engine.NodeID{over}
		}
	}

	roles := xref.RoleDeclaration
	if isDef {
		roles = xref.RoleDefinition
	}

	// Out-of-line definitions keep the in-class semantic container.
	savedScopes := w.scopes
	if len(frames) > len(w.scopes) {
		if prior, ok := w.tu.byUsr[rec.usr]; ok {
			rec.info.SemContainer = w.tu.decls[prior].info.SemContainer
		}
	}
	id := w.declare(rec, nodeRange(spellNode), nodeRange(n), roles)

	if !isDef {
		return
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	w.scopes = append(frames, scopeFrame{node: id, name: short, cat: cat})
	w.locals = append(w.locals, map[string]engine.NodeID{})
	w.declareParams(fdecl)
	if !w.skipBody {
		w.walkStatement(body)
	}
	w.locals = w.locals[:len(w.locals)-1]
	w.scopes = savedScopes
}

func isVirtual(n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "virtual", "virtual_function_specifier":
			return true
		}
	}
	if decl := findFunctionDeclarator(n.ChildByFieldName("declarator")); decl != nil {
		for i := 0; i < int(decl.NamedChildCount()); i++ {
			if decl.NamedChild(i).Type() == "virtual_specifier" {
				return true
			}
		}
	}
	return false
}

// findOverridden searches enclosing record's bases for a method of the same
// name.
func (w *walker) findOverridden(frames []scopeFrame, short string) engine.NodeID {
	record := frames[len(frames)-1].node
	if record == engine.InvalidNode {
		// Out-of-line: resolve the record by qualified name.
		var qparts []string
		for _, s := range frames {
			if !s.anon && s.name != "" {
				qparts = append(qparts, s.name)
			}
		}
		if id, ok := w.tu.syms.byQualified[strings.Join(qparts, "::")]; ok {
			record = id
		}
	}
	d := w.tu.decl(record)
	if d == nil {
		return engine.InvalidNode
	}
	for _, base := range d.info.Bases {
		baseDecl, _ := w.tu.ResolveType(base)
		bd := w.tu.decl(baseDecl)
		if bd == nil {
			continue
		}
		if id, ok := w.tu.syms.byQualified[bd.qualified+"::"+short]; ok {
			return id
		}
	}
	return engine.InvalidNode
}

// declareParams declares CatParam nodes for a function being defined.
func (w *walker) declareParams(fdecl *sitter.Node) {
	params := fdecl.ChildByFieldName("parameters")
	if params == nil {
		return
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		if p.Type() != "parameter_declaration" && p.Type() != "optional_parameter_declaration" {
			continue
		}
		nameNode := innermostDeclaratorName(p.ChildByFieldName("declarator"))
		if nameNode == nil || nameNode.Type() != "identifier" {
			continue
		}
		short := w.text(nameNode)
		tname := collapseWS(w.text(p.ChildByFieldName("type")))
		rec := declRec{
			info: engine.DeclInfo{
				Category: engine.CatParam,
				HasName:  true,
				Type:     w.tu.internType(tname, w.lookup(tname)),
			},
			shortName: short,
			qualified: short,
			usr:       w.buildUSR("@p@", short, "@"+itoa(int(p.StartPoint().Row))+":"+itoa(int(p.StartPoint().Column))),
			printed:   collapseWS(w.text(p)),
			local:     true,
		}
		w.declare(rec, nodeRange(nameNode), nodeRange(p), xref.RoleDefinition)
	}
}

// walkDeclaration handles "declaration" nodes at namespace or record scope:
// function prototypes and variables.
func (w *walker) walkDeclaration(n *sitter.Node) {
	// Record/enum specifiers used as the declaration's type also declare.
	if typeNode := n.ChildByFieldName("type"); typeNode != nil {
		switch typeNode.Type() {
		case "class_specifier", "struct_specifier", "union_specifier":
			if typeNode.ChildByFieldName("body") != nil || n.ChildByFieldName("declarator") == nil {
				w.walkRecord(typeNode, nil)
			}
		case "enum_specifier":
			if typeNode.ChildByFieldName("body") != nil || n.ChildByFieldName("declarator") == nil {
				w.walkEnum(typeNode, nil)
			}
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		d := n.NamedChild(i)
		switch d.Type() {
		case "function_declarator", "init_declarator", "identifier",
			"pointer_declarator", "reference_declarator", "array_declarator",
			"field_identifier", "qualified_identifier":
			if findFunctionDeclarator(d) != nil || d.Type() == "function_declarator" {
				w.walkFunction(n, false, nil)
			} else {
				w.declareVar(n, d, false)
			}
		}
	}
}

// walkField handles field_declaration nodes inside a record body, returning
// the declared field nodes in order.
func (w *walker) walkField(n *sitter.Node) []engine.NodeID {
	var ids []engine.NodeID
	for i := 0; i < int(n.NamedChildCount()); i++ {
		d := n.NamedChild(i)
		switch d.Type() {
		case "function_declarator", "field_identifier", "pointer_declarator",
			"reference_declarator", "array_declarator", "init_declarator":
			if findFunctionDeclarator(d) != nil || d.Type() == "function_declarator" {
				w.walkFunction(n, false, nil)
				return nil
			}
			if id := w.declareVar(n, d, true); id != engine.InvalidNode {
				ids = append(ids, id)
			}
		case "struct_specifier", "class_specifier", "union_specifier":
			// Anonymous nested record inside a field declaration.
			if d.ChildByFieldName("body") != nil && d.ChildByFieldName("name") == nil {
				w.walkRecord(d, nil)
			}
		}
	}
	return ids
}

// declareVar declares one variable/field from a declaration node and its
// declarator child.
func (w *walker) declareVar(n, d *sitter.Node, isField bool) engine.NodeID {
	declarator := d
	var initNode *sitter.Node
	if d.Type() == "init_declarator" {
		declarator = d.ChildByFieldName("declarator")
		initNode = d.ChildByFieldName("value")
	}
	nameNode := innermostDeclaratorName(declarator)
	if nameNode == nil {
		return engine.InvalidNode
	}
	short := w.text(nameNode)
	if short == "" || nameNode.Type() == "qualified_identifier" {
		// Out-of-line static member definition: unify with the in-class
		// declaration by USR.
		frames := w.qualifierFrames(nameNode)
		leaf := nameNode
		for leaf != nil && leaf.Type() == "qualified_identifier" {
			leaf = leaf.ChildByFieldName("name")
		}
		if leaf == nil {
			return engine.InvalidNode
		}
		short = w.text(leaf)
		return w.declareVarAt(n, d, leaf, initNode, short, frames, isField)
	}
	return w.declareVarAt(n, d, nameNode, initNode, short, w.scopes, isField)
}

func (w *walker) declareVarAt(n, d, nameNode, initNode *sitter.Node, short string, frames []scopeFrame, isField bool) engine.NodeID {
	inFunc := len(w.locals) > 0
	cat := engine.CatVar
	if isField {
		cat = engine.CatField
	}

	storage := xref.StorageNone
	isStatic := false
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "storage_class_specifier" {
			switch w.text(c) {
			case "static":
				storage = xref.StorageStatic
				isStatic = true
			case "extern":
				storage = xref.StorageExtern
			}
		}
	}
	if isField && isStatic {
		cat = engine.CatVar
	}

	tname := collapseWS(w.text(n.ChildByFieldName("type")))
	tid := w.tu.internType(tname, w.lookup(strings.ReplaceAll(tname, " ", "")))

	var qparts []string
	for _, s := range frames {
		if s.anon && s.cat == engine.CatNamespace {
			qparts = append(qparts, "(anonymous namespace)")
		} else if s.name != "" {
			qparts = append(qparts, s.name)
		}
	}
	qualified := strings.Join(append(qparts, short), "::")

	usrTag := "@"
	if isField {
		usrTag = "@FI@"
	}
	usr := w.buildUSRFrom(frames, usrTag, short, "")
	local := inFunc
	if local {
		usr += "@" + itoa(int(nameNode.StartPoint().Row)) + ":" + itoa(int(nameNode.StartPoint().Column))
	}

	rec := declRec{
		info: engine.DeclInfo{
			Category:   cat,
			HasName:    true,
			HasLinkage: !local,
			IsStatic:   isStatic,
			Storage:    storage,
			Type:       tid,
		},
		shortName: short,
		qualified: qualified,
		usr:       usr,
		printed:   strings.TrimSpace(tname + " " + collapseWS(w.declaratorText(d))),
		local:     local,
	}
	rec.comment, rec.commentCol = w.precedingComment(n)
	if initNode != nil {
		rec.info.HasInitializer = true
		rec.info.InitLoc = engine.Loc{File: w.fid, Range: nodeRange(initNode)}
	}

	roles := xref.RoleDefinition
	if storage == xref.StorageExtern && initNode == nil {
		roles = xref.RoleDeclaration
	}
	id := w.declare(rec, nodeRange(nameNode), nodeRange(n), roles)

	// Type reference at the spelled type, and initializer references.
	if typeNode := n.ChildByFieldName("type"); typeNode != nil {
		w.emitTypeRef(typeNode)
	}
	if initNode != nil && !w.skipBody {
		w.collectRefs(initNode)
	}
	return id
}

// declaratorText renders a declarator without its initializer.
func (w *walker) declaratorText(d *sitter.Node) string {
	if d.Type() == "init_declarator" {
		return w.text(d.ChildByFieldName("declarator"))
	}
	return w.text(d)
}

// emitTypeRef emits a reference for a spelled type when it resolves.
func (w *walker) emitTypeRef(typeNode *sitter.Node) {
	switch typeNode.Type() {
	case "type_identifier", "qualified_identifier", "template_type":
		name := collapseWS(w.text(typeNode))
		target := typeNode
		if typeNode.Type() == "template_type" {
			name = w.text(typeNode.ChildByFieldName("name"))
			target = typeNode.ChildByFieldName("name")
		}
		if id := w.lookup(strings.ReplaceAll(name, " ", "")); id != engine.InvalidNode {
			w.emitRef(id, nodeRange(target), xref.RoleReference)
		}
		if typeNode.Type() == "template_type" {
			if args := typeNode.ChildByFieldName("arguments"); args != nil {
				for i := 0; i < int(args.NamedChildCount()); i++ {
					w.emitTypeRef(args.NamedChild(i))
				}
			}
		}
	case "type_descriptor":
		if inner := typeNode.ChildByFieldName("type"); inner != nil {
			w.emitTypeRef(inner)
		}
	}
}

// walkStatement walks a function body, declaring locals and collecting
// references.
func (w *walker) walkStatement(n *sitter.Node) {
	switch n.Type() {
	case "declaration":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			d := n.NamedChild(i)
			switch d.Type() {
			case "init_declarator", "identifier", "pointer_declarator",
				"reference_declarator", "array_declarator":
				w.declareVar(n, d, false)
			}
		}
	case "compound_statement", "if_statement", "for_statement",
		"while_statement", "do_statement", "switch_statement",
		"case_statement", "labeled_statement", "try_statement",
		"catch_clause", "for_range_loop", "else_clause":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c.Type() == "declaration" {
				w.walkStatement(c)
			} else if isStatementType(c.Type()) {
				w.walkStatement(c)
			} else {
				w.collectRefs(c)
			}
		}
	case "return_statement", "expression_statement":
		w.collectRefs(n)
	default:
		w.collectRefs(n)
	}
}

func isStatementType(t string) bool {
	switch t {
	case "compound_statement", "if_statement", "for_statement",
		"while_statement", "do_statement", "switch_statement",
		"case_statement", "labeled_statement", "try_statement",
		"catch_clause", "for_range_loop", "else_clause", "declaration":
		return true
	}
	return false
}

// collectRefs scans an expression subtree for name references, assigning
// call/read/write roles by syntactic position.
func (w *walker) collectRefs(n *sitter.Node) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "call_expression":
		fn := n.ChildByFieldName("function")
		if fn != nil {
			switch fn.Type() {
			case "identifier", "qualified_identifier":
				if id := w.lookup(strings.ReplaceAll(w.text(fn), " ", "")); id != engine.InvalidNode {
					w.emitRef(id, nodeRange(fn), xref.RoleCall|xref.RoleReference)
				}
			case "field_expression":
				if f := fn.ChildByFieldName("field"); f != nil {
					if id := w.lookupMember(w.text(f)); id != engine.InvalidNode {
						w.emitRef(id, nodeRange(f), xref.RoleCall|xref.RoleReference)
					}
				}
				w.collectRefs(fn.ChildByFieldName("argument"))
			case "template_function":
				if name := fn.ChildByFieldName("name"); name != nil {
					if id := w.lookup(w.text(name)); id != engine.InvalidNode {
						w.emitRef(id, nodeRange(name), xref.RoleCall|xref.RoleReference)
					}
				}
			}
		}
		w.collectRefs(n.ChildByFieldName("arguments"))
	case "assignment_expression":
		left := n.ChildByFieldName("left")
		if left != nil && left.Type() == "identifier" {
			if id := w.lookup(w.text(left)); id != engine.InvalidNode {
				w.emitRef(id, nodeRange(left), xref.RoleWrite|xref.RoleReference)
			}
		} else {
			w.collectRefs(left)
		}
		w.collectRefs(n.ChildByFieldName("right"))
	case "field_expression":
		w.collectRefs(n.ChildByFieldName("argument"))
		if f := n.ChildByFieldName("field"); f != nil {
			if id := w.lookupMember(w.text(f)); id != engine.InvalidNode {
				w.emitRef(id, nodeRange(f), xref.RoleRead|xref.RoleReference)
			}
		}
	case "identifier":
		if id := w.lookup(w.text(n)); id != engine.InvalidNode {
			roles := xref.RoleRead | xref.RoleReference
			if cat := w.tu.decls[id].info.Category; isFunctionCategory(cat) {
				roles = xref.RoleAddress | xref.RoleReference
			}
			w.emitRef(id, nodeRange(n), roles)
		}
	case "qualified_identifier":
		if id := w.lookup(strings.ReplaceAll(w.text(n), " ", "")); id != engine.InvalidNode {
			w.emitRef(id, nodeRange(n), xref.RoleRead|xref.RoleReference)
		}
	case "type_identifier", "template_type":
		w.emitTypeRef(n)
	case "new_expression":
		if t := n.ChildByFieldName("type"); t != nil {
			w.emitTypeRef(t)
		}
		w.collectRefs(n.ChildByFieldName("arguments"))
	case "lambda_expression":
		w.locals = append(w.locals, map[string]engine.NodeID{})
		if decl := n.ChildByFieldName("declarator"); decl != nil {
			w.declareParams(decl)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			w.walkStatement(body)
		}
		w.locals = w.locals[:len(w.locals)-1]
	case "comment", "string_literal", "raw_string_literal", "char_literal",
		"number_literal", "preproc_arg":
		// Nothing to resolve.
	default:
		for i := 0; i < int(n.NamedChildCount()); i++ {
			w.collectRefs(n.NamedChild(i))
		}
	}
}

func isFunctionCategory(cat engine.Category) bool {
	switch cat {
	case engine.CatFunction, engine.CatMethod, engine.CatConstructor,
		engine.CatDestructor, engine.CatConversion, engine.CatFunctionTemplate:
		return true
	}
	return false
}

// lookupMember resolves a member name by short name across declared fields
// and methods; best-effort without full type inference.
func (w *walker) lookupMember(short string) engine.NodeID {
	for _, id := range w.tu.syms.byShort[short] {
		switch w.tu.decls[id].info.Category {
		case engine.CatField, engine.CatMethod, engine.CatVar:
			return id
		}
	}
	return engine.InvalidNode
}
