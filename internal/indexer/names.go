package indexer

import (
	"strings"

	"cxref/internal/engine"
	"cxref/internal/xref"
)

func isIdentifierChar(c byte) bool {
	return c == '_' || c == '$' ||
		c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// setName renders the node's full declaration syntax, qualifies the first
// unbound occurrence of the short name, and records the byte offsets of the
// short name and of the start of its qualification within the rendition.
func setName(tu engine.TU, node engine.NodeID, short, qualified string, n *xref.NameMixin) {
	name := simplifyAnonymous(tu.PrintDecl(node))
	// Collapse empty terse bodies the printer renders across two lines.
	name = strings.ReplaceAll(name, "{\n}", "{}")

	i := strings.Index(name, short)
	if short != "" {
		// Skip occurrences glued to other identifier characters.
		for i >= 0 && ((i > 0 && isIdentifierChar(name[i-1])) ||
			(i+len(short) < len(name) && isIdentifierChar(name[i+len(short)]))) {
			j := strings.Index(name[i+len(short):], short)
			if j < 0 {
				i = -1
				break
			}
			i += len(short) + j
		}
	}
	switch {
	case i < 0:
		// e.g. conversion operators rendering a dependent type.
		i = 0
		n.ShortNameOffset = 0
	case short == "" || (i >= 2 && name[i-2] == ':'):
		// Already scope-qualified in place (ns::name, Cls::*name): keep.
		n.ShortNameOffset = int32(i)
	default:
		name = name[:i] + qualified + name[i+len(short):]
		n.ShortNameOffset = int32(i + len(qualified) - len(short))
	}
	n.ShortNameSize = int32(len(short))

	// Scan left through balanced parentheses and identifier/':' characters
	// to find where qualification starts.
	paren := 0
	for ; i > 0; i-- {
		c := name[i-1]
		if c == ')' {
			paren++
		} else if c == '(' {
			paren--
		} else if !(paren > 0 || isIdentifierChar(c) || c == ':') {
			break
		}
	}
	n.QualNameOffset = int32(i)
	n.DetailedName = name
}

// setVarName is the variable/field/binding specialization of setName: when
// the declared type is deduced (auto, decltype or an unexpanded deduced
// form) it renders the resolved type followed by the qualified name instead
// of leaking deduction syntax, and appends short initializers to form hover
// text.
func (p *pass) setVarName(node engine.NodeID, short, qualified string, def *xref.VarDef) {
	info := p.tu.Info(node)
	def.Storage = info.Storage

	deduced := info.Category == engine.CatBinding
	if info.Type != engine.InvalidType && p.tu.IsDeducedType(info.Type) {
		deduced = true
	}
	if info.Type != engine.InvalidType && deduced {
		s := p.tu.PrintType(info.Type)
		if s != "" {
			last := s[len(s)-1]
			if last != ' ' && last != '*' && last != '&' {
				s += " "
			}
		}
		def.QualNameOffset = int32(len(s))
		def.ShortNameOffset = int32(len(s) + len(qualified) - len(short))
		def.ShortNameSize = int32(len(short))
		def.DetailedName = s + qualified
	} else {
		setName(p.tu, node, short, qualified, &def.NameMixin)
	}

	if !info.HasInitializer || info.InitLoc.File == engine.InvalidFile {
		return
	}
	// The initializer must follow the name in the same file; macro-spliced
	// declarations keep no hover.
	if info.NameLoc.File != info.InitLoc.File ||
		!posBefore(info.NameLoc.Range.Start, info.InitLoc.Range.Start) {
		return
	}
	buf := p.tu.SourceText(info.InitLoc.File, info.InitLoc.Range)
	var init string
	if strings.Count(buf, "\n") <= p.maxInitializerLines-1 && buf != "" {
		if buf[0] == ':' {
			init = " " + buf
		} else {
			init = " = " + buf
		}
	}
	hover := def.DetailedName + init
	if def.Storage == xref.StorageStatic && !strings.HasPrefix(def.DetailedName, "static ") {
		hover = "static " + hover
	}
	def.Hover = hover
}

func posBefore(a, b xref.Pos) bool {
	return a.Line < b.Line || a.Line == b.Line && a.Column < b.Column
}

// extractComment locates the nearest documentation comment of a node and
// normalizes it: every line after the first is un-indented by a pad length
// derived from the first line's comment marker, trailing close markers are
// stripped, and trailing whitespace trimmed. Returns "" when there is none.
func (p *pass) extractComment(node engine.NodeID) string {
	raw, startColumn, ok := p.tu.Comment(node)
	if !ok || raw == "" {
		return ""
	}
	var b strings.Builder
	pad := -1
	for i := 0; i < len(raw); {
		// Lines after the first carry the original indentation; drop up to
		// startColumn-1 leading blanks before the marker handling below.
		skip := int(startColumn) - 1
		for skip > 0 && i < len(raw) && (raw[i] == ' ' || raw[i] == '\t') {
			i++
			skip--
		}
		q := i
		for q < len(raw) && raw[q] != '\n' {
			q++
		}
		if q < len(raw) {
			q++
		}
		if pad < 0 {
			// First line: measure the comment marker and remember its
			// length as the pad for the remaining lines.
			begin := i
			for i < len(raw) && (raw[i] == '/' || raw[i] == '*' || raw[i] == '-' || raw[i] == '=') {
				i++
			}
			if i < len(raw) && (raw[i] == '<' || raw[i] == '!') {
				i++
			}
			if i < len(raw) && raw[i] == ' ' {
				i++
			}
			if i+1 == q {
				i++
			} else {
				pad = i - begin
			}
		} else {
			prefix := pad
			for prefix > 0 && i < len(raw) &&
				(raw[i] == ' ' || raw[i] == '/' || raw[i] == '*' || raw[i] == '<' || raw[i] == '!') {
				prefix--
				i++
			}
		}
		b.WriteString(raw[i:q])
		i = q
	}
	ret := strings.TrimRight(b.String(), " \t\r\n\f\v")
	if strings.HasSuffix(ret, "*/") || strings.HasSuffix(ret, "\n/") {
		ret = ret[:len(ret)-2]
	}
	return strings.TrimRight(ret, " \t\r\n\f\v")
}
