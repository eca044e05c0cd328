//go:build cgo

package treesitter

import (
	"strings"

	"cxref/internal/engine"
)

// buildUSR renders a unified symbol reference for a declaration in the
// walker's current scope. The shape follows the familiar clang scheme:
// "c:@N@ns@S@Cls@F@f#int#" — a chain of tagged scope segments, then the
// leaf tag, name and an optional overload suffix.
func (w *walker) buildUSR(tag, name, suffix string) string {
	return w.buildUSRFrom(w.scopes, tag, name, suffix)
}

func (w *walker) buildUSRFrom(frames []scopeFrame, tag, name, suffix string) string {
	var b strings.Builder
	b.WriteString("c:")
	for _, s := range frames {
		switch s.cat {
		case engine.CatNamespace:
			if s.anon {
				b.WriteString("@aN")
			} else {
				b.WriteString("@N@")
				b.WriteString(s.name)
			}
		case engine.CatRecord, engine.CatClassTemplate,
			engine.CatClassTemplateSpecialization:
			b.WriteString("@S@")
			b.WriteString(s.name)
		case engine.CatEnum:
			b.WriteString("@E@")
			b.WriteString(s.name)
		case engine.CatFunction, engine.CatFunctionTemplate, engine.CatMethod,
			engine.CatConstructor, engine.CatDestructor, engine.CatConversion:
			b.WriteString("@F@")
			b.WriteString(s.name)
		default:
			if s.name != "" {
				b.WriteString("@")
				b.WriteString(s.name)
			}
		}
	}
	b.WriteString(tag)
	b.WriteString(name)
	b.WriteString(suffix)
	return b.String()
}
