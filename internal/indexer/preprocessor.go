package indexer

import (
	"strings"

	"cxref/internal/engine"
	"cxref/internal/xref"
)

// HandleFileEntered claims a file the moment the preprocessor enters it, so
// headers that declare nothing still get stamped and indexed.
func (p *pass) HandleFileEntered(fid engine.FileID) {
	p.param.consumeFile(fid)
}

// HandleInclusion records an inclusion directive in the including file.
func (p *pass) HandleInclusion(fid engine.FileID, spell xref.Range, resolvedPath string) {
	if resolvedPath == "" {
		return
	}
	if db := p.param.consumeFile(fid); db != nil {
		db.Includes = append(db.Includes, xref.Include{
			Line:         spell.Start.Line,
			ResolvedPath: resolvedPath,
		})
	}
}

// HandleMacroDefined records a macro definition as a variable entity with
// the macro symbol kind. A redefinition demotes the previous definition to
// a declaration.
func (p *pass) HandleMacroDefined(fid engine.FileID, name string, nameRng, extent xref.Range) {
	db := p.param.consumeFile(fid)
	if db == nil {
		return
	}
	v := db.ToVar(hashMacroUsr(name))
	v.Def.Kind = xref.SymMacro
	v.Def.ParentKind = xref.SymFile
	if v.Def.Spell != nil {
		v.Declarations = append(v.Declarations, *v.Def.Spell)
	}
	v.Def.Spell = &xref.DeclRef{
		Use:    xref.Use{Range: nameRng, Role: xref.RoleDefinition, FileID: -1},
		Extent: extent,
	}
	if v.Def.DetailedName == "" {
		v.Def.DetailedName = name
		v.Def.ShortNameSize = int32(len(name))
		src := p.param.tu.SourceText(fid, extent)
		if src != "" && strings.Count(src, "\n") <= p.maxInitializerLines-1 {
			v.Def.Hover = "#define " + src
		} else {
			v.Def.Hover = "#define " + name
		}
	}
}

// HandleMacroExpanded records a macro use at its spelling position.
func (p *pass) HandleMacroExpanded(fid engine.FileID, name string, at xref.Range) {
	if db := p.param.consumeFile(fid); db != nil {
		v := db.ToVar(hashMacroUsr(name))
		v.Uses = append(v.Uses, xref.Use{Range: at, Role: xref.RoleDynamic, FileID: -1})
	}
}

// HandleMacroUndefined records an #undef as a use of the macro.
func (p *pass) HandleMacroUndefined(fid engine.FileID, name string, at xref.Range) {
	p.HandleMacroExpanded(fid, name, at)
}

// HandleRangeSkipped records a preprocessor-disabled region.
func (p *pass) HandleRangeSkipped(fid engine.FileID, rng xref.Range) {
	if db := p.param.consumeFile(fid); db != nil {
		db.SkippedRanges = append(db.SkippedRanges, rng)
	}
}
