// Package indexer turns the semantic event stream of one translation unit
// into finalized per-file cross-reference indexes.
package indexer

import (
	"cxref/internal/engine"
	"cxref/internal/xref"
)

// classify maps a declaration's syntactic category to its coarse storage
// kind and fine-grained symbol kind. The mapping is fixed and total; the
// default arm is the single unknown-category case. known distinguishes
// categories that are recognized but deliberately ignored (dropped
// silently) from truly unknown ones (logged, then dropped).
func classify(info *engine.DeclInfo) (kind xref.Kind, sym xref.SymbolKind, known bool) {
	switch info.Category {
	case engine.CatLinkageSpec, engine.CatUsing, engine.CatTranslationUnit:
		return xref.KindInvalid, xref.SymUnknown, true
	case engine.CatNamespace, engine.CatNamespaceAlias:
		return xref.KindType, xref.SymNamespace, true
	case engine.CatObjCCategory, engine.CatObjCCategoryImpl,
		engine.CatObjCImplementation, engine.CatObjCInterface,
		engine.CatObjCProtocol:
		return xref.KindType, xref.SymInterface, true
	case engine.CatObjCMethod:
		return xref.KindFunc, xref.SymMethod, true
	case engine.CatObjCProperty:
		return xref.KindType, xref.SymProperty, true
	case engine.CatClassTemplate:
		return xref.KindType, xref.SymClass, true
	case engine.CatFunctionTemplate:
		return xref.KindFunc, xref.SymFunction, true
	case engine.CatTypeAliasTemplate:
		return xref.KindType, xref.SymTypeAlias, true
	case engine.CatVarTemplate:
		return xref.KindVar, xref.SymVariable, true
	case engine.CatTemplateTemplateParm, engine.CatTemplateTypeParm:
		return xref.KindType, xref.SymTypeParameter, true
	case engine.CatEnum:
		return xref.KindType, xref.SymEnum, true
	case engine.CatRecord:
		// Unions have no kind of their own; report Class.
		if info.Tag == engine.TagStruct {
			return xref.KindType, xref.SymStruct, true
		}
		return xref.KindType, xref.SymClass, true
	case engine.CatClassTemplateSpecialization,
		engine.CatClassTemplatePartialSpecialization:
		return xref.KindType, xref.SymClass, true
	case engine.CatTypeAlias, engine.CatTypedef, engine.CatUnresolvedUsingTypename:
		return xref.KindType, xref.SymTypeAlias, true
	case engine.CatBinding:
		return xref.KindVar, xref.SymVariable, true
	case engine.CatField, engine.CatObjCIvar:
		return xref.KindVar, xref.SymField, true
	case engine.CatFunction:
		return xref.KindFunc, xref.SymFunction, true
	case engine.CatMethod:
		if info.IsStatic {
			return xref.KindFunc, xref.SymStaticMethod, true
		}
		return xref.KindFunc, xref.SymMethod, true
	case engine.CatConstructor:
		return xref.KindFunc, xref.SymConstructor, true
	case engine.CatConversion, engine.CatDestructor:
		return xref.KindFunc, xref.SymMethod, true
	case engine.CatNonTypeTemplateParm, engine.CatImplicitParam, engine.CatParam:
		// Parameters are a local extension over the LSP kinds.
		return xref.KindVar, xref.SymParameter, true
	case engine.CatVar, engine.CatDecomposition,
		engine.CatVarTemplateSpecialization,
		engine.CatVarTemplatePartialSpecialization,
		engine.CatUnresolvedUsingValue:
		return xref.KindVar, xref.SymVariable, true
	case engine.CatEnumConstant:
		return xref.KindVar, xref.SymEnumMember, true
	default:
		return xref.KindInvalid, xref.SymUnknown, false
	}
}

// declLanguage maps a declaration category to the source-language tag ORed
// into the owning file's language bitmask.
func declLanguage(cat engine.Category) xref.Language {
	switch cat {
	case engine.CatObjCCategory, engine.CatObjCCategoryImpl,
		engine.CatObjCImplementation, engine.CatObjCInterface,
		engine.CatObjCProtocol, engine.CatObjCMethod, engine.CatObjCProperty,
		engine.CatObjCIvar, engine.CatImplicitParam:
		return xref.LangObjC
	case engine.CatConstructor, engine.CatConversion, engine.CatDestructor,
		engine.CatMethod, engine.CatRecord, engine.CatClassTemplate,
		engine.CatClassTemplatePartialSpecialization,
		engine.CatClassTemplateSpecialization, engine.CatFunctionTemplate,
		engine.CatLinkageSpec, engine.CatNamespace, engine.CatNamespaceAlias,
		engine.CatNonTypeTemplateParm, engine.CatTemplateTemplateParm,
		engine.CatTemplateTypeParm, engine.CatUnresolvedUsingTypename,
		engine.CatUnresolvedUsingValue, engine.CatUsing,
		engine.CatTypeAliasTemplate, engine.CatVarTemplate,
		engine.CatVarTemplatePartialSpecialization,
		engine.CatVarTemplateSpecialization, engine.CatBinding,
		engine.CatDecomposition:
		return xref.LangCpp
	default:
		return xref.LangC
	}
}
