package indexer

import (
	"strings"

	"golang.org/x/crypto/blake2b"

	"cxref/internal/engine"
	"cxref/internal/xref"
)

// macroUsrPrefix namespaces macro keys away from declaration keys; macro
// identity depends only on the spelling.
const macroUsrPrefix = "@macro@"

// hashUsr derives the 64-bit symbol key from a unique textual reference.
func hashUsr(usr string) xref.Usr {
	h, err := blake2b.New(8, nil)
	if err != nil {
		panic(err)
	}
	h.Write([]byte(usr))
	var sum [8]byte
	h.Sum(sum[:0])
	return xref.Usr(uint64(sum[0]) | uint64(sum[1])<<8 | uint64(sum[2])<<16 |
		uint64(sum[3])<<24 | uint64(sum[4])<<32 | uint64(sum[5])<<40 |
		uint64(sum[6])<<48 | uint64(sum[7])<<56)
}

// hashMacroUsr derives the key of a macro from its spelling.
func hashMacroUsr(name string) xref.Usr {
	return hashUsr(macroUsrPrefix + name)
}

// declNames caches the expensive per-symbol renderings: the key plus the
// short and fully-qualified display names.
type declNames struct {
	usr       xref.Usr
	shortName string
	qualified string
}

// resolver canonicalizes declaration nodes to stable keys and caches their
// display names. Records live in a dense append-only arena; the cache map
// holds small indexes into it, keyed by canonical node handle.
type resolver struct {
	tu    engine.TU
	arena []declNames
	index map[engine.NodeID]int32
}

func newResolver(tu engine.TU) *resolver {
	return &resolver{tu: tu, index: make(map[engine.NodeID]int32)}
}

// resolve canonicalizes node and returns its key together with the cached
// names. Name rendering happens exactly once per canonical node per pass;
// later lookups are map hits returning identical names.
func (r *resolver) resolve(node engine.NodeID) (xref.Usr, *declNames) {
	canon := r.tu.Canonical(node)
	if i, ok := r.index[canon]; ok {
		return r.arena[i].usr, &r.arena[i]
	}
	var names declNames
	usr, err := r.tu.USR(canon)
	if err == nil {
		names.usr = hashUsr(usr)
	}
	if info := r.tu.Info(canon); info.HasName {
		names.shortName = r.tu.ShortName(canon)
		names.qualified = simplifyAnonymous(r.tu.QualifiedName(canon))
	}
	r.index[canon] = int32(len(r.arena))
	r.arena = append(r.arena, names)
	return names.usr, &r.arena[len(r.arena)-1]
}

// usrOf is resolve without the names.
func (r *resolver) usrOf(node engine.NodeID) xref.Usr {
	usr, _ := r.resolve(node)
	return usr
}

// adjusted walks a node to a more useful canonical substitute: an implicit
// template specialization collapses onto the template (or partial
// specialization) it was instantiated from, and a member instantiated from
// a template's member collapses onto that member. Specializations the user
// explicitly wrote keep their own identity.
func (r *resolver) adjusted(node engine.NodeID) engine.NodeID {
	for node != engine.InvalidNode {
		info := r.tu.Info(node)
		if info.SpecializedFrom != engine.InvalidNode && !info.ExplicitlyWritten {
			node = info.SpecializedFrom
			continue
		}
		if info.InstantiatedFromMember != engine.InvalidNode {
			node = info.InstantiatedFromMember
			continue
		}
		break
	}
	return node
}

// simplifyAnonymous normalizes the engine's anonymous-namespace and
// anonymous-tag renderings to fixed placeholder forms.
func simplifyAnonymous(name string) string {
	for i := 0; ; {
		j := strings.Index(name[i:], "(anonymous ")
		if j < 0 {
			break
		}
		i += j + 1
		if strings.HasPrefix(name[i:], "anonymous namespace)") {
			name = name[:i] + "anon ns" + name[i+len("anonymous namespace"):]
		} else {
			name = name[:i] + "anon" + name[i+len("anonymous"):]
		}
	}
	return name
}
