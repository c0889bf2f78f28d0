package eddi

import (
	"strings"

	"aspis/internal/annotation"
	"aspis/internal/config"
	"aspis/internal/ir"
)

// dupSuffix is appended to every duplicated global, function signature
// and shadow-cloned instruction result the duplicator produces.
const dupSuffix = "_dup"

// llvmMetadataSection is the one section name the shape filter
// recognizes as metadata storage rather than data (4.4.1).
const llvmMetadataSection = ".llvm.metadata"

// DuplicateGlobals duplicates every eligible global variable of m and
// registers each (G, G_dup) pair in shadow. The shape filter (4.4.1,
// supplemented by original_source/passes/DuplicateGlobals.cpp per §12)
// is an explicit ordered list of exclusion checks rather than one opaque
// predicate, so each reason a global is skipped is independently
// testable. A to_duplicate annotation forces duplication regardless.
func DuplicateGlobals(m *ir.Module, idx *annotation.Index, cfg *config.Config, shadow *ShadowMap) {
	for _, g := range append([]*ir.GlobalVariable(nil), m.Globals()...) {
		if !shouldDuplicateGlobal(g, idx) {
			continue
		}
		dup := g.Clone(g.Name + dupSuffix)
		if cfg.AlternateMemmap {
			m.InsertGlobalBefore(g, dup)
		} else {
			m.InsertGlobalFront(dup)
			if dup.Initializer == nil {
				dup.Section = cfg.DuplicateSec
			}
		}
		shadow.Pair(g.Addr, dup.Addr)
	}
}

func shouldDuplicateGlobal(g *ir.GlobalVariable, idx *annotation.Index) bool {
	if idx.ToDuplicate(g.Name) {
		return true
	}
	if strings.HasSuffix(g.Name, dupSuffix) {
		return false
	}
	if idx.Excluded(g.Name) {
		return false
	}
	if g.Constant {
		return false
	}
	switch g.Type.(type) {
	case *ir.StructType, *ir.ArrayType, *ir.PointerType:
		return false
	}
	if g.Section == llvmMetadataSection {
		return false
	}
	return true
}
