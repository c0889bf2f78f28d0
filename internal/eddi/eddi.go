// Package eddi implements error detection by duplicated instructions: it
// duplicates a module's data and control-independent computation and
// inserts runtime consistency checks at configurable synchronization
// points, so a transient corruption of either copy is caught before it
// escapes into observable program behavior (SPEC_FULL §4.4).
package eddi

import (
	"github.com/golang/glog"

	"aspis/internal/annotation"
	"aspis/internal/config"
	"aspis/internal/errorblock"
	"aspis/internal/ir"
	"aspis/internal/oracle"
)

// originalSuffix names the pristine, unduplicated clone of each target
// function the archive snapshot retains (§4.2).
const originalSuffix = "_original"

// Result summarizes one run of the duplicator over a module, for callers
// that want to report or test on what was touched without re-walking the
// module themselves.
type Result struct {
	Shadow      *ShadowMap
	Targets     []*ir.Function
	FuncShadows map[string]*FuncShadow
}

// Run executes the full duplication pipeline against m: snapshot eligible
// functions into the compile-set archive, duplicate globals, duplicate
// function signatures, then walk each target duplicating instructions and
// inserting consistency checks in its F_dup body.
func Run(m *ir.Module, o *oracle.Oracle, idx *annotation.Index, cfg *config.Config) (*Result, error) {
	targets := o.EligibleFunctions(m)
	glog.V(1).Infof("eddi: %d eligible function(s)", len(targets))

	archiveOriginals(m, o, targets)

	shadow := NewShadowMap()
	DuplicateGlobals(m, idx, cfg, shadow)
	glog.V(1).Infof("eddi: duplicated %d global(s)", shadow.Len())

	funcShadows := DuplicateSignatures(m, cfg, shadow, targets)

	mz := errorblock.New(m, idx)
	ebf := errorblock.NewFactory(mz)

	for _, f := range targets {
		fs := funcShadows[f.Name]
		DuplicateInstructions(fs.Dup, idx, cfg, shadow, funcShadows)
		InsertChecks(fs.Dup, cfg, shadow, ebf)
		glog.V(2).Infof("eddi: hardened %s", fs.Dup.Name)
	}

	return &Result{Shadow: shadow, Targets: targets, FuncShadows: funcShadows}, nil
}

// archiveOriginals takes the compile-set snapshot §4.2 requires at the
// start of EDDI: each target is cloned to its own pristine "_original"
// copy, added to the module as dead reference material, and the target's
// own name is archived so a later re-run of the pipeline over its own
// output treats it as already compiled.
func archiveOriginals(m *ir.Module, o *oracle.Oracle, targets []*ir.Function) {
	for _, f := range targets {
		archived, _ := ir.CloneFunction(f, f.Name+originalSuffix)
		m.AddFunction(archived)
		o.Archive(f.Name, archived)
	}
}
