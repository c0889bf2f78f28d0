// Package oracle decides, for a given function, whether it is eligible
// for transformation, and maintains the archive of pristine originals
// that makes re-running a pass over its own output a no-op.
package oracle

import (
	"aspis/internal/annotation"
	"aspis/internal/ir"
)

// reservedNames are never eligible regardless of annotation: fault
// handlers and profiling helpers are infrastructure the passes emit,
// not code to be hardened.
var reservedNames = map[string]bool{
	"DataCorruption_Handler": true,
	"SigMismatch_Handler":    true,
	"aspis.syncpt":           true,
	"aspis.cfcpt":            true,
	"aspis.datacheck.begin":  true,
	"aspis.datacheck.end":    true,
}

// Oracle decides eligibility and owns the archive of original-function
// clones snapshotted before EDDI begins transforming the module.
type Oracle struct {
	idx     *annotation.Index
	archive map[string]*ir.Function
}

// New builds an Oracle backed by the given annotation index.
func New(idx *annotation.Index) *Oracle {
	return &Oracle{idx: idx, archive: map[string]*ir.Function{}}
}

// ShouldCompile reports whether f is eligible for transformation:
// non-empty, not annotated exclude, not a reserved infrastructure name,
// and not already present in the original-functions archive.
func (o *Oracle) ShouldCompile(f *ir.Function) bool {
	if f == nil || len(f.Blocks) == 0 {
		return false
	}
	if reservedNames[f.Name] {
		return false
	}
	if o.idx != nil && o.idx.Excluded(f.Name) {
		return false
	}
	if _, archived := o.archive[f.Name]; archived {
		return false
	}
	return true
}

// Archive records name as an original-function archive member, produced
// from a pristine clone taken before any per-instruction duplication. A
// later ShouldCompile(f) for a function of the same name (e.g. re-running
// the pass over its own output) returns false once it is archived.
func (o *Oracle) Archive(name string, original *ir.Function) {
	o.archive[name] = original
}

// Archived returns the archived original for name, and whether one
// exists.
func (o *Oracle) Archived(name string) (*ir.Function, bool) {
	f, ok := o.archive[name]
	return f, ok
}

// EligibleFunctions filters m's functions down to those ShouldCompile
// accepts, preserving module iteration order.
func (o *Oracle) EligibleFunctions(m *ir.Module) []*ir.Function {
	var out []*ir.Function
	for _, f := range m.Functions() {
		if o.ShouldCompile(f) {
			out = append(out, f)
		}
	}
	return out
}
