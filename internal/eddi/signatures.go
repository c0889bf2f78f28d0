package eddi

import (
	"aspis/internal/config"
	"aspis/internal/ir"
)

// FuncShadow records a function's duplicated-signature clone (F_dup) and
// the original-parameter -> duplicate-parameter pairing established
// before per-instruction duplication begins, as 4.4.2 requires: an
// argument's shadow must already be known when the in-order walk starts,
// since the walk only duplicates operands on demand.
type FuncShadow struct {
	Dup         *ir.Function
	ParamShadow map[*ir.Value]*ir.Value
}

// DuplicateSignatures builds F_dup for every target function: the body
// cloned verbatim (CloneFunction binds each original parameter to its
// first-appearance slot), with one duplicate parameter appended per
// original. Under the sequential layout (default) the duplicates trail;
// under alternating they are interleaved with their originals.
func DuplicateSignatures(m *ir.Module, cfg *config.Config, shadow *ShadowMap, targets []*ir.Function) map[string]*FuncShadow {
	out := map[string]*FuncShadow{}
	for _, f := range targets {
		clone, _ := ir.CloneFunction(f, f.Name+dupSuffix)
		n := len(f.Params)
		paramShadow := map[*ir.Value]*ir.Value{}
		for i := 0; i < n; i++ {
			orig := clone.Params[i]
			dp := clone.AddParam(orig.Name+".dup", orig.Type, append([]ir.ParamAttr{}, orig.Attrs...)...)
			shadow.Pair(orig.Value, dp.Value)
			paramShadow[orig.Value] = dp.Value
		}
		if cfg.AlternateMemmap {
			reorderParamsAlternating(clone, n)
		}
		m.AddFunction(clone)
		out[f.Name] = &FuncShadow{Dup: clone, ParamShadow: paramShadow}
	}
	return out
}

// reorderParamsAlternating rewrites clone.Params in place from the
// sequential [p1..pn, p1'..pn'] layout CloneFunction+AddParam produce
// into the alternating [p1, p1', p2, p2', ...] layout. Nothing in the ir
// package keys correctness off parameter slice position (only the
// printer and call-argument assembly do, and both are driven from this
// same slice), so this is a safe post-hoc reorder rather than a second
// clone routine.
func reorderParamsAlternating(clone *ir.Function, n int) {
	reordered := make([]*ir.Parameter, 0, 2*n)
	for i := 0; i < n; i++ {
		reordered = append(reordered, clone.Params[i], clone.Params[n+i])
	}
	clone.Params = reordered
}
