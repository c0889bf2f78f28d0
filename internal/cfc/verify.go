package cfc

import (
	"fmt"

	"aspis/internal/errorblock"
	"aspis/internal/ir"
	"aspis/internal/sig"
)

// retarget rewrites every successor edge of pred's terminator that points
// at from so it points at to instead, preserving every other field of the
// terminator (condition, call args, switch cases) by cloning it and
// editing only the matching successor slots.
func retarget(f *ir.Function, pred *ir.BasicBlock, from, to *ir.BasicBlock) {
	clone := pred.Term.Clone(f.NextValueID()).(ir.Terminator)
	for idx, s := range clone.Successors() {
		if s == from {
			clone.SetSuccessor(idx, to)
		}
	}
	pred.SetTerminator(clone)
}

// insertVerifyBefore prefixes b with a synthesized Verify_B block: every
// predecessor b had is redirected to target Verify_B instead of b, and
// any PHI nodes originally in b are lifted into Verify_B, since Verify_B
// is now the block that actually receives those control-flow edges
// (§4.6). Afterward b's only predecessor is Verify_B, and Verify_B's
// predecessors are exactly b's original predecessors -- the invariant
// §8's testable property 4 requires of every synthesized Verify block.
func insertVerifyBefore(f *ir.Function, b *ir.BasicBlock) *ir.BasicBlock {
	verify := f.AddBlock(fmt.Sprintf("Verify_%s", b.Label))
	for _, p := range b.Phis() {
		b.Remove(p)
		verify.Append(p)
	}
	for _, pred := range append([]*ir.BasicBlock(nil), b.Predecessors...) {
		retarget(f, pred, b, verify)
	}
	verify.SetTerminator(&ir.JumpTerminator{Target: b})
	return verify
}

// buildVerifyCheck emits the shared protocol every Verify block runs,
// RASM and RACFED alike: load the runtime cell, subtract b's adjustment
// constant SR(b), write the result back, and compare it against b's
// compile-time signature CT(b) -- branching to b on match or to a
// freshly materialized error block on mismatch.
func buildVerifyCheck(f *ir.Function, verify *ir.BasicBlock, cell RuntimeCell, moduleName string, b *ir.BasicBlock, ebf *errorblock.Factory) {
	ct := sig.BlockSignature(moduleName, f.Name, b.Label)
	sr := sig.AdjustSignature(moduleName, f.Name, b.Label)

	v0 := cellLoad(f, verify, cell)
	srConst := constU32(f, verify, sr)
	v1 := emitBinary(f, verify, ir.OpSub, ir.I32(), v0, srConst)
	cellStoreAppend(f, verify, cell, v1)

	ctConst := constU32(f, verify, ct)
	cmp := emitCompareEQ(f, verify, v1, ctConst)

	errBlock := ebf.NewSite(f, errorblock.SigMismatchHandler, nil)
	term := &ir.BranchTerminator{Condition: cmp, TrueBlock: b, FalseBlock: errBlock}
	verify.SetTerminator(term)
	cmp.AddUse(term, verify)
}

// overwriteLandingPad implements the §4.6.3 tie-break: a landing pad's
// entry instruction is fixed by the unwinder and cannot be preceded by a
// Verify block, so the protector instead overwrites the runtime cell with
// the landing pad's own compile-time signature in place, at the head of
// the block.
func overwriteLandingPad(f *ir.Function, b *ir.BasicBlock, cell RuntimeCell, moduleName string) {
	ct := sig.BlockSignature(moduleName, f.Name, b.Label)
	res := f.NewValue("", ir.I32())
	c := &ir.ConstInstruction{Res: res, Data: int64(ct)}
	b.Prepend(c)
	st := &ir.StoreInstruction{Address: cell.Addr(), Val: res}
	b.InsertAfter(c, st)
	res.AddUse(st, b)
	cell.Addr().AddUse(st, b)
}
