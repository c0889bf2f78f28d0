package cfc

import (
	"fmt"

	"aspis/internal/annotation"
	"aspis/internal/diag"
	"aspis/internal/errorblock"
	"aspis/internal/ir"
	"aspis/internal/sig"
)

// hardenRacfed applies the RACFED discipline (§4.6.2) to f: a module-wide
// signature cell, intra-block additive updates after every non-PHI
// instruction once a block holds at least three of them, and an additive
// per-edge adjustment computed from each block's accumulated sum.
func hardenRacfed(f *ir.Function, m *ir.Module, idx *annotation.Index, gc *globalCell, ebf *errorblock.Factory) {
	pads := landingPads(f)
	entry := f.Entry()
	blocks := append([]*ir.BasicBlock(nil), f.Blocks...)

	initEntry(f, entry, gc, m.Name, nil)

	for b := range pads {
		overwriteLandingPad(f, b, gc, m.Name)
	}

	sums := map[*ir.BasicBlock]uint32{}
	for _, b := range blocks {
		sums[b] = racfedBlockSum(f, b, gc, m.Name)
	}
	for _, b := range blocks {
		racfedProtectEdges(f, b, gc, m.Name, sums[b], ebf)
	}
	// Verify blocks go in last, so every edge delta above was computed
	// against the label of the block its Verify block checks.
	for _, b := range blocks {
		if b == entry || pads[b] {
			continue
		}
		verify := insertVerifyBefore(f, b)
		buildVerifyCheck(f, verify, gc, m.Name, b, ebf)
	}
}

// racfedBlockSum inserts, after every one of b's non-PHI instructions once
// b holds at least three of them, a real computed addition of that
// instruction's constant into the runtime cell, and returns Sigma(b): the
// compile-time sum of those constants, which the edge-adjustment pass
// needs to fold into its delta (§4.6.2).
func racfedBlockSum(f *ir.Function, b *ir.BasicBlock, cell RuntimeCell, moduleName string) uint32 {
	originals := originalInstructions(b)
	if len(originals) < 3 {
		return 0
	}

	blockSig := sig.BlockSignature(moduleName, f.Name, b.Label)
	var sum uint32
	for i, inst := range originals {
		k := uint32(sig.InstructionConstant(blockSig, i))
		sum += k

		res := f.NewValue("", ir.I32())
		c := &ir.ConstInstruction{Res: res, Data: int64(k)}
		b.InsertAfter(inst, c)

		ldRes := f.NewValue("", ir.I32())
		ld := &ir.LoadInstruction{Res: ldRes, Address: cell.Addr()}
		b.InsertAfter(c, ld)
		cell.Addr().AddUse(ld, b)

		addRes := f.NewValue("", ir.I32())
		add := &ir.BinaryInstruction{Res: addRes, Op: ir.OpAdd, Left: ldRes, Right: res}
		b.InsertAfter(ld, add)
		ldRes.AddUse(add, b)
		res.AddUse(add, b)

		st := &ir.StoreInstruction{Address: cell.Addr(), Val: addRes}
		b.InsertAfter(add, st)
		addRes.AddUse(st, b)
		cell.Addr().AddUse(st, b)
	}
	return sum
}

// racfedEdgeDelta computes RACFED's additive per-edge adjustment
// delta = (CT(dst)+SR(dst)) - (CT(src)+Sigma(src)).
func racfedEdgeDelta(moduleName, fname, srcLabel, dstLabel string, srcSum uint32) uint32 {
	ctSrc := sig.BlockSignature(moduleName, fname, srcLabel)
	ctDst := sig.BlockSignature(moduleName, fname, dstLabel)
	srDst := sig.AdjustSignature(moduleName, fname, dstLabel)
	return ctDst + srDst - ctSrc - srcSum
}

func racfedApplyDelta(f *ir.Function, b *ir.BasicBlock, cell RuntimeCell, delta uint32) {
	racfedApplyDeltaValue(f, b, cell, constU32(f, b, delta))
}

func racfedApplyDeltaValue(f *ir.Function, b *ir.BasicBlock, cell RuntimeCell, delta *ir.Value) {
	v0 := cellLoad(f, b, cell)
	v1 := emitBinary(f, b, ir.OpAdd, ir.I32(), v0, delta)
	cellStoreAppend(f, b, cell, v1)
}

// racfedProtectEdges mirrors protectEdges but additive, using b's
// accumulated Sigma(b) in every delta it folds.
func racfedProtectEdges(f *ir.Function, b *ir.BasicBlock, cell RuntimeCell, moduleName string, sum uint32, ebf *errorblock.Factory) {
	switch t := b.Term.(type) {
	case *ir.JumpTerminator:
		racfedApplyDelta(f, b, cell, racfedEdgeDelta(moduleName, f.Name, b.Label, t.Target.Label, sum))
	case *ir.BranchTerminator:
		dT := racfedEdgeDelta(moduleName, f.Name, b.Label, t.TrueBlock.Label, sum)
		dF := racfedEdgeDelta(moduleName, f.Name, b.Label, t.FalseBlock.Label, sum)
		racfedApplyDeltaValue(f, b, cell, selectDelta(f, b, t.Condition, dT, dF))
	case *ir.InvokeTerminator:
		racfedApplyDelta(f, b, cell, racfedEdgeDelta(moduleName, f.Name, b.Label, t.Normal.Label, sum))
	case *ir.SwitchTerminator:
		if len(t.Cases) == 1 {
			dCase := racfedEdgeDelta(moduleName, f.Name, b.Label, t.Cases[0].Dest.Label, sum)
			dDefault := racfedEdgeDelta(moduleName, f.Name, b.Label, t.Default.Label, sum)
			cond := emitCompareEQ(f, b, t.Condition, t.Cases[0].Value)
			racfedApplyDeltaValue(f, b, cell, selectDelta(f, b, cond, dCase, dDefault))
		} else {
			racfedApplyDelta(f, b, cell, racfedEdgeDelta(moduleName, f.Name, b.Label, t.Default.Label, sum))
		}
	case *ir.ReturnTerminator:
		racfedProtectReturn(f, b, cell, moduleName, sum, t, ebf)
	}
}

// racfedProtectReturn implements §4.6.2's return check: adjust the cell by
// (CT(b)+Sigma(b)) - R, where R is a random value drawn by
// sig.ReturnSignature, then compare the result to R itself.
func racfedProtectReturn(f *ir.Function, b *ir.BasicBlock, cell RuntimeCell, moduleName string, sum uint32, ret *ir.ReturnTerminator, ebf *errorblock.Factory) {
	succ := b.SplitBefore(nil, fmt.Sprintf("%s.retcheck.%d", b.Label, f.NextValueID()))
	guard := f.AddBlock(fmt.Sprintf("%s.retguard.%d", b.Label, f.NextValueID()))

	ct := sig.BlockSignature(moduleName, f.Name, b.Label)
	r := sig.ReturnSignature(moduleName, f.Name, ct)
	delta := uint32(r) - ct - sum

	v0 := cellLoad(f, guard, cell)
	deltaConst := constU32(f, guard, delta)
	v1 := emitBinary(f, guard, ir.OpAdd, ir.I32(), v0, deltaConst)
	cellStoreAppend(f, guard, cell, v1)

	rConst := constU32(f, guard, uint32(r))
	cmp := emitCompareEQ(f, guard, v1, rConst)

	loc := diag.FindDebugLocation(ret)
	errBlock := ebf.NewSite(f, errorblock.SigMismatchHandler, loc)
	term := &ir.BranchTerminator{Condition: cmp, TrueBlock: succ, FalseBlock: errBlock}
	guard.SetTerminator(term)
	cmp.AddUse(term, guard)

	b.SetTerminator(&ir.JumpTerminator{Target: guard})
	succ.ReplacePredecessor(b, guard)
}
