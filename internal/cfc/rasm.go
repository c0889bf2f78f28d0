package cfc

import (
	"fmt"

	"aspis/internal/annotation"
	"aspis/internal/diag"
	"aspis/internal/errorblock"
	"aspis/internal/ir"
	"aspis/internal/sig"
)

// hardenRasm applies the RASM discipline (§4.6.1) to f: a per-function
// stack signature cell, entry initialization, a Verify block prefixing
// every ordinary block, and a per-outgoing-edge subtraction adjustment
// computed at the source block.
func hardenRasm(f *ir.Function, m *ir.Module, idx *annotation.Index, ebf *errorblock.Factory) {
	cell := newStackCell(f)
	pads := landingPads(f)
	entry := f.Entry()
	blocks := append([]*ir.BasicBlock(nil), f.Blocks...)

	initEntry(f, entry, cell, m.Name, cell.alloc)

	for b := range pads {
		overwriteLandingPad(f, b, cell, m.Name)
	}
	for _, b := range blocks {
		protectEdges(f, b, cell, m.Name, ebf)
	}
	// Verify blocks go in last, so every edge delta above was computed
	// against the label of the block its Verify block checks.
	for _, b := range blocks {
		if b == entry || pads[b] {
			continue
		}
		verify := insertVerifyBefore(f, b)
		buildVerifyCheck(f, verify, cell, m.Name, b, ebf)
	}

	if _, interProcedural := idx.RunAdjSigGlobal(); interProcedural {
		protectCalls(f, m, idx, cell)
	}
}

// edgeDelta computes RASM's per-outgoing-edge adjustment constant
// δ = CT(src) − (CT(dst) + SR(dst)).
func edgeDelta(moduleName, fname, srcLabel, dstLabel string) uint32 {
	ctSrc := sig.BlockSignature(moduleName, fname, srcLabel)
	ctDst := sig.BlockSignature(moduleName, fname, dstLabel)
	srDst := sig.AdjustSignature(moduleName, fname, dstLabel)
	return ctSrc - ctDst - srDst
}

func applyDelta(f *ir.Function, b *ir.BasicBlock, cell RuntimeCell, delta uint32) {
	applyDeltaValue(f, b, cell, constU32(f, b, delta))
}

func applyDeltaValue(f *ir.Function, b *ir.BasicBlock, cell RuntimeCell, delta *ir.Value) {
	v0 := cellLoad(f, b, cell)
	v1 := emitBinary(f, b, ir.OpSub, ir.I32(), v0, delta)
	cellStoreAppend(f, b, cell, v1)
}

// protectEdges inserts, right before b's terminator, the signature update
// for whichever outgoing edge actually executes. A landing-pad
// destination receives a delta like any other: it is functionally inert
// there since the pad overwrites the cell unconditionally the moment
// control reaches it.
func protectEdges(f *ir.Function, b *ir.BasicBlock, cell RuntimeCell, moduleName string, ebf *errorblock.Factory) {
	switch t := b.Term.(type) {
	case *ir.JumpTerminator:
		applyDelta(f, b, cell, edgeDelta(moduleName, f.Name, b.Label, t.Target.Label))
	case *ir.BranchTerminator:
		dT := edgeDelta(moduleName, f.Name, b.Label, t.TrueBlock.Label)
		dF := edgeDelta(moduleName, f.Name, b.Label, t.FalseBlock.Label)
		applyDeltaValue(f, b, cell, selectDelta(f, b, t.Condition, dT, dF))
	case *ir.InvokeTerminator:
		// §4.6.3: invoke is a one-successor terminator for adjustment
		// purposes; the unwind edge carries no signature guarantee.
		applyDelta(f, b, cell, edgeDelta(moduleName, f.Name, b.Label, t.Normal.Label))
	case *ir.SwitchTerminator:
		if len(t.Cases) == 1 {
			dCase := edgeDelta(moduleName, f.Name, b.Label, t.Cases[0].Dest.Label)
			dDefault := edgeDelta(moduleName, f.Name, b.Label, t.Default.Label)
			cond := emitCompareEQ(f, b, t.Condition, t.Cases[0].Value)
			applyDeltaValue(f, b, cell, selectDelta(f, b, cond, dCase, dDefault))
		} else {
			applyDelta(f, b, cell, edgeDelta(moduleName, f.Name, b.Label, t.Default.Label))
		}
	case *ir.ReturnTerminator:
		protectReturn(f, b, cell, moduleName, t, ebf)
	}
}

// protectReturn inserts RASM's return-signature check (§4.6.1): the
// runtime cell must still read CT(b) at the point of return, since RASM
// (unlike RACFED) never perturbs it between Verify_b and the ret.
func protectReturn(f *ir.Function, b *ir.BasicBlock, cell RuntimeCell, moduleName string, ret *ir.ReturnTerminator, ebf *errorblock.Factory) {
	succ := b.SplitBefore(nil, fmt.Sprintf("%s.retcheck.%d", b.Label, f.NextValueID()))
	guard := f.AddBlock(fmt.Sprintf("%s.retguard.%d", b.Label, f.NextValueID()))

	ct := sig.BlockSignature(moduleName, f.Name, b.Label)
	v0 := cellLoad(f, guard, cell)
	ctConst := constU32(f, guard, ct)
	cmp := emitCompareEQ(f, guard, v0, ctConst)

	loc := diag.FindDebugLocation(ret)
	errBlock := ebf.NewSite(f, errorblock.SigMismatchHandler, loc)
	term := &ir.BranchTerminator{Condition: cmp, TrueBlock: succ, FalseBlock: errBlock}
	guard.SetTerminator(term)
	cmp.AddUse(term, guard)

	b.SetTerminator(&ir.JumpTerminator{Target: guard})
	succ.ReplacePredecessor(b, guard)
}

// protectCalls implements the inter-procedural extension of §4.6.1: when
// the front-end has annotated a run_adj_sig global, the caller's local
// signature cell is saved into it immediately before every call and
// restored immediately after, so a hardened callee sharing the same
// global cell convention cannot perturb the caller's own signature
// sequence across the call boundary.
func protectCalls(f *ir.Function, m *ir.Module, idx *annotation.Index, cell RuntimeCell) {
	name, _ := idx.RunAdjSigGlobal()
	g, ok := m.GlobalByName(name)
	if !ok {
		g = ir.NewGlobalVariable(name, ir.I32())
		m.AddGlobal(g)
	}

	for _, b := range append([]*ir.BasicBlock(nil), f.Blocks...) {
		for _, inst := range append([]ir.Instruction(nil), b.Instructions...) {
			call, ok := inst.(*ir.CallInstruction)
			if !ok {
				continue
			}

			savedRes := f.NewValue("", ir.I32())
			ldSaved := &ir.LoadInstruction{Res: savedRes, Address: cell.Addr()}
			b.InsertBefore(call, ldSaved)
			cell.Addr().AddUse(ldSaved, b)

			stSaved := &ir.StoreInstruction{Address: g.Addr, Val: savedRes}
			b.InsertBefore(call, stSaved)
			savedRes.AddUse(stSaved, b)
			g.Addr.AddUse(stSaved, b)

			restoredRes := f.NewValue("", ir.I32())
			ldRestored := &ir.LoadInstruction{Res: restoredRes, Address: g.Addr}
			b.InsertAfter(call, ldRestored)
			g.Addr.AddUse(ldRestored, b)

			stRestored := &ir.StoreInstruction{Address: cell.Addr(), Val: restoredRes}
			b.InsertAfter(ldRestored, stRestored)
			restoredRes.AddUse(stRestored, b)
			cell.Addr().AddUse(stRestored, b)
		}
	}
}
