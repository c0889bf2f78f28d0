package cfc

import "aspis/internal/ir"

// constU32 appends a constant materializing the given 32-bit value.
// Signature arithmetic throughout this package is unsigned mod 2^32
// (§4.6); values sig derives as uint64 (InstructionConstant,
// ReturnSignature) are truncated to their low 32 bits before they reach
// the runtime cell.
func constU32(f *ir.Function, b *ir.BasicBlock, v uint32) *ir.Value {
	res := f.NewValue("", ir.I32())
	b.Append(&ir.ConstInstruction{Res: res, Data: int64(v)})
	return res
}

func emitBinary(f *ir.Function, b *ir.BasicBlock, op ir.BinOp, t ir.Type, left, right *ir.Value) *ir.Value {
	res := f.NewValue("", t)
	bi := &ir.BinaryInstruction{Res: res, Op: op, Left: left, Right: right}
	b.Append(bi)
	left.AddUse(bi, b)
	right.AddUse(bi, b)
	return res
}

func emitSelect(f *ir.Function, b *ir.BasicBlock, cond, tv, fv *ir.Value) *ir.Value {
	res := f.NewValue("", tv.Type)
	s := &ir.SelectInstruction{Res: res, Condition: cond, TrueVal: tv, FalseVal: fv}
	b.Append(s)
	cond.AddUse(s, b)
	tv.AddUse(s, b)
	fv.AddUse(s, b)
	return res
}

func emitCompareEQ(f *ir.Function, b *ir.BasicBlock, left, right *ir.Value) *ir.Value {
	res := f.NewValue("", ir.I1())
	c := &ir.CompareInstruction{Res: res, Pred: ir.CmpEQ, Left: left, Right: right}
	b.Append(c)
	left.AddUse(c, b)
	right.AddUse(c, b)
	return res
}

// selectDelta materializes the two compile-time edge-adjustment constants
// of a two-successor terminator and chooses between them with the
// terminator's own condition, exactly as §4.6.1 specifies for RASM's
// conditional-branch adjustment (and reused by RACFED's equivalent).
func selectDelta(f *ir.Function, b *ir.BasicBlock, cond *ir.Value, dTrue, dFalse uint32) *ir.Value {
	ct := constU32(f, b, dTrue)
	cf := constU32(f, b, dFalse)
	return emitSelect(f, b, cond, ct, cf)
}

func cellLoad(f *ir.Function, b *ir.BasicBlock, cell RuntimeCell) *ir.Value {
	res := f.NewValue("", ir.I32())
	ld := &ir.LoadInstruction{Res: res, Address: cell.Addr()}
	b.Append(ld)
	cell.Addr().AddUse(ld, b)
	return res
}

func cellStoreAppend(f *ir.Function, b *ir.BasicBlock, cell RuntimeCell, v *ir.Value) {
	st := &ir.StoreInstruction{Address: cell.Addr(), Val: v}
	b.Append(st)
	cell.Addr().AddUse(st, b)
	v.AddUse(st, b)
}

// originalInstructions returns b's non-PHI instructions, the population
// RACFED's intra-block update counts over (§4.6.2).
func originalInstructions(b *ir.BasicBlock) []ir.Instruction {
	var out []ir.Instruction
	for _, inst := range b.Instructions {
		if _, ok := inst.(*ir.PhiInstruction); ok {
			continue
		}
		out = append(out, inst)
	}
	return out
}
