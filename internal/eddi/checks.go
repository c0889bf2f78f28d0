package eddi

import (
	"fmt"

	"aspis/internal/config"
	"aspis/internal/diag"
	"aspis/internal/errorblock"
	"aspis/internal/ir"
)

// InsertChecks walks every block of f, inserting a consistency check
// immediately before each instruction whose class is an enabled
// checkpoint (4.4.4): store, call, branch, return. Each insertion splits
// the block, interposes a verification block comparing the checked
// instruction's shadowed operands, and branches to the original
// continuation on match or to a freshly materialized error block on
// mismatch.
func InsertChecks(f *ir.Function, cfg *config.Config, shadow *ShadowMap, ebf *errorblock.Factory) {
	for _, b := range append([]*ir.BasicBlock(nil), f.Blocks...) {
		insertChecksInBlock(f, b, cfg, shadow, ebf)
	}
}

func insertChecksInBlock(f *ir.Function, b *ir.BasicBlock, cfg *config.Config, shadow *ShadowMap, ebf *errorblock.Factory) {
	checked := map[ir.Instruction]bool{}
	cur := b
	for cur != nil {
		cur = insertNextCheckpoint(f, cur, cfg, shadow, ebf, checked)
	}
}

// insertNextCheckpoint finds the first not-yet-checked checkpoint site in
// cur, in program order (instructions, then the terminator), and splits
// a verification point before it. It returns the successor block holding
// everything from the checked site onward so the caller can resume
// scanning past it, or nil once cur has no further checkpoint sites.
func insertNextCheckpoint(f *ir.Function, cur *ir.BasicBlock, cfg *config.Config, shadow *ShadowMap, ebf *errorblock.Factory, checked map[ir.Instruction]bool) *ir.BasicBlock {
	for _, inst := range cur.Instructions {
		if checked[inst] {
			continue
		}
		switch i := inst.(type) {
		case *ir.StoreInstruction:
			if cfg.HasCheckPoint(config.CheckStore) {
				checked[inst] = true
				return insertCheckBefore(f, cur, inst, i.Operands(), shadow, ebf)
			}
		case *ir.CallInstruction:
			if cfg.HasCheckPoint(config.CheckCall) {
				checked[inst] = true
				return insertCheckBefore(f, cur, inst, i.Operands(), shadow, ebf)
			}
		}
	}
	if cur.Term == nil || checked[cur.Term] {
		return nil
	}
	switch t := cur.Term.(type) {
	case *ir.BranchTerminator:
		if cfg.HasCheckPoint(config.CheckBranch) {
			checked[cur.Term] = true
			return insertCheckBefore(f, cur, nil, t.Operands(), shadow, ebf)
		}
	case *ir.ReturnTerminator:
		if cfg.HasCheckPoint(config.CheckReturn) {
			checked[cur.Term] = true
			return insertCheckBefore(f, cur, nil, t.Operands(), shadow, ebf)
		}
	}
	return nil
}

// insertCheckBefore implements 4.4.4 steps 1-4 for one checkpoint site:
// split pred so the checked site starts a new successor, interpose a
// Verify block comparing the site's shadowed operands, and branch to the
// successor on match or the function's error block on mismatch.
func insertCheckBefore(f *ir.Function, pred *ir.BasicBlock, target ir.Instruction, operands []*ir.Value, shadow *ShadowMap, ebf *errorblock.Factory) *ir.BasicBlock {
	succ := pred.SplitBefore(target, fmt.Sprintf("%s.check.%d", pred.Label, f.NextValueID()))
	verify := f.AddBlock(fmt.Sprintf("%s.verify.%d", pred.Label, f.NextValueID()))

	conj := buildComparisons(f, verify, operands, shadow)

	var loc *ir.DebugLocation
	if target != nil {
		loc = diag.FindDebugLocation(target)
	}
	errBlock := ebf.NewSite(f, errorblock.DataCorruptionHandler, loc)

	if conj == nil {
		verify.SetTerminator(&ir.JumpTerminator{Target: succ})
	} else {
		verify.SetTerminator(&ir.BranchTerminator{Condition: conj, TrueBlock: succ, FalseBlock: errBlock})
	}
	pred.SetTerminator(&ir.JumpTerminator{Target: verify})
	succ.ReplacePredecessor(pred, verify)

	return succ
}

// buildComparisons emits, into verify, one equality comparison per
// checked operand that carries a shadow, AND-reducing the results into a
// single i1. Returns nil if no operand had a shadow (nothing to check).
func buildComparisons(f *ir.Function, verify *ir.BasicBlock, operands []*ir.Value, shadow *ShadowMap) *ir.Value {
	var conj *ir.Value
	for _, v := range operands {
		if v == nil {
			continue
		}
		sv, ok := shadow.Shadow(v)
		if !ok {
			continue
		}
		cmp := compareOperand(f, verify, v, sv, shadow)
		if cmp == nil {
			continue
		}
		conj = and(f, verify, conj, cmp)
	}
	return conj
}

// compareOperand implements the per-operand comparison rule of 4.4.4: a
// pointer not feeding a reachable store carries no interesting value and
// is skipped; a pointer to an array of scalars compares elementwise; a
// pointer feeding a store compares the stored value; anything else is
// compared directly.
func compareOperand(f *ir.Function, verify *ir.BasicBlock, v, sv *ir.Value, shadow *ShadowMap) *ir.Value {
	ptrType, isPtr := v.Type.(*ir.PointerType)
	if !isPtr {
		return emitCompare(f, verify, v, sv)
	}
	if arrType, ok := ptrType.ElemType.(*ir.ArrayType); ok && !isAggregate(arrType.ElemType) {
		return compareArrayElements(f, verify, v, sv, arrType, shadow)
	}
	storedOrig := terminalStoredValue(v)
	if storedOrig == nil {
		return nil
	}
	storedShadow := terminalStoredValue(sv)
	if storedShadow == nil {
		return nil
	}
	return emitCompare(f, verify, storedOrig, storedShadow)
}

func isAggregate(t ir.Type) bool {
	switch t.(type) {
	case *ir.ArrayType, *ir.StructType:
		return true
	}
	return false
}

// terminalStoredValue follows ptr to the value most recently stored
// through it among its recorded uses, per the store-chain rule of 4.4.4.
func terminalStoredValue(ptr *ir.Value) *ir.Value {
	var last *ir.Value
	for _, u := range ptr.Uses {
		if st, ok := u.User.(*ir.StoreInstruction); ok && st.Address == ptr {
			last = st.Val
		}
	}
	return last
}

// compareArrayElements GEPs and loads each element of an array pointer
// pair and compares them, registering every loaded pair in the shadow
// map as 4.4.4 requires, then AND-reduces the per-element comparisons.
func compareArrayElements(f *ir.Function, verify *ir.BasicBlock, v, sv *ir.Value, arrType *ir.ArrayType, shadow *ShadowMap) *ir.Value {
	var conj *ir.Value
	for idx := 0; idx < arrType.Len; idx++ {
		zero := constIndex(f, verify, 0)
		at := constIndex(f, verify, idx)

		elemPtr := ir.PtrTo(arrType.ElemType)
		gOrig := &ir.GEPInstruction{Res: f.NewValue("", elemPtr), Base: v, Indices: []*ir.Value{zero, at}}
		verify.Append(gOrig)
		v.AddUse(gOrig, verify)
		zero.AddUse(gOrig, verify)
		at.AddUse(gOrig, verify)

		gShadow := &ir.GEPInstruction{Res: f.NewValue("", elemPtr), Base: sv, Indices: []*ir.Value{zero, at}}
		verify.Append(gShadow)
		sv.AddUse(gShadow, verify)
		zero.AddUse(gShadow, verify)
		at.AddUse(gShadow, verify)

		lOrig := &ir.LoadInstruction{Res: f.NewValue("", arrType.ElemType), Address: gOrig.Res}
		verify.Append(lOrig)
		gOrig.Res.AddUse(lOrig, verify)

		lShadow := &ir.LoadInstruction{Res: f.NewValue("", arrType.ElemType), Address: gShadow.Res}
		verify.Append(lShadow)
		gShadow.Res.AddUse(lShadow, verify)

		shadow.Pair(lOrig.Res, lShadow.Res)
		conj = and(f, verify, conj, emitCompare(f, verify, lOrig.Res, lShadow.Res))
	}
	return conj
}

func constIndex(f *ir.Function, verify *ir.BasicBlock, n int) *ir.Value {
	res := f.NewValue("", ir.I32())
	c := &ir.ConstInstruction{Res: res, Data: int64(n)}
	verify.Append(c)
	return res
}

// emitCompare appends an equality comparison of a and b to verify:
// integer-equal for integer/pointer operands, unordered-equal for
// floating point, matching the canonical comparator choice of 4.4.4.
func emitCompare(f *ir.Function, verify *ir.BasicBlock, a, b *ir.Value) *ir.Value {
	pred := ir.CmpEQ
	isFloat := false
	if _, ok := a.Type.(*ir.FloatType); ok {
		pred = ir.CmpUEQ
		isFloat = true
	}
	res := f.NewValue("", ir.I1())
	cmp := &ir.CompareInstruction{Res: res, Pred: pred, Float: isFloat, Left: a, Right: b}
	verify.Append(cmp)
	a.AddUse(cmp, verify)
	b.AddUse(cmp, verify)
	return res
}

// and AND-reduces acc and v, returning v unchanged if acc is the
// identity (first comparison of the set).
func and(f *ir.Function, verify *ir.BasicBlock, acc, v *ir.Value) *ir.Value {
	if acc == nil {
		return v
	}
	res := f.NewValue("", ir.I1())
	bi := &ir.BinaryInstruction{Res: res, Op: ir.OpAnd, Left: acc, Right: v}
	verify.Append(bi)
	acc.AddUse(bi, verify)
	v.AddUse(bi, verify)
	return res
}
