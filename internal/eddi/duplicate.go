package eddi

import (
	"aspis/internal/annotation"
	"aspis/internal/config"
	"aspis/internal/ir"
)

// duplicatableIntrinsics are the memory intrinsics whose semantics are
// pure data manipulation and that lower without side effects beyond the
// memory they touch; the source's inconsistent per-intrinsic policy is
// resolved (9) as exactly this pair, configurable only by editing this
// set.
var duplicatableIntrinsics = map[string]bool{"memcpy": true, "memset": true}

// dupCtx threads the state one function's per-instruction duplication
// walk needs: the module-wide shadow map, the signature-duplication
// results (for call-site rewriting to _dup callees), the annotation
// index (to_duplicate callees), and a per-instruction visited set so an
// operand reached by recursive duplication before its turn in program
// order is not processed twice.
type dupCtx struct {
	idx     *annotation.Index
	cfg     *config.Config
	shadow  *ShadowMap
	funcDup map[string]*FuncShadow
	f       *ir.Function
	done    map[ir.Instruction]bool
	// prologue tracks, per block, the last duplicated alloca placed at
	// the head, so later shadows follow earlier ones in source order.
	prologue map[*ir.BasicBlock]ir.Instruction
}

// DuplicateInstructions walks every block of f (already F_dup, the
// signature-duplicated clone) in native order, and every instruction in
// program order, applying the per-instruction-class duplication policy
// of 4.4.3, then the call/invoke duplication policy for the block's
// terminator when it is an invoke.
func DuplicateInstructions(f *ir.Function, idx *annotation.Index, cfg *config.Config, shadow *ShadowMap, funcDup map[string]*FuncShadow) {
	ctx := &dupCtx{idx: idx, cfg: cfg, shadow: shadow, funcDup: funcDup, f: f, done: map[ir.Instruction]bool{}, prologue: map[*ir.BasicBlock]ir.Instruction{}}
	for _, b := range append([]*ir.BasicBlock(nil), f.Blocks...) {
		for _, inst := range append([]ir.Instruction(nil), b.Instructions...) {
			ctx.dup(b, inst)
		}
		ctx.handleInvoke(b)
	}
}

// dup duplicates inst (if its class requires it) and returns the shadow
// value produced, or nil if the instruction's class is never cloned or
// the clone was erased as textually identical.
func (ctx *dupCtx) dup(b *ir.BasicBlock, inst ir.Instruction) *ir.Value {
	if ctx.done[inst] {
		if res := inst.Result(); res != nil {
			sv, _ := ctx.shadow.Shadow(res)
			return sv
		}
		return nil
	}
	ctx.done[inst] = true

	switch i := inst.(type) {
	case *ir.AllocaInstruction:
		return ctx.dupAlloca(b, i)
	case *ir.ConstInstruction:
		return nil // constants are never shadowed; both streams share them
	case *ir.BinaryInstruction, *ir.UnaryInstruction, *ir.LoadInstruction,
		*ir.GEPInstruction, *ir.CompareInstruction, *ir.SelectInstruction,
		*ir.InsertValueInstruction, *ir.PhiInstruction:
		return ctx.dupSimple(b, inst)
	case *ir.StoreInstruction, *ir.AtomicRMWInstruction, *ir.CmpXchgInstruction:
		return ctx.dupSideEffecting(b, inst)
	case *ir.CallInstruction:
		return ctx.dupCall(b, i)
	default:
		// br, switch, ret, indirectbr: not cloned; checks.go consults the
		// shadow map directly when it rewires these as checkpoints.
		return nil
	}
}

// shadowOf looks up v's shadow, duplicating its defining instruction on
// demand if the walk hasn't reached it yet (the recursive case of
// 4.4.3: "if an operand has no shadow yet, it is duplicated first").
// Globals and arguments either already have a shadow (established by
// DuplicateGlobals/DuplicateSignatures) or never will; constants never
// get one.
func (ctx *dupCtx) shadowOf(v *ir.Value) (*ir.Value, bool) {
	if v == nil {
		return nil, false
	}
	if sv, ok := ctx.shadow.Shadow(v); ok {
		return sv, true
	}
	switch v.Kind {
	case ir.ValueGlobal, ir.ValueArgument:
		return nil, false
	}
	if v.DefInst == nil || v.DefBlock == nil || v.DefBlock.Func != ctx.f {
		return nil, false
	}
	if _, isConst := v.DefInst.(*ir.ConstInstruction); isConst {
		return nil, false
	}
	sv := ctx.dup(v.DefBlock, v.DefInst)
	if sv == nil {
		return nil, false
	}
	return sv, true
}

// remapOperands rewrites clone's operands to their shadows where one
// exists, falling back to the original operand (e.g. a shared constant)
// otherwise, and maintains use-list bookkeeping for the new operand set.
func (ctx *dupCtx) remapOperands(clone ir.Instruction, b *ir.BasicBlock) {
	for i, op := range clone.Operands() {
		v := op
		if sv, ok := ctx.shadowOf(op); ok {
			v = sv
		}
		clone.SetOperand(i, v)
		if v != nil {
			v.AddUse(clone, b)
		}
	}
}

// dupAlloca clones a (non-exception) alloca. Exception-handling allocas
// -- identified upstream by a reachable __cxa_begin_catch-style user --
// are marked ExceptionAlloca and are skipped outright. Placement follows
// 4.4.3: under the alternating layout the duplicate sits immediately
// after its original (paired adjacency, matching the alternating
// parameter/global layouts); under the default interleaved layout
// duplicated allocas accumulate at the block's alloca prologue.
func (ctx *dupCtx) dupAlloca(b *ir.BasicBlock, a *ir.AllocaInstruction) *ir.Value {
	if a.ExceptionAlloca {
		return nil
	}
	clone := a.Clone(ctx.f.NextValueID()).(*ir.AllocaInstruction)
	clone.Res = ctx.f.NewValue(a.Res.Name+dupSuffix, a.Res.Type)
	if ctx.cfg.AlternateMemmap {
		b.InsertAfter(a, clone)
	} else if last, ok := ctx.prologue[b]; ok {
		b.InsertAfter(last, clone)
		ctx.prologue[b] = clone
	} else {
		b.Prepend(clone)
		ctx.prologue[b] = clone
	}
	ctx.shadow.Pair(a.Res, clone.Res)
	return clone.Res
}

// dupSimple handles every instruction class cloned unconditionally, with
// operands recursively duplicated and rewired to shadows: binary/unary
// arithmetic, load, GEP, compare, select, insertvalue and phi. Phi's
// Operands()/SetOperand() walk its Incoming edges in order, so no
// separate phi-specific remap is needed.
func (ctx *dupCtx) dupSimple(b *ir.BasicBlock, inst ir.Instruction) *ir.Value {
	clone := inst.Clone(ctx.f.NextValueID())
	res := inst.Result()
	if res != nil {
		ir.SetResult(clone, ctx.f.NewValue(res.Name+dupSuffix, res.Type))
	}
	ctx.remapOperands(clone, b)
	b.InsertAfter(inst, clone)
	if res == nil {
		return nil
	}
	cres := clone.Result()
	ctx.shadow.Pair(res, cres)
	return cres
}

// dupSideEffecting handles store, atomicrmw and cmpxchg: cloned with
// operands rewired to shadows, but if no operand actually had a shadow
// the clone would be textually identical to the original -- 4.4.3
// requires erasing it and retracting the mapping rather than keeping a
// pointless duplicate write.
func (ctx *dupCtx) dupSideEffecting(b *ir.BasicBlock, inst ir.Instruction) *ir.Value {
	clone := inst.Clone(ctx.f.NextValueID())
	res := inst.Result()
	if res != nil {
		ir.SetResult(clone, ctx.f.NewValue(res.Name+dupSuffix, res.Type))
	}

	substituted := false
	for i, op := range inst.Operands() {
		if sv, ok := ctx.shadowOf(op); ok {
			clone.SetOperand(i, sv)
			sv.AddUse(clone, b)
			substituted = true
			continue
		}
		clone.SetOperand(i, op)
		if op != nil {
			op.AddUse(clone, b)
		}
	}

	if !substituted {
		if cres := clone.Result(); cres != nil {
			ctx.shadow.Unpair(cres)
		}
		return nil
	}

	b.InsertAfter(inst, clone)
	if res == nil {
		return nil
	}
	cres := clone.Result()
	ctx.shadow.Pair(res, cres)
	return cres
}

// dupCall implements the call/invoke duplication policy of 4.4.3 for
// direct and indirect calls that are not terminators (ordinary
// CallInstruction; InvokeTerminator is handled by handleInvoke since it
// ends a block).
func (ctx *dupCtx) dupCall(b *ir.BasicBlock, call *ir.CallInstruction) *ir.Value {
	if call.Callee != nil {
		if fs, ok := ctx.funcDup[call.Callee.Name]; ok {
			return ctx.rewriteCallToDup(b, call, fs.Dup)
		}
		if ctx.idx.ToDuplicate(call.Callee.Name) || duplicatableIntrinsics[call.Intrinsic] {
			return ctx.cloneCallInPlace(b, call)
		}
	}
	ctx.emitFixups(b, call, call.Args)
	return nil
}

// rewriteCallToDup redirects call to target (F_dup), doubling its
// argument list in the layout matching target's parameter order.
func (ctx *dupCtx) rewriteCallToDup(b *ir.BasicBlock, call *ir.CallInstruction, target *ir.Function) *ir.Value {
	args := ctx.doubledArgs(call.Args)
	newCall := &ir.CallInstruction{Callee: target, Args: args, Intrinsic: call.Intrinsic}
	if call.Res != nil {
		newCall.Res = ctx.f.NewValue(call.Res.Name, target.ReturnType)
	}
	b.Replace(call, newCall)
	for _, a := range call.Args {
		a.RemoveUse(call)
	}
	for _, a := range args {
		if a != nil {
			a.AddUse(newCall, b)
		}
	}
	if call.Res != nil && newCall.Res != nil {
		call.Res.ReplaceAllUsesWith(newCall.Res)
	}
	return nil
}

// doubledArgs builds the (original, shadow) argument list for a
// duplicatable-target call, in sequential or alternating order to match
// how the callee's own duplicated parameters were laid out (4.4.2).
// An argument with no registered shadow passes itself in both slots.
func (ctx *dupCtx) doubledArgs(args []*ir.Value) []*ir.Value {
	shadows := make([]*ir.Value, len(args))
	for i, a := range args {
		if sv, ok := ctx.shadowOf(a); ok {
			shadows[i] = sv
		} else {
			shadows[i] = a
		}
	}
	if ctx.cfg.AlternateMemmap {
		out := make([]*ir.Value, 0, 2*len(args))
		for i := range args {
			out = append(out, args[i], shadows[i])
		}
		return out
	}
	return append(append([]*ir.Value(nil), args...), shadows...)
}

// cloneCallInPlace handles a to_duplicate-annotated or intrinsic callee
// with no _dup sibling: the call itself is cloned, with its arguments
// rewired to shadows where available.
func (ctx *dupCtx) cloneCallInPlace(b *ir.BasicBlock, call *ir.CallInstruction) *ir.Value {
	clone := call.Clone(ctx.f.NextValueID()).(*ir.CallInstruction)
	if call.Res != nil {
		clone.Res = ctx.f.NewValue(call.Res.Name+dupSuffix, call.Res.Type)
	}
	for i, a := range call.Args {
		v := a
		if sv, ok := ctx.shadowOf(a); ok {
			v = sv
		}
		clone.Args[i] = v
		if v != nil {
			v.AddUse(clone, b)
		}
	}
	b.InsertAfter(call, clone)
	if clone.Res == nil {
		return nil
	}
	ctx.shadow.Pair(call.Res, clone.Res)
	return clone.Res
}

// emitFixups implements the non-duplicatable-callee fix-up sequence: for
// every pointer argument with a registered shadow, `tmp = load original;
// store tmp, shadow` is inserted right after insertAfter, so writes the
// (un-duplicated) callee makes through the original pointer propagate to
// the shadow.
func (ctx *dupCtx) emitFixups(b *ir.BasicBlock, insertAfter ir.Instruction, args []*ir.Value) {
	prev := insertAfter
	for _, a := range args {
		ptrType, isPtr := a.Type.(*ir.PointerType)
		if !isPtr {
			continue
		}
		shadowPtr, ok := ctx.shadowOf(a)
		if !ok {
			continue
		}
		tmp := ctx.f.NewValue(a.Name+".fixup", ptrType.ElemType)
		load := &ir.LoadInstruction{Res: tmp, Address: a}
		b.InsertAfter(prev, load)
		a.AddUse(load, b)

		store := &ir.StoreInstruction{Address: shadowPtr, Val: tmp}
		b.InsertAfter(load, store)
		shadowPtr.AddUse(store, b)
		tmp.AddUse(store, b)
		prev = store
	}
}

// emitFixupsAtHead is emitFixups for the invoke case: the fix-up
// sequence belongs at the head of the normal-return successor rather
// than immediately after the call, since invoke has no "next
// instruction in the same block".
func emitFixupsAtHead(ctx *dupCtx, b *ir.BasicBlock, args []*ir.Value) {
	var target ir.Instruction
	if len(b.Instructions) > 0 {
		target = b.Instructions[0]
	}
	for _, a := range args {
		ptrType, isPtr := a.Type.(*ir.PointerType)
		if !isPtr {
			continue
		}
		shadowPtr, ok := ctx.shadowOf(a)
		if !ok {
			continue
		}
		tmp := ctx.f.NewValue(a.Name+".fixup", ptrType.ElemType)
		load := &ir.LoadInstruction{Res: tmp, Address: a}
		store := &ir.StoreInstruction{Address: shadowPtr, Val: tmp}
		if target != nil {
			b.InsertBefore(target, load)
			b.InsertBefore(target, store)
		} else {
			b.Append(load)
			b.Append(store)
		}
		a.AddUse(load, b)
		shadowPtr.AddUse(store, b)
		tmp.AddUse(store, b)
	}
}

// handleInvoke applies the call/invoke duplication policy to b's
// terminator when it is an InvokeTerminator targeting a duplicatable
// function: the invoke is rewritten to the _dup callee with doubled
// arguments, preserving its normal/unwind successors. A terminator
// cannot itself be cloned in place (a block has exactly one terminator),
// so to_duplicate/intrinsic invoke callees and non-duplicatable ones
// both fall back to the fix-up sequence, emitted at the head of the
// normal-return successor.
func (ctx *dupCtx) handleInvoke(b *ir.BasicBlock) {
	invoke, ok := b.Term.(*ir.InvokeTerminator)
	if !ok || invoke.Callee == nil {
		return
	}
	if fs, ok := ctx.funcDup[invoke.Callee.Name]; ok {
		args := ctx.doubledArgs(invoke.Args)
		newInvoke := &ir.InvokeTerminator{
			Callee: fs.Dup,
			Args:   args,
			Normal: invoke.Normal,
			Unwind: invoke.Unwind,
		}
		if invoke.Res != nil {
			newInvoke.Res = ctx.f.NewValue(invoke.Res.Name, fs.Dup.ReturnType)
		}
		for _, a := range invoke.Args {
			a.RemoveUse(invoke)
		}
		for _, a := range args {
			if a != nil {
				a.AddUse(newInvoke, b)
			}
		}
		b.SetTerminator(newInvoke)
		if invoke.Res != nil && newInvoke.Res != nil {
			invoke.Res.ReplaceAllUsesWith(newInvoke.Res)
		}
		return
	}
	emitFixupsAtHead(ctx, invoke.Normal, invoke.Args)
}
