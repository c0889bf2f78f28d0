// Package rbr implements the return-by-reference rewriter: every eligible
// function returning a value is replaced by a void-returning clone that
// writes its result through an extra pointer parameter instead, so return
// values participate in the duplicated-data discipline the error
// detection pass relies on.
package rbr

import (
	"aspis/internal/diag"
	"aspis/internal/ir"
	"aspis/internal/oracle"
)

// Suffix is appended to a rewritten function's name to produce its
// reference-returning clone's symbol name.
const Suffix = "_ref"

// Rewrite clones every eligible non-void, non-external function in m into
// a void-returning, out-pointer-taking form, then rewrites every direct
// and invoke call site across the module to target the clone. The
// original functions are left in place, unreferenced by any call site
// after the rewrite, since later passes (and the compile-set archive)
// still want them as a pristine snapshot.
func Rewrite(m *ir.Module, o *oracle.Oracle) error {
	targets := eligibleTargets(m, o)
	clones := map[string]*ir.Function{}

	for _, f := range targets {
		fret := buildRetClone(f)
		m.AddFunction(fret)
		clones[f.Name] = fret
		o.Archive(f.Name, f)
	}

	for _, f := range m.Functions() {
		if err := rewriteCallSites(f, clones); err != nil {
			return err
		}
	}
	return nil
}

func eligibleTargets(m *ir.Module, o *oracle.Oracle) []*ir.Function {
	var out []*ir.Function
	for _, f := range o.EligibleFunctions(m) {
		if f.External {
			continue
		}
		if _, void := f.ReturnType.(*ir.VoidType); void {
			continue
		}
		out = append(out, f)
	}
	return out
}

// buildRetClone produces F_ref: F's parameter list plus a trailing
// out-pointer, a void return type, and every `ret v` rewritten to a
// volatile store through the out-pointer followed by `ret void`.
func buildRetClone(f *ir.Function) *ir.Function {
	clone, _ := ir.CloneFunction(f, f.Name+Suffix)
	clone.ReturnType = ir.Void()
	// A store-through-pointer result can no longer be summarized by the
	// original's memory-effects attribute.
	clone.Effects = ir.MemEffectsUnknown
	for _, attr := range []ir.ParamAttr{ir.AttrReturned, ir.AttrStructRet} {
		for _, p := range clone.Params {
			p.RemoveAttr(attr)
		}
	}

	outPtr := clone.AddParam("out", ir.PtrTo(f.ReturnType)).Value

	for _, b := range clone.Blocks {
		ret, ok := b.Term.(*ir.ReturnTerminator)
		if !ok || ret.Value == nil {
			continue
		}
		store := &ir.StoreInstruction{Address: outPtr, Val: ret.Value, Volatile: true}
		b.Append(store)
		outPtr.AddUse(store, b)
		ret.Value.AddUse(store, b)
		b.SetTerminator(&ir.ReturnTerminator{})
	}

	return clone
}

// rewriteCallSites walks every block of f looking for direct calls and
// invokes whose callee was rewritten, replacing each with a call to the
// out-pointer clone. A call or invoke that carries both a direct Callee
// and an indirect CalleeValue is malformed IR -- the two are mutually
// exclusive by construction -- and aborts the pass rather than silently
// picking one.
func rewriteCallSites(f *ir.Function, clones map[string]*ir.Function) error {
	for _, b := range f.Blocks {
		for i := 0; i < len(b.Instructions); i++ {
			call, ok := b.Instructions[i].(*ir.CallInstruction)
			if !ok || call.Callee == nil {
				continue
			}
			target, rewritten := clones[call.Callee.Name]
			if !rewritten {
				continue
			}
			if call.CalleeValue != nil {
				return malformedCallKind("func-ret-to-ref", f, call, call.Callee.Name)
			}
			if err := rewriteCallInstruction(f, b, call, target); err != nil {
				return err
			}
		}
		if invoke, ok := b.Term.(*ir.InvokeTerminator); ok && invoke.Callee != nil {
			if target, rewritten := clones[invoke.Callee.Name]; rewritten {
				if invoke.CalleeValue != nil {
					return malformedCallKind("func-ret-to-ref", f, invoke, invoke.Callee.Name)
				}
				if err := rewriteInvokeTerminator(f, b, invoke, target); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func rewriteCallInstruction(f *ir.Function, b *ir.BasicBlock, call *ir.CallInstruction, target *ir.Function) error {
	var outPtr *ir.Value
	var loadInst *ir.LoadInstruction

	if call.Res != nil {
		if reused := reuseAllocaOutPointer(call.Res); reused != nil {
			outPtr = reused
		} else {
			outPtr = f.NewValue(call.Res.Name+".ret", ir.PtrTo(call.Res.Type))
			f.Entry().Prepend(&ir.AllocaInstruction{Res: outPtr, Elem: call.Res.Type})
			loadInst = &ir.LoadInstruction{Res: f.NewValue(call.Res.Name, call.Res.Type), Address: outPtr}
		}
	} else {
		elemType := target.Params[len(target.Params)-1].Type.(*ir.PointerType).ElemType
		outPtr = f.NewValue(target.Name+".discard", ir.PtrTo(elemType))
		f.Entry().Prepend(&ir.AllocaInstruction{Res: outPtr, Elem: elemType})
	}

	newArgs := append(append([]*ir.Value(nil), call.Args...), outPtr)
	newCall := &ir.CallInstruction{Callee: target, Args: newArgs}
	b.Replace(call, newCall)
	outPtr.AddUse(newCall, b)
	for _, a := range call.Args {
		a.RemoveUse(call)
		a.AddUse(newCall, b)
	}

	if loadInst != nil {
		b.InsertAfter(newCall, loadInst)
		outPtr.AddUse(loadInst, b)
		call.Res.ReplaceAllUsesWith(loadInst.Res)
	}
	return nil
}

// reuseAllocaOutPointer implements the single-use lookahead: if res's
// only use is an immediate store into a local alloca, that alloca becomes
// the out-pointer and the now-redundant store is erased.
func reuseAllocaOutPointer(res *ir.Value) *ir.Value {
	if len(res.Uses) != 1 {
		return nil
	}
	store, ok := res.Uses[0].User.(*ir.StoreInstruction)
	if !ok || store.Val != res {
		return nil
	}
	alloc, ok := store.Address.DefInst.(*ir.AllocaInstruction)
	if !ok {
		return nil
	}
	res.RemoveUse(store)
	if blk := store.Block(); blk != nil {
		blk.Remove(store)
	}
	return alloc.Res
}

func rewriteInvokeTerminator(f *ir.Function, b *ir.BasicBlock, invoke *ir.InvokeTerminator, target *ir.Function) error {
	var outPtr *ir.Value
	var loadInst *ir.LoadInstruction

	if invoke.Res != nil {
		if reused := reuseAllocaOutPointer(invoke.Res); reused != nil {
			outPtr = reused
		} else {
			outPtr = f.NewValue(invoke.Res.Name+".ret", ir.PtrTo(invoke.Res.Type))
			f.Entry().Prepend(&ir.AllocaInstruction{Res: outPtr, Elem: invoke.Res.Type})
			loadInst = &ir.LoadInstruction{Res: f.NewValue(invoke.Res.Name, invoke.Res.Type), Address: outPtr}
		}
	} else {
		elemType := target.Params[len(target.Params)-1].Type.(*ir.PointerType).ElemType
		outPtr = f.NewValue(target.Name+".discard", ir.PtrTo(elemType))
		f.Entry().Prepend(&ir.AllocaInstruction{Res: outPtr, Elem: elemType})
	}

	newArgs := append(append([]*ir.Value(nil), invoke.Args...), outPtr)
	newInvoke := &ir.InvokeTerminator{
		Callee: target,
		Args:   newArgs,
		Normal: invoke.Normal,
		Unwind: invoke.Unwind,
	}
	for _, a := range invoke.Args {
		a.RemoveUse(invoke)
		a.AddUse(newInvoke, b)
	}
	outPtr.AddUse(newInvoke, b)
	b.SetTerminator(newInvoke)

	if loadInst != nil {
		// The replacement value is only valid along the normal-return
		// edge; insert the load at the head of that successor.
		normalEntry := invoke.Normal
		if len(normalEntry.Instructions) > 0 {
			normalEntry.InsertBefore(normalEntry.Instructions[0], loadInst)
		} else {
			normalEntry.Prepend(loadInst)
		}
		outPtr.AddUse(loadInst, normalEntry)
		invoke.Res.ReplaceAllUsesWith(loadInst.Res)
	}
	return nil
}

// malformedCallKind reports the diagnostic raised when a call or invoke
// targeting a rewritten function carries both a direct Callee and an
// indirect CalleeValue, which the data model treats as mutually
// exclusive.
func malformedCallKind(pass string, f *ir.Function, inst ir.Instruction, calleeName string) *diag.FatalError {
	return diag.Fatalf(pass, f, inst, "call targets both callee %s and an indirect callee value", calleeName)
}
