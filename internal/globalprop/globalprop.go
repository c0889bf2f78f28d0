// Package globalprop implements the Globals Post-Propagator (SPEC_FULL
// §4.5): a standalone pass that runs after the duplicator when a module
// is linked against externally-compiled functions the duplicator could
// never see, consulting the persisted compiled-function CSV (§6.4) to
// retrofit call sites and duplicated-global accesses the in-process run
// missed.
package globalprop

import (
	"strings"

	"github.com/golang/glog"

	"aspis/internal/annotation"
	"aspis/internal/config"
	"aspis/internal/ir"
	"aspis/internal/persist"
)

const dupSuffix = "_dup"
const originalSuffix = "_original"

// Result summarizes what one run rewrote.
type Result struct {
	StoresCloned  int
	LoadsCloned   int
	CallsToDup    int
	CallsToOrig   int
}

// Run loads the EDDI compiled-function set from cfg.CompiledSetDir and
// applies §4.5's four rewrites across every function of m.
func Run(m *ir.Module, idx *annotation.Index, cfg *config.Config) (*Result, error) {
	compiled, err := persist.Load(cfg.CompiledSetDir, persist.EDDISet)
	if err != nil {
		return nil, err
	}
	glog.V(1).Infof("globalprop: %d previously-compiled function(s) in %s", len(compiled), cfg.CompiledSetDir)

	dups := duplicatedGlobals(m)
	res := &Result{}

	for _, f := range append([]*ir.Function(nil), m.Functions()...) {
		if f == nil || len(f.Blocks) == 0 {
			continue
		}
		if idx.Excluded(f.Name) {
			rewireExcludedCalls(m, f, res)
			continue
		}
		if persist.Contains(compiled, f.Name) {
			continue
		}
		cloneUncompiledStores(f, dups, res)
		propagateLoadsIntoCalls(m, f, dups, res)
		rewireBareCallsToDupSibling(m, f, res)
	}
	glog.V(1).Infof("globalprop: cloned %d store(s), %d load(s), rewired %d call(s) to _dup, %d to _original",
		res.StoresCloned, res.LoadsCloned, res.CallsToDup, res.CallsToOrig)
	return res, nil
}

// duplicatedGlobals maps each original global's address to its _dup
// sibling's address, for every global that has one, by the same naming
// convention internal/eddi.DuplicateGlobals establishes.
func duplicatedGlobals(m *ir.Module) map[*ir.Value]*ir.Value {
	pairs := map[*ir.Value]*ir.Value{}
	for _, g := range m.Globals() {
		if strings.HasSuffix(g.Name, dupSuffix) {
			continue
		}
		if dup, ok := m.GlobalByName(g.Name + dupSuffix); ok {
			pairs[g.Addr] = dup.Addr
		}
	}
	return pairs
}

// cloneUncompiledStores implements §4.5's first rewrite: a function
// outside the compiled set never had EDDI's own duplicator run over it,
// so any store it makes into a duplicated global's original copy needs
// a twin store into the shadow, exactly as the duplicator would have
// inserted one itself.
func cloneUncompiledStores(f *ir.Function, dups map[*ir.Value]*ir.Value, res *Result) {
	for _, b := range append([]*ir.BasicBlock(nil), f.Blocks...) {
		for _, inst := range append([]ir.Instruction(nil), b.Instructions...) {
			st, ok := inst.(*ir.StoreInstruction)
			if !ok {
				continue
			}
			dupAddr, ok := dups[st.Address]
			if !ok {
				continue
			}
			clone := st.Clone(f.NextValueID()).(*ir.StoreInstruction)
			clone.Address = dupAddr
			b.InsertAfter(st, clone)
			dupAddr.AddUse(clone, b)
			if clone.Val != nil {
				clone.Val.AddUse(clone, b)
			}
			res.StoresCloned++
		}
	}
}

// propagateLoadsIntoCalls implements §4.5's second rewrite: a load of a
// duplicated global that feeds a call argument gets a shadow load
// cloned alongside it, and the call is redirected to the callee's _dup
// variant with the loaded value's argument slot doubled — the same
// (original, shadow) pairing internal/eddi.rewriteCallToDup produces,
// just discovered from the global's duplication rather than from a
// live in-process shadow map.
func propagateLoadsIntoCalls(m *ir.Module, f *ir.Function, dups map[*ir.Value]*ir.Value, res *Result) {
	for _, b := range append([]*ir.BasicBlock(nil), f.Blocks...) {
		for _, inst := range append([]ir.Instruction(nil), b.Instructions...) {
			ld, ok := inst.(*ir.LoadInstruction)
			if !ok {
				continue
			}
			dupAddr, ok := dups[ld.Address]
			if !ok {
				continue
			}
			for _, use := range append([]*ir.Use(nil), ld.Res.Uses...) {
				call, ok := use.User.(*ir.CallInstruction)
				if !ok || call.Callee == nil {
					continue
				}
				dupCallee, ok := m.FunctionByName(call.Callee.Name + dupSuffix)
				if !ok {
					continue
				}
				shadow := f.NewValue(ld.Res.Name+dupSuffix, ld.Res.Type)
				clone := &ir.LoadInstruction{Res: shadow, Address: dupAddr}
				b.InsertAfter(ld, clone)
				dupAddr.AddUse(clone, b)
				res.LoadsCloned++

				rewriteCallToDup(f, use.Block, call, dupCallee, ld.Res, shadow)
				res.CallsToDup++
			}
		}
	}
}

// rewriteCallToDup redirects call to target, doubling each argument:
// the tracked value's slot pairs with shadow, every other argument
// passes itself in both slots (it has no known shadow here).
func rewriteCallToDup(f *ir.Function, b *ir.BasicBlock, call *ir.CallInstruction, target *ir.Function, tracked, shadow *ir.Value) {
	args := call.Args
	doubled := make([]*ir.Value, 0, 2*len(args))
	doubled = append(doubled, args...)
	for _, a := range args {
		if a == tracked {
			doubled = append(doubled, shadow)
		} else {
			doubled = append(doubled, a)
		}
	}

	newCall := &ir.CallInstruction{Callee: target, Args: doubled, Intrinsic: call.Intrinsic}
	if call.Res != nil {
		newCall.Res = f.NewValue(call.Res.Name, target.ReturnType)
	}
	b.Replace(call, newCall)
	for _, a := range call.Args {
		a.RemoveUse(call)
	}
	for _, a := range doubled {
		if a != nil {
			a.AddUse(newCall, b)
		}
	}
	if call.Res != nil && newCall.Res != nil {
		call.Res.ReplaceAllUsesWith(newCall.Res)
	}
}

// rewireBareCallsToDupSibling implements §4.5's third rewrite: a call
// whose argument count already matches a _dup sibling's parameter count
// is a call site that some earlier duplication pass already doubled the
// arguments for, but left targeting the plain symbol (e.g. because the
// callee's own signature duplication happened after this call site was
// built) — the fix is a bare callee swap, the arguments already being in
// the right shape.
func rewireBareCallsToDupSibling(m *ir.Module, f *ir.Function, res *Result) {
	for _, b := range f.Blocks {
		for _, inst := range b.Instructions {
			call, ok := inst.(*ir.CallInstruction)
			if !ok || call.Callee == nil {
				continue
			}
			if strings.HasSuffix(call.Callee.Name, dupSuffix) || strings.HasSuffix(call.Callee.Name, originalSuffix) {
				continue
			}
			dupCallee, ok := m.FunctionByName(call.Callee.Name + dupSuffix)
			if !ok {
				continue
			}
			if len(call.Args) != len(dupCallee.Params) {
				continue
			}
			call.Callee = dupCallee
			res.CallsToDup++
		}
	}
}

// rewireExcludedCalls implements §4.5's fourth rewrite: a CSV-excluded
// function is never transformed itself, but if it calls into a function
// that was duplicated elsewhere in this module, it must keep calling the
// pristine API — the _original sibling, not the (now signature-doubled)
// plain symbol.
func rewireExcludedCalls(m *ir.Module, f *ir.Function, res *Result) {
	for _, b := range f.Blocks {
		for _, inst := range b.Instructions {
			call, ok := inst.(*ir.CallInstruction)
			if !ok || call.Callee == nil {
				continue
			}
			if strings.HasSuffix(call.Callee.Name, originalSuffix) || strings.HasSuffix(call.Callee.Name, dupSuffix) {
				continue
			}
			original, ok := m.FunctionByName(call.Callee.Name + originalSuffix)
			if !ok {
				continue
			}
			call.Callee = original
			res.CallsToOrig++
		}
	}
}
