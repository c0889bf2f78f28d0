// Package errorblock resolves or synthesizes the two named fault handlers
// (DataCorruption_Handler, SigMismatch_Handler) through the annotation and
// linkage index, and builds the per-check-site error blocks that every
// failed consistency check or signature verification branches to.
package errorblock

import (
	"fmt"

	"aspis/internal/annotation"
	"aspis/internal/ir"
)

// Handler names recognized by the Error-Block Materializer (SPEC_FULL §4.7).
const (
	DataCorruptionHandler = "DataCorruption_Handler"
	SigMismatchHandler    = "SigMismatch_Handler"
)

// Materializer resolves a handler's source-level name to the symbol the
// linkage index recorded for it, falling back to synthesizing an external
// declaration with an infinite-loop body so the module stays self-contained
// for testing (SPEC_FULL §4.7).
type Materializer struct {
	m   *ir.Module
	idx *annotation.Index

	resolved map[string]*ir.Function
}

// New builds a Materializer bound to m and its annotation/linkage index.
func New(m *ir.Module, idx *annotation.Index) *Materializer {
	return &Materializer{m: m, idx: idx, resolved: map[string]*ir.Function{}}
}

// Resolve returns the function backing the named handler, resolving it
// through the linkage index first, then by direct symbol lookup, and
// synthesizing it as a last resort. Resolution is cached so repeated
// check-site insertion never creates more than one handler declaration.
func (mz *Materializer) Resolve(sourceName string) *ir.Function {
	if f, ok := mz.resolved[sourceName]; ok {
		return f
	}

	for _, symbol := range mz.idx.ResolveSymbols(sourceName) {
		if f, ok := mz.m.FunctionByName(symbol); ok {
			mz.resolved[sourceName] = f
			return f
		}
	}
	if f, ok := mz.m.FunctionByName(sourceName); ok {
		mz.resolved[sourceName] = f
		return f
	}

	f := mz.synthesize(sourceName)
	mz.m.AddFunction(f)
	mz.resolved[sourceName] = f
	return f
}

// synthesize builds an external `() -> void` declaration with an attached
// infinite-loop body and the noinline attribute, so the fault is never
// optimized away and stays visible at runtime.
func (mz *Materializer) synthesize(name string) *ir.Function {
	f := &ir.Function{
		Name:       name,
		DebugName:  name,
		ReturnType: ir.Void(),
		NoInline:   true,
	}
	spin := f.AddBlock("spin")
	spin.SetTerminator(&ir.JumpTerminator{Target: spin})
	return f
}

// Factory builds the per-check-site error blocks a function's failed
// checks branch to. SPEC_FULL §4.4.5: each function's error block is
// cloned per predecessor (check site) so every branch target carries its
// own debug location; §12 keeps the naming scheme stable
// (`<function>.error.<n>`) across runs for idempotence.
type Factory struct {
	mz      *Materializer
	counter map[*ir.Function]int
}

// NewFactory builds a Factory backed by mz.
func NewFactory(mz *Materializer) *Factory {
	return &Factory{mz: mz, counter: map[*ir.Function]int{}}
}

// NewSite materializes a fresh error block in fn: a call to the named
// handler followed by an unreachable terminator. loc, if non-nil, is
// carried on the call so the crash report names the failing check site.
func (f *Factory) NewSite(fn *ir.Function, handlerSourceName string, loc *ir.DebugLocation) *ir.BasicBlock {
	n := f.counter[fn]
	f.counter[fn] = n + 1

	bb := fn.AddBlock(fmt.Sprintf("%s.error.%d", fn.Name, n))
	handler := f.mz.Resolve(handlerSourceName)
	call := &ir.CallInstruction{Callee: handler}
	if loc != nil {
		call.SetDebugLoc(loc)
	}
	bb.Append(call)
	bb.SetTerminator(&ir.UnreachableTerminator{})
	return bb
}
