package cfc

import (
	"aspis/internal/annotation"
	"aspis/internal/ir"
)

// RuntimeCell is the single allocated word every block in a hardened
// function reads and updates: a stack slot per function under RASM, a
// module-global under RACFED (SPEC_FULL §4.6).
type RuntimeCell interface {
	Addr() *ir.Value
}

// stackCell is RASM's per-function signature cell: one alloca placed in
// the entry block's prologue, so each call frame (and each thread) owns
// an independent cell.
type stackCell struct {
	addr  *ir.Value
	alloc *ir.AllocaInstruction
}

// newStackCell prepends a fresh i32 alloca to f's entry block and returns
// the cell wrapping it.
func newStackCell(f *ir.Function) *stackCell {
	entry := f.Entry()
	alloc := &ir.AllocaInstruction{Res: f.NewValue("__cfc_sig", ir.PtrTo(ir.I32())), Elem: ir.I32()}
	entry.Prepend(alloc)
	return &stackCell{addr: alloc.Res, alloc: alloc}
}

func (c *stackCell) Addr() *ir.Value { return c.addr }

// globalCell is RACFED's module-wide signature cell: the front-end's
// runtime_sig-annotated global reused as-is if one exists, otherwise a
// freshly synthesized thread_local global -- per §5, a shared signature
// cell across threads is unsafe unless the front-end opts in via that
// annotation.
type globalCell struct {
	addr *ir.Value
}

// newGlobalCell resolves or synthesizes RACFED's signature cell.
func newGlobalCell(m *ir.Module, idx *annotation.Index) *globalCell {
	if name, ok := idx.RuntimeSigGlobal(); ok {
		if g, ok := m.GlobalByName(name); ok {
			return &globalCell{addr: g.Addr}
		}
	}
	g := ir.NewGlobalVariable("__cfc_runtime_sig", ir.I32())
	g.ThreadLocal = true
	g.Initializer = int64(0)
	m.AddGlobal(g)
	return &globalCell{addr: g.Addr}
}

func (c *globalCell) Addr() *ir.Value { return c.addr }
