package cfc

import (
	"testing"

	"aspis/internal/annotation"
	"aspis/internal/errorblock"
	"aspis/internal/ir"
)

func TestNewGlobalCellReusesAnnotatedGlobal(t *testing.T) {
	m := ir.NewModule("m")
	g := ir.NewGlobalVariable("front_end_sig", ir.I32())
	m.AddGlobal(g)
	m.Annotate("front_end_sig", "runtime_sig")

	idx := annotation.Build(m)
	gc := newGlobalCell(m, idx)

	if gc.Addr() != g.Addr {
		t.Error("expected newGlobalCell to reuse the annotated global's address")
	}
	if _, ok := m.GlobalByName("__cfc_runtime_sig"); ok {
		t.Error("should not have synthesized a fresh global when an annotated one exists")
	}
}

func TestNewGlobalCellSynthesizesWhenAbsent(t *testing.T) {
	m := ir.NewModule("m")
	idx := annotation.Build(m)
	gc := newGlobalCell(m, idx)

	g, ok := m.GlobalByName("__cfc_runtime_sig")
	if !ok {
		t.Fatal("expected a fresh global to be synthesized")
	}
	if gc.Addr() != g.Addr {
		t.Error("cell address should match the synthesized global's address")
	}
	if !g.ThreadLocal {
		t.Error("synthesized signature global should be thread-local")
	}
}

func TestRacfedBlockSumSkipsBelowThreshold(t *testing.T) {
	f := &ir.Function{Name: "f", ReturnType: ir.Void()}
	b := ir.NewBuilder(f)
	// One original instruction plus the cell's alloca: two, below three.
	b.Const("a", ir.I32(), int64(1))
	b.Ret(nil)

	entry := f.Entry()
	before := len(entry.Instructions)

	cell := newStackCell(f)
	sum := racfedBlockSum(f, entry, cell, "m")

	if sum != 0 {
		t.Errorf("racfedBlockSum() = %d, want 0 below the 3-instruction threshold", sum)
	}
	if len(entry.Instructions) != before+1 {
		t.Fatalf("entry has %d instructions, want %d (only the alloca added)", len(entry.Instructions), before+1)
	}
}

func TestRacfedBlockSumInsertsUpdatesAtThreshold(t *testing.T) {
	f := &ir.Function{Name: "f", ReturnType: ir.Void()}
	b := ir.NewBuilder(f)
	a := b.Const("a", ir.I32(), int64(1))
	bb := b.Const("c", ir.I32(), int64(2))
	s := b.Binary("sum", ir.OpAdd, ir.I32(), a, bb)
	b.Binary("sum2", ir.OpAdd, ir.I32(), s, a)
	b.Ret(nil)

	entry := f.Entry()
	originalCount := len(originalInstructions(entry))
	if originalCount < 3 {
		t.Fatalf("fixture has %d non-phi instructions, want >= 3", originalCount)
	}

	cell := newStackCell(f)
	sum := racfedBlockSum(f, entry, cell, "m")
	if sum == 0 {
		t.Error("expected a nonzero accumulated signature sum at or above the threshold")
	}

	var loads, stores, adds int
	for _, inst := range entry.Instructions {
		switch inst.(type) {
		case *ir.LoadInstruction:
			loads++
		case *ir.StoreInstruction:
			stores++
		}
		if bi, ok := inst.(*ir.BinaryInstruction); ok && bi.Op == ir.OpAdd {
			adds++
		}
	}
	if loads == 0 || stores == 0 {
		t.Error("expected cell load/store instructions to have been inserted")
	}
}

func TestHardenRacfedUsesModuleGlobalCell(t *testing.T) {
	m := ir.NewModule("m")
	f := &ir.Function{Name: "f", ReturnType: ir.Void()}
	b := ir.NewBuilder(f)
	entry := f.Entry()
	mid := b.NewBlock("mid")
	mid.SetTerminator(&ir.ReturnTerminator{})
	b.SetBlock(entry)
	b.Jump(mid)
	m.AddFunction(f)

	idx := annotation.Build(m)
	mz := errorblock.New(m, idx)
	ebf := errorblock.NewFactory(mz)
	gc := newGlobalCell(m, idx)

	hardenRacfed(f, m, idx, gc, ebf)

	var sawStoreToGlobal bool
	for _, b := range f.Blocks {
		for _, inst := range b.Instructions {
			if st, ok := inst.(*ir.StoreInstruction); ok && st.Address == gc.Addr() {
				sawStoreToGlobal = true
			}
		}
	}
	if !sawStoreToGlobal {
		t.Error("expected hardenRacfed to store into the shared module-global cell")
	}
	for _, inst := range entry.Instructions {
		if _, ok := inst.(*ir.AllocaInstruction); ok {
			t.Error("RACFED should not allocate a per-function signature cell")
		}
	}
}
