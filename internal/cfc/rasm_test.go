package cfc

import (
	"testing"

	"aspis/internal/annotation"
	"aspis/internal/errorblock"
	"aspis/internal/ir"
)

func newHardenRasmFixture(t *testing.T) (*ir.Module, *ir.Function) {
	t.Helper()
	m := ir.NewModule("m")
	f := &ir.Function{Name: "f", ReturnType: ir.Void()}
	b := ir.NewBuilder(f)
	entry := f.Entry()

	mid := b.NewBlock("mid")
	mid.SetTerminator(&ir.ReturnTerminator{})

	b.SetBlock(entry)
	b.Jump(mid)

	m.AddFunction(f)
	return m, f
}

func TestHardenRasmInsertsStackCellAndVerifyBlock(t *testing.T) {
	m, f := newHardenRasmFixture(t)
	idx := annotation.Build(m)
	mz := errorblock.New(m, idx)
	ebf := errorblock.NewFactory(mz)

	hardenRasm(f, m, idx, ebf)

	entry := f.Entry()
	var sawAlloca bool
	for _, inst := range entry.Instructions {
		if _, ok := inst.(*ir.AllocaInstruction); ok {
			sawAlloca = true
		}
	}
	if !sawAlloca {
		t.Fatal("expected entry to hold the RASM signature alloca")
	}

	jmp, ok := entry.Term.(*ir.JumpTerminator)
	if !ok {
		t.Fatalf("entry terminator = %T, want *ir.JumpTerminator", entry.Term)
	}
	verify := jmp.Target
	if verify.Label != "Verify_mid" {
		t.Fatalf("entry jumps to %q, want Verify_mid", verify.Label)
	}
	br, ok := verify.Term.(*ir.BranchTerminator)
	if !ok {
		t.Fatalf("verify terminator = %T, want *ir.BranchTerminator", verify.Term)
	}
	if br.TrueBlock == nil || br.TrueBlock.Label != "mid" {
		t.Errorf("verify true branch = %v, want mid", br.TrueBlock)
	}
}

func TestHardenRasmProtectsReturnWithGuardBlock(t *testing.T) {
	m, f := newHardenRasmFixture(t)
	idx := annotation.Build(m)
	mz := errorblock.New(m, idx)
	ebf := errorblock.NewFactory(mz)

	hardenRasm(f, m, idx, ebf)

	var found bool
	for _, b := range f.Blocks {
		if _, ok := b.Term.(*ir.ReturnTerminator); ok {
			found = true
			var hasGuardBranchIntoIt bool
			for _, p := range b.Predecessors {
				if br, ok := p.Term.(*ir.BranchTerminator); ok && br.TrueBlock == b {
					hasGuardBranchIntoIt = true
				}
			}
			if !hasGuardBranchIntoIt {
				t.Error("expected the return block to be reached through the guard block's checked branch")
			}
		}
	}
	if !found {
		t.Fatal("expected a return terminator to survive somewhere in the function")
	}
}

func TestHardenRasmOverwritesLandingPadInPlace(t *testing.T) {
	m := ir.NewModule("m")
	f := &ir.Function{Name: "f", ReturnType: ir.Void()}
	b := ir.NewBuilder(f)
	entry := f.Entry()

	normal := b.NewBlock("normal")
	normal.SetTerminator(&ir.ReturnTerminator{})
	pad := f.AddBlock("pad")
	pad.SetTerminator(&ir.ReturnTerminator{})

	b.SetBlock(entry)
	callee := &ir.Function{Name: "callee", ReturnType: ir.Void()}
	m.AddFunction(callee)
	entry.SetTerminator(&ir.InvokeTerminator{Callee: callee, Normal: normal, Unwind: pad})

	m.AddFunction(f)
	idx := annotation.Build(m)
	mz := errorblock.New(m, idx)
	ebf := errorblock.NewFactory(mz)

	hardenRasm(f, m, idx, ebf)

	if len(pad.Instructions) < 2 {
		t.Fatalf("pad has %d instructions, want at least const+store", len(pad.Instructions))
	}
	if _, ok := pad.Instructions[0].(*ir.ConstInstruction); !ok {
		t.Fatalf("pad.Instructions[0] = %T, want *ir.ConstInstruction", pad.Instructions[0])
	}
	for _, p := range pad.Predecessors {
		if p.Label == "Verify_pad" {
			t.Error("landing pad should never be prefixed with a Verify block")
		}
	}
}
