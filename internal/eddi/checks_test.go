package eddi

import (
	"testing"

	"aspis/internal/config"
	"aspis/internal/errorblock"
	"aspis/internal/ir"
)

func TestInsertChecksSplitsOnStoreWithShadowedOperand(t *testing.T) {
	m := ir.NewModule("m")
	f := &ir.Function{Name: "f", ReturnType: ir.Void()}
	b := ir.NewBuilder(f)
	slot := b.Alloca("slot", ir.I32())
	val := b.Const("five", ir.I32(), 5)
	b.Store(slot, val)
	b.Ret(nil)
	m.AddFunction(f)

	shadow := NewShadowMap()
	shadowVal := &ir.Value{Name: "five_dup", Type: ir.I32()}
	shadow.Pair(val, shadowVal)

	idx := newTestIndex(m)
	mz := errorblock.New(m, idx)
	ebf := errorblock.NewFactory(mz)
	cfg := config.Default()

	InsertChecks(f, cfg, shadow, ebf)

	entry := f.Entry()
	jmp, ok := entry.Term.(*ir.JumpTerminator)
	if !ok {
		t.Fatalf("entry terminator = %T, want *ir.JumpTerminator", entry.Term)
	}
	verify := jmp.Target
	br, ok := verify.Term.(*ir.BranchTerminator)
	if !ok {
		t.Fatalf("verify terminator = %T, want *ir.BranchTerminator", verify.Term)
	}

	var sawStore bool
	for _, inst := range br.TrueBlock.Instructions {
		if _, ok := inst.(*ir.StoreInstruction); ok {
			sawStore = true
		}
	}
	if !sawStore {
		t.Error("expected the true branch to contain the original store")
	}
	if len(br.FalseBlock.Instructions) != 1 {
		t.Fatalf("error block has %d instructions, want 1 (the handler call)", len(br.FalseBlock.Instructions))
	}
	if _, ok := br.FalseBlock.Term.(*ir.UnreachableTerminator); !ok {
		t.Error("expected the error block to end unreachable")
	}
}

func TestInsertChecksNoShadowProducesUnconditionalJump(t *testing.T) {
	m := ir.NewModule("m")
	f := &ir.Function{Name: "f", ReturnType: ir.Void()}
	b := ir.NewBuilder(f)
	slot := b.Alloca("slot", ir.I32())
	val := b.Const("five", ir.I32(), 5)
	b.Store(slot, val)
	b.Ret(nil)
	m.AddFunction(f)

	shadow := NewShadowMap()
	idx := newTestIndex(m)
	mz := errorblock.New(m, idx)
	ebf := errorblock.NewFactory(mz)

	InsertChecks(f, config.Default(), shadow, ebf)

	entry := f.Entry()
	jmp := entry.Term.(*ir.JumpTerminator)
	verify := jmp.Target
	if _, ok := verify.Term.(*ir.JumpTerminator); !ok {
		t.Fatalf("verify terminator = %T, want *ir.JumpTerminator (no operand had a shadow)", verify.Term)
	}
}

func TestInsertChecksBranchCheckpoint(t *testing.T) {
	m := ir.NewModule("m")
	f := &ir.Function{Name: "f", ReturnType: ir.Void()}
	b := ir.NewBuilder(f)
	cond := b.Const("cond", ir.I1(), true)
	tb := b.NewBlock("then")
	tb.SetTerminator(&ir.ReturnTerminator{})
	fb := f.AddBlock("else")
	fb.SetTerminator(&ir.ReturnTerminator{})
	b.SetBlock(f.Entry())
	b.Branch(cond, tb, fb)

	shadow := NewShadowMap()
	shadowCond := &ir.Value{Name: "cond_dup", Type: ir.I1()}
	shadow.Pair(cond, shadowCond)

	idx := newTestIndex(m)
	mz := errorblock.New(m, idx)
	ebf := errorblock.NewFactory(mz)
	cfg := config.Default()

	InsertChecks(f, cfg, shadow, ebf)

	entry := f.Entry()
	jmp, ok := entry.Term.(*ir.JumpTerminator)
	if !ok {
		t.Fatalf("entry terminator = %T, want *ir.JumpTerminator", entry.Term)
	}
	verify := jmp.Target
	br, ok := verify.Term.(*ir.BranchTerminator)
	if !ok {
		t.Fatalf("verify terminator = %T, want *ir.BranchTerminator", verify.Term)
	}
	if _, ok := br.TrueBlock.Term.(*ir.BranchTerminator); !ok {
		t.Error("expected the true branch to hold the original conditional branch")
	}
}
