package cfc

import (
	"testing"

	"aspis/internal/annotation"
	"aspis/internal/config"
	"aspis/internal/ir"
	"aspis/internal/oracle"
)

func simpleFunction(name string) (*ir.Module, *ir.Function) {
	m := ir.NewModule("m")
	f := &ir.Function{Name: name, ReturnType: ir.Void()}
	b := ir.NewBuilder(f)
	mid := b.NewBlock("mid")
	mid.SetTerminator(&ir.ReturnTerminator{})
	b.SetBlock(f.Entry())
	b.Jump(mid)
	m.AddFunction(f)
	return m, f
}

func TestValidateRejectsIndirectBr(t *testing.T) {
	f := &ir.Function{Name: "f", ReturnType: ir.Void()}
	b := ir.NewBuilder(f)
	target := b.NewBlock("target")
	target.SetTerminator(&ir.ReturnTerminator{})
	b.SetBlock(f.Entry())
	addr := b.Const("a", ir.I32(), int64(0))
	f.Entry().SetTerminator(&ir.IndirectBrTerminator{Address: addr, Possible: []*ir.BasicBlock{target}})

	if err := validate(f); err == nil {
		t.Fatal("expected validate to reject indirectbr")
	}
}

func TestValidateRejectsWideSwitch(t *testing.T) {
	f := &ir.Function{Name: "f", ReturnType: ir.Void()}
	b := ir.NewBuilder(f)
	c1 := b.NewBlock("c1")
	c1.SetTerminator(&ir.ReturnTerminator{})
	c2 := f.AddBlock("c2")
	c2.SetTerminator(&ir.ReturnTerminator{})
	def := f.AddBlock("def")
	def.SetTerminator(&ir.ReturnTerminator{})

	b.SetBlock(f.Entry())
	cond := b.Const("cond", ir.I32(), int64(0))
	one := b.Const("one", ir.I32(), int64(1))
	two := b.Const("two", ir.I32(), int64(2))
	f.Entry().SetTerminator(&ir.SwitchTerminator{
		Condition: cond,
		Cases: []ir.SwitchCase{
			{Value: one, Dest: c1},
			{Value: two, Dest: c2},
		},
		Default: def,
	})

	if err := validate(f); err == nil {
		t.Fatal("expected validate to reject a switch with more than one case")
	}
}

func TestValidateAllowsSingleCaseSwitch(t *testing.T) {
	f := &ir.Function{Name: "f", ReturnType: ir.Void()}
	b := ir.NewBuilder(f)
	c1 := b.NewBlock("c1")
	c1.SetTerminator(&ir.ReturnTerminator{})
	def := f.AddBlock("def")
	def.SetTerminator(&ir.ReturnTerminator{})

	b.SetBlock(f.Entry())
	cond := b.Const("cond", ir.I32(), int64(0))
	one := b.Const("one", ir.I32(), int64(1))
	f.Entry().SetTerminator(&ir.SwitchTerminator{
		Condition: cond,
		Cases:     []ir.SwitchCase{{Value: one, Dest: c1}},
		Default:   def,
	})

	if err := validate(f); err != nil {
		t.Fatalf("validate() = %v, want nil", err)
	}
}

func TestRunRasmAddsStackCellToEntry(t *testing.T) {
	m, f := simpleFunction("f")
	idx := annotation.Build(m)
	o := oracle.New(idx)
	cfg := config.Default()
	cfg.CFCAlgorithm = config.CFCRasm

	if _, err := Run(m, o, idx, cfg); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var sawAlloca bool
	for _, inst := range f.Entry().Instructions {
		if _, ok := inst.(*ir.AllocaInstruction); ok {
			sawAlloca = true
		}
	}
	if !sawAlloca {
		t.Error("expected RASM to prepend a signature alloca to the entry block")
	}
	if _, ok := m.GlobalByName("__cfc_runtime_sig"); ok {
		t.Error("RASM should not synthesize a module-global signature cell")
	}
}

func TestRunRacfedAddsGlobalCell(t *testing.T) {
	m, _ := simpleFunction("f")
	idx := annotation.Build(m)
	o := oracle.New(idx)
	cfg := config.Default()
	cfg.CFCAlgorithm = config.CFCRacfed

	if _, err := Run(m, o, idx, cfg); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if _, ok := m.GlobalByName("__cfc_runtime_sig"); !ok {
		t.Error("expected RACFED to synthesize a module-global signature cell")
	}
}

func TestRunRejectsIndirectBrAndReturnsError(t *testing.T) {
	m := ir.NewModule("m")
	f := &ir.Function{Name: "f", ReturnType: ir.Void()}
	b := ir.NewBuilder(f)
	addr := b.Const("a", ir.I32(), int64(0))
	f.Entry().SetTerminator(&ir.IndirectBrTerminator{Address: addr})
	m.AddFunction(f)

	idx := annotation.Build(m)
	o := oracle.New(idx)

	if _, err := Run(m, o, idx, config.Default()); err == nil {
		t.Fatal("expected Run to reject a function with an indirectbr")
	}
}
