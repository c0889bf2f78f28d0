package globalprop

import (
	"testing"

	"aspis/internal/annotation"
	"aspis/internal/config"
	"aspis/internal/ir"
	"aspis/internal/persist"
)

func newTestIndex(m *ir.Module) *annotation.Index {
	return annotation.Build(m)
}

func TestCloneUncompiledStoresAddsShadowStore(t *testing.T) {
	m := ir.NewModule("m")
	g := ir.NewGlobalVariable("counter", ir.I32())
	dup := ir.NewGlobalVariable("counter_dup", ir.I32())
	m.AddGlobal(g)
	m.AddGlobal(dup)

	f := &ir.Function{Name: "f", ReturnType: ir.Void()}
	b := ir.NewBuilder(f)
	val := b.Const("v", ir.I32(), int64(1))
	b.Store(g.Addr, val)
	b.Ret(nil)
	m.AddFunction(f)

	idx := newTestIndex(m)
	cfg := config.Default()
	cfg.CompiledSetDir = t.TempDir()

	res, err := Run(m, idx, cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.StoresCloned != 1 {
		t.Fatalf("StoresCloned = %d, want 1", res.StoresCloned)
	}

	var sawShadowStore bool
	for _, inst := range f.Entry().Instructions {
		if st, ok := inst.(*ir.StoreInstruction); ok && st.Address == dup.Addr {
			sawShadowStore = true
		}
	}
	if !sawShadowStore {
		t.Error("expected a cloned store targeting the duplicated global")
	}
}

func TestCloneUncompiledStoresSkipsCompiledFunctions(t *testing.T) {
	m := ir.NewModule("m")
	g := ir.NewGlobalVariable("counter", ir.I32())
	dup := ir.NewGlobalVariable("counter_dup", ir.I32())
	m.AddGlobal(g)
	m.AddGlobal(dup)

	f := &ir.Function{Name: "f", ReturnType: ir.Void()}
	b := ir.NewBuilder(f)
	val := b.Const("v", ir.I32(), int64(1))
	b.Store(g.Addr, val)
	b.Ret(nil)
	m.AddFunction(f)

	dir := t.TempDir()
	idx := newTestIndex(m)
	cfg := config.Default()
	cfg.CompiledSetDir = dir

	if err := persist.Save(dir, persist.EDDISet, []string{"f"}); err != nil {
		t.Fatalf("failed to seed compiled set: %v", err)
	}

	res, err := Run(m, idx, cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.StoresCloned != 0 {
		t.Fatalf("StoresCloned = %d, want 0 for an already-compiled function", res.StoresCloned)
	}
}

func TestPropagateLoadsIntoCallsRewritesToDupCallee(t *testing.T) {
	m := ir.NewModule("m")
	g := ir.NewGlobalVariable("counter", ir.I32())
	dup := ir.NewGlobalVariable("counter_dup", ir.I32())
	m.AddGlobal(g)
	m.AddGlobal(dup)

	callee := &ir.Function{Name: "callee", ReturnType: ir.I32()}
	calleeB := ir.NewBuilder(callee)
	calleeB.Ret(calleeB.Const("z", ir.I32(), int64(0)))
	m.AddFunction(callee)

	calleeDup := &ir.Function{Name: "callee_dup", ReturnType: ir.I32()}
	calleeDupB := ir.NewBuilder(calleeDup)
	calleeDupB.Ret(calleeDupB.Const("z", ir.I32(), int64(0)))
	m.AddFunction(calleeDup)

	f := &ir.Function{Name: "f", ReturnType: ir.Void()}
	b := ir.NewBuilder(f)
	v := b.Load("v", ir.I32(), g.Addr)
	b.Call("r", callee, v)
	b.Ret(nil)
	m.AddFunction(f)

	idx := newTestIndex(m)
	cfg := config.Default()
	cfg.CompiledSetDir = t.TempDir()

	res, err := Run(m, idx, cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.LoadsCloned != 1 {
		t.Fatalf("LoadsCloned = %d, want 1", res.LoadsCloned)
	}
	if res.CallsToDup != 1 {
		t.Fatalf("CallsToDup = %d, want 1", res.CallsToDup)
	}

	var call *ir.CallInstruction
	for _, inst := range f.Entry().Instructions {
		if c, ok := inst.(*ir.CallInstruction); ok {
			call = c
		}
	}
	if call == nil {
		t.Fatal("expected a call instruction to survive")
	}
	if call.Callee != calleeDup {
		t.Errorf("call.Callee = %v, want calleeDup", call.Callee)
	}
	if len(call.Args) != 2 {
		t.Fatalf("call.Args = %v, want 2 (original, shadow)", call.Args)
	}
}

func TestRewireExcludedCallsTargetsOriginalSibling(t *testing.T) {
	m := ir.NewModule("m")

	callee := &ir.Function{Name: "callee", ReturnType: ir.Void()}
	calleeB := ir.NewBuilder(callee)
	calleeB.Ret(nil)
	m.AddFunction(callee)

	original := &ir.Function{Name: "callee_original", ReturnType: ir.Void()}
	originalB := ir.NewBuilder(original)
	originalB.Ret(nil)
	m.AddFunction(original)

	f := &ir.Function{Name: "f", ReturnType: ir.Void()}
	b := ir.NewBuilder(f)
	b.Call("", callee)
	b.Ret(nil)
	m.AddFunction(f)

	m.Annotate("f", "exclude")
	idx := newTestIndex(m)
	cfg := config.Default()
	cfg.CompiledSetDir = t.TempDir()

	res, err := Run(m, idx, cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.CallsToOrig != 1 {
		t.Fatalf("CallsToOrig = %d, want 1", res.CallsToOrig)
	}

	call := f.Entry().Instructions[0].(*ir.CallInstruction)
	if call.Callee != original {
		t.Errorf("call.Callee = %v, want original", call.Callee)
	}
}

