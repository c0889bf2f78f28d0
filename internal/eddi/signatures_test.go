package eddi

import (
	"testing"

	"aspis/internal/config"
	"aspis/internal/ir"
)

func buildAdd(m *ir.Module) *ir.Function {
	f := &ir.Function{Name: "add", ReturnType: ir.I32()}
	x := f.AddParam("x", ir.I32())
	y := f.AddParam("y", ir.I32())
	b := ir.NewBuilder(f)
	sum := b.Binary("sum", ir.OpAdd, ir.I32(), x.Value, y.Value)
	b.Ret(sum)
	m.AddFunction(f)
	return f
}

func TestDuplicateSignaturesSequentialLayout(t *testing.T) {
	m := ir.NewModule("m")
	f := buildAdd(m)
	shadow := NewShadowMap()

	out := DuplicateSignatures(m, config.Default(), shadow, []*ir.Function{f})
	fs := out["add"]
	if fs == nil {
		t.Fatal("expected a FuncShadow for add")
	}
	if len(fs.Dup.Params) != 4 {
		t.Fatalf("Dup has %d params, want 4", len(fs.Dup.Params))
	}
	wantNames := []string{"x", "y", "x.dup", "y.dup"}
	for i, want := range wantNames {
		if fs.Dup.Params[i].Name != want {
			t.Errorf("param[%d].Name = %s, want %s", i, fs.Dup.Params[i].Name, want)
		}
	}
	if sv, ok := shadow.Shadow(fs.Dup.Params[0].Value); !ok || sv != fs.Dup.Params[2].Value {
		t.Error("expected x paired with x.dup in the shadow map")
	}
}

func TestDuplicateSignaturesAlternatingLayout(t *testing.T) {
	m := ir.NewModule("m")
	f := buildAdd(m)
	shadow := NewShadowMap()
	cfg := config.Default()
	cfg.AlternateMemmap = true

	out := DuplicateSignatures(m, cfg, shadow, []*ir.Function{f})
	fs := out["add"]
	wantNames := []string{"x", "x.dup", "y", "y.dup"}
	for i, want := range wantNames {
		if fs.Dup.Params[i].Name != want {
			t.Errorf("param[%d].Name = %s, want %s", i, fs.Dup.Params[i].Name, want)
		}
	}
}

func TestDuplicateSignaturesAddsCloneToModule(t *testing.T) {
	m := ir.NewModule("m")
	f := buildAdd(m)
	shadow := NewShadowMap()

	DuplicateSignatures(m, config.Default(), shadow, []*ir.Function{f})
	if _, ok := m.FunctionByName("add_dup"); !ok {
		t.Error("expected add_dup to be registered in the module")
	}
}
