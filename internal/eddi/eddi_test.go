package eddi

import (
	"testing"

	"aspis/internal/annotation"
	"aspis/internal/config"
	"aspis/internal/ir"
	"aspis/internal/oracle"
)

func TestRunHardensASimpleFunction(t *testing.T) {
	m := ir.NewModule("m")
	buildAdd(m)

	idx := annotation.Build(m)
	o := oracle.New(idx)
	cfg := config.Default()

	res, err := Run(m, o, idx, cfg)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(res.Targets) != 1 || res.Targets[0].Name != "add" {
		t.Fatalf("Targets = %v, want [add]", res.Targets)
	}

	if _, ok := m.FunctionByName("add_original"); !ok {
		t.Error("expected add_original to be archived in the module")
	}
	if _, ok := m.FunctionByName("add_dup"); !ok {
		t.Error("expected add_dup to be registered in the module")
	}

	fs := res.FuncShadows["add"]
	if fs == nil {
		t.Fatal("expected a FuncShadow for add")
	}
	if len(fs.Dup.Params) != 4 {
		t.Fatalf("add_dup has %d params, want 4", len(fs.Dup.Params))
	}

	// add's name is now archived, so a second run over the same module
	// would not re-target it.
	orig, _ := m.FunctionByName("add")
	if o.ShouldCompile(orig) {
		t.Error("expected add to be archived (ineligible) after Run")
	}
}

func TestRunSynthesizesDataCorruptionHandler(t *testing.T) {
	m := ir.NewModule("m")
	buildAdd(m)

	idx := annotation.Build(m)
	o := oracle.New(idx)
	cfg := config.Default()
	cfg.CheckPoints[config.CheckReturn] = true

	if _, err := Run(m, o, idx, cfg); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if _, ok := m.FunctionByName("DataCorruption_Handler"); !ok {
		t.Error("expected the data-corruption handler to be synthesized")
	}
}
