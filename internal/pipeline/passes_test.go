package pipeline

import (
	"testing"

	"aspis/internal/annotation"
	"aspis/internal/config"
	"aspis/internal/fixtures"
	"aspis/internal/oracle"
	"aspis/internal/persist"
)

func TestEDDIVerifyPersistsCompiledSet(t *testing.T) {
	m, err := fixtures.Build("fact")
	if err != nil {
		t.Fatalf("fixtures.Build: %v", err)
	}
	idx := annotation.Build(m)
	cfg := config.Default()
	cfg.CompiledSetDir = t.TempDir()

	ctx := &Context{Module: m, Oracle: oracle.New(idx), Index: idx, Config: cfg}
	if _, err := (eddiVerify{}).Run(ctx); err != nil {
		t.Fatalf("eddiVerify.Run: %v", err)
	}

	names, err := persist.Load(cfg.CompiledSetDir, persist.EDDISet)
	if err != nil {
		t.Fatalf("persist.Load: %v", err)
	}
	if !persist.Contains(names, "fact") {
		t.Fatalf("compiled EDDI set = %v, want it to contain %q", names, "fact")
	}
}

func TestCFCVerifyPersistsCompiledSetUnderItsOwnAlgorithm(t *testing.T) {
	m, err := fixtures.Build("loopsum")
	if err != nil {
		t.Fatalf("fixtures.Build: %v", err)
	}
	idx := annotation.Build(m)
	cfg := config.Default()
	cfg.CompiledSetDir = t.TempDir()

	ctx := &Context{Module: m, Oracle: oracle.New(idx), Index: idx, Config: cfg}
	pass := cfcVerify{name: "rasm-verify", algorithm: config.CFCRasm}
	if _, err := pass.Run(ctx); err != nil {
		t.Fatalf("cfcVerify.Run: %v", err)
	}

	rasmNames, err := persist.Load(cfg.CompiledSetDir, persist.RASMSet)
	if err != nil {
		t.Fatalf("persist.Load(RASMSet): %v", err)
	}
	if !persist.Contains(rasmNames, "loop_sum") {
		t.Fatalf("compiled RASM set = %v, want it to contain %q", rasmNames, "loop_sum")
	}

	racfedNames, err := persist.Load(cfg.CompiledSetDir, persist.RACFEDSet)
	if err != nil {
		t.Fatalf("persist.Load(RACFEDSet): %v", err)
	}
	if len(racfedNames) != 0 {
		t.Fatalf("RACFED set should be untouched by a rasm-verify run, got %v", racfedNames)
	}
}
