package config

import "testing"

func TestDefaultCheckPoints(t *testing.T) {
	c := Default()
	if !c.HasCheckPoint(CheckStore) {
		t.Error("expected store checks enabled by default")
	}
	if !c.HasCheckPoint(CheckBranch) {
		t.Error("expected branch checks enabled by default")
	}
	if c.HasCheckPoint(CheckReturn) {
		t.Error("expected return checks disabled by default")
	}
	if c.HasCheckPoint(CheckCall) {
		t.Error("expected call checks disabled by default")
	}
}

func TestDefaultScalarFields(t *testing.T) {
	c := Default()
	if c.AlternateMemmap {
		t.Error("expected sequential layout by default")
	}
	if c.DuplicateSec != ".dup_data" {
		t.Errorf("DuplicateSec = %q, want .dup_data", c.DuplicateSec)
	}
	if c.CFCAlgorithm != CFCRasm {
		t.Errorf("CFCAlgorithm = %q, want rasm", c.CFCAlgorithm)
	}
	if c.CompiledSetDir != "." {
		t.Errorf("CompiledSetDir = %q, want .", c.CompiledSetDir)
	}
}
