package annotation

import (
	"testing"

	"aspis/internal/ir"
)

func TestBuildRecognizesKnownAnnotations(t *testing.T) {
	m := ir.NewModule("m")
	m.Annotate("foo", "to_duplicate")
	m.Annotate("bar", "exclude")
	m.Annotate("sigcell", "runtime_sig")
	m.Annotate("adjcell", "run_adj_sig")

	idx := Build(m)
	if !idx.ToDuplicate("foo") {
		t.Error("expected foo to be annotated to_duplicate")
	}
	if !idx.Excluded("bar") {
		t.Error("expected bar to be annotated exclude")
	}
	if g, ok := idx.RuntimeSigGlobal(); !ok || g != "sigcell" {
		t.Errorf("RuntimeSigGlobal() = (%q, %v), want (sigcell, true)", g, ok)
	}
	if g, ok := idx.RunAdjSigGlobal(); !ok || g != "adjcell" {
		t.Errorf("RunAdjSigGlobal() = (%q, %v), want (adjcell, true)", g, ok)
	}
}

func TestBuildRecordsUnknownAnnotations(t *testing.T) {
	m := ir.NewModule("m")
	m.Annotate("foo", "frobnicate")

	idx := Build(m)
	if idx.ToDuplicate("foo") || idx.Excluded("foo") {
		t.Error("unknown annotation should not be recognized as a known kind")
	}
	unk := idx.UnknownAnnotations()
	if len(unk) != 1 || unk[0] != "frobnicate" {
		t.Errorf("UnknownAnnotations() = %v, want [frobnicate]", unk)
	}
}

func TestResolveSymbolsBySourceName(t *testing.T) {
	m := ir.NewModule("m")
	f := &ir.Function{Name: "_Z3fooi", DebugName: "foo", ReturnType: ir.I32()}
	m.AddFunction(f)

	idx := Build(m)
	syms := idx.ResolveSymbols("foo")
	if len(syms) != 1 || syms[0] != "_Z3fooi" {
		t.Errorf("ResolveSymbols(foo) = %v, want [_Z3fooi]", syms)
	}
	if got := idx.ResolveSymbols("nonexistent"); got != nil {
		t.Errorf("ResolveSymbols(nonexistent) = %v, want nil", got)
	}
}

func TestNoAnnotationsIsEmptyIndex(t *testing.T) {
	m := ir.NewModule("m")
	idx := Build(m)
	if idx.ToDuplicate("anything") || idx.Excluded("anything") {
		t.Error("empty index should recognize no annotations")
	}
	if _, ok := idx.RuntimeSigGlobal(); ok {
		t.Error("empty index should have no runtime_sig global")
	}
}
