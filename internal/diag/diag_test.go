package diag

import (
	"errors"
	"strings"
	"testing"

	"aspis/internal/ir"
)

func TestFatalWrapsCause(t *testing.T) {
	cause := errors.New("boom")
	fe := Fatal("eddi-verify", nil, nil, cause)
	if !strings.Contains(fe.Error(), "boom") {
		t.Errorf("Error() = %q, want it to contain %q", fe.Error(), "boom")
	}
	if !errors.Is(fe, cause) {
		t.Error("expected Unwrap chain to reach the original cause")
	}
}

func TestNewWarningMessage(t *testing.T) {
	w := NewWarning("rasm-verify", "unknown annotation %q", "frobnicate")
	if !strings.Contains(w.Error(), "frobnicate") {
		t.Errorf("Error() = %q, want it to mention the annotation", w.Error())
	}
}

func TestFindDebugLocationOwnBlock(t *testing.T) {
	fn := &ir.Function{Name: "f", ReturnType: ir.I32()}
	b := fn.AddBlock("entry")
	a := b.Append
	loc := &ir.DebugLocation{File: "a.go", Line: 3}
	alloc := &ir.AllocaInstruction{Elem: ir.I32()}
	alloc.SetDebugLoc(loc)
	a(alloc)

	load := &ir.LoadInstruction{}
	a(load)

	got := FindDebugLocation(load)
	if got != loc {
		t.Fatalf("FindDebugLocation = %v, want the alloca's location", got)
	}
}

func TestFindDebugLocationWalksPredecessors(t *testing.T) {
	fn := &ir.Function{Name: "f", ReturnType: ir.Void()}
	entry := fn.AddBlock("entry")
	mid := fn.AddBlock("mid")
	tail := fn.AddBlock("tail")

	loc := &ir.DebugLocation{File: "b.go", Line: 7}
	marker := &ir.AllocaInstruction{Elem: ir.I32()}
	marker.SetDebugLoc(loc)
	entry.Append(marker)
	entry.SetTerminator(&ir.JumpTerminator{Target: mid})

	mid.SetTerminator(&ir.JumpTerminator{Target: tail})

	target := &ir.UnreachableTerminator{}
	tail.SetTerminator(target)

	got := FindDebugLocation(target)
	if got != loc {
		t.Fatalf("FindDebugLocation = %v, want the entry block's marker location", got)
	}
}

func TestFindDebugLocationFallsBackToLastTerminator(t *testing.T) {
	fn := &ir.Function{Name: "f", ReturnType: ir.Void()}
	entry := fn.AddBlock("entry")
	loc := &ir.DebugLocation{File: "c.go", Line: 1}
	term := &ir.UnreachableTerminator{}
	term.SetDebugLoc(loc)
	entry.SetTerminator(term)

	orphanBlock := fn.AddBlock("orphan")
	orphanTerm := &ir.UnreachableTerminator{}
	orphanBlock.SetTerminator(orphanTerm)

	got := FindDebugLocation(orphanTerm)
	if got != loc {
		t.Fatalf("FindDebugLocation = %v, want fallback to entry's terminator location", got)
	}
}
