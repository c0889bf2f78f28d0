package ir

import (
	"strings"
	"testing"
)

func TestBuilderAllocaLoadStore(t *testing.T) {
	fn := &Function{Name: "f", ReturnType: I32()}
	b := NewBuilder(fn)

	addr := b.Alloca("x", I32())
	if addr.Type.String() != "i32*" {
		t.Fatalf("alloca result type = %s, want i32*", addr.Type)
	}

	c := b.Const("c", I32(), 42)
	b.Store(addr, c)
	loaded := b.Load("v", I32(), addr)
	b.Ret(loaded)

	entry := fn.Entry()
	if len(entry.Instructions) != 4 {
		t.Fatalf("entry has %d instructions, want 4 (alloca, const, store, load)", len(entry.Instructions))
	}
}

func TestBuilderUsesAreRecorded(t *testing.T) {
	fn := &Function{Name: "f", ReturnType: I32()}
	b := NewBuilder(fn)

	a := b.Const("a", I32(), 1)
	bb := b.Const("b", I32(), 2)
	sum := b.Binary("sum", OpAdd, I32(), a, bb)
	b.Ret(sum)

	if len(a.Uses) != 1 {
		t.Fatalf("a has %d uses, want 1", len(a.Uses))
	}
	if a.Uses[0].User != sum.DefInst {
		t.Fatal("a's use should point back at the binary instruction that defines sum")
	}
}

func TestBuilderBranchWiresSuccessors(t *testing.T) {
	fn := &Function{Name: "f", ReturnType: Void()}
	b := NewBuilder(fn)

	thenBB := fn.AddBlock("then")
	elseBB := fn.AddBlock("else")

	cond := b.Const("cond", I1(), true)
	b.Branch(cond, thenBB, elseBB)

	entry := fn.Entry()
	if len(entry.Successors) != 2 {
		t.Fatalf("entry has %d successors, want 2", len(entry.Successors))
	}
	if len(thenBB.Predecessors) != 1 || thenBB.Predecessors[0] != entry {
		t.Fatal("then block should list entry as its sole predecessor")
	}
	if len(elseBB.Predecessors) != 1 || elseBB.Predecessors[0] != entry {
		t.Fatal("else block should list entry as its sole predecessor")
	}
}

func TestBuilderPhiIncoming(t *testing.T) {
	fn := &Function{Name: "f", ReturnType: I32()}
	b := NewBuilder(fn)
	entry := fn.Entry()

	left := fn.AddBlock("left")
	right := fn.AddBlock("right")
	join := fn.AddBlock("join")

	cond := b.Const("cond", I1(), true)
	b.Branch(cond, left, right)

	b.SetBlock(left)
	lv := b.Const("lv", I32(), 1)
	b.Jump(join)

	b.SetBlock(right)
	rv := b.Const("rv", I32(), 2)
	b.Jump(join)

	b.SetBlock(join)
	phi := b.Phi("p", I32())
	b.AddIncoming(phi, left, lv)
	b.AddIncoming(phi, right, rv)
	b.Ret(phi.Res)

	if len(phi.Incoming) != 2 {
		t.Fatalf("phi has %d incoming edges, want 2", len(phi.Incoming))
	}
	if phi.Incoming[0].Pred != left || phi.Incoming[1].Pred != right {
		t.Fatal("phi incoming edges should preserve insertion order")
	}
	_ = entry
}

func TestPrintFunctionRoundTripsLabelsAndOpcodes(t *testing.T) {
	fn := &Function{Name: "add", ReturnType: I32()}
	p1 := fn.AddParam("a", I32())
	p2 := fn.AddParam("b", I32())
	b := NewBuilder(fn)
	sum := b.Binary("sum", OpAdd, I32(), p1.Value, p2.Value)
	b.Ret(sum)

	out := PrintFunction(fn)
	for _, want := range []string{"define i32 @add", "entry:", "add %a, %b", "ret %sum"} {
		if !strings.Contains(out, want) {
			t.Errorf("printed function missing %q, got:\n%s", want, out)
		}
	}
}
