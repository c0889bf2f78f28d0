package ir

import "testing"

func TestSplitBeforeMovesTailToNewBlock(t *testing.T) {
	fn := &Function{Name: "f", ReturnType: I32()}
	b := NewBuilder(fn)
	entry := fn.Entry()

	c1 := b.Const("c1", I32(), 1)
	c2 := b.Const("c2", I32(), 2)
	sum := b.Binary("sum", OpAdd, I32(), c1, c2)
	b.Ret(sum)

	sumInst := sum.DefInst
	succ := entry.SplitBefore(sumInst, "check")

	if len(entry.Instructions) != 2 {
		t.Fatalf("entry has %d instructions after split, want 2 (c1, c2)", len(entry.Instructions))
	}
	if len(succ.Instructions) != 1 {
		t.Fatalf("succ has %d instructions, want 1 (sum)", len(succ.Instructions))
	}
	if _, ok := entry.Term.(*JumpTerminator); !ok {
		t.Fatal("entry's terminator should now be an unconditional jump to succ")
	}
	if ret, ok := succ.Term.(*ReturnTerminator); !ok || ret.Value != sum {
		t.Fatal("succ should inherit the original return terminator")
	}
	if len(entry.Successors) != 1 || entry.Successors[0] != succ {
		t.Fatal("entry's only successor should be succ")
	}
	if len(succ.Predecessors) != 1 || succ.Predecessors[0] != entry {
		t.Fatal("succ's only predecessor should be entry")
	}
}

func TestSplitBeforeRewiresPhisInOldSuccessors(t *testing.T) {
	fn := &Function{Name: "f", ReturnType: I32()}
	b := NewBuilder(fn)
	entry := fn.Entry()
	join := fn.AddBlock("join")

	c1 := b.Const("c1", I32(), 1)
	b.SetBlock(entry)
	b.Jump(join)

	b.SetBlock(join)
	phi := b.Phi("p", I32())
	b.AddIncoming(phi, entry, c1)
	b.Ret(phi.Res)

	succ := entry.SplitBefore(c1.DefInst, "shadow")

	if phi.Incoming[0].Pred != succ {
		t.Fatalf("join's phi should now list succ as predecessor, got %v", phi.Incoming[0].Pred)
	}
	if len(join.Predecessors) != 1 || join.Predecessors[0] != succ {
		t.Fatal("join's Predecessors list should be rewired to succ")
	}
}

func TestReplacePredecessorUpdatesAllIncomingPhis(t *testing.T) {
	fn := &Function{Name: "f", ReturnType: I32()}
	left := fn.AddBlock("left")
	mid := fn.AddBlock("mid")
	join := fn.AddBlock("join")

	v := fn.NewValue("v", I32())
	phi := &PhiInstruction{Res: fn.NewValue("p", I32()), Incoming: []PhiEdge{{Pred: left, Value: v}}}
	join.Append(phi)
	join.addPredecessor(left)

	join.ReplacePredecessor(left, mid)

	if phi.Incoming[0].Pred != mid {
		t.Fatal("phi incoming predecessor should be updated to mid")
	}
	if len(join.Predecessors) != 1 || join.Predecessors[0] != mid {
		t.Fatal("join.Predecessors should list mid, not left")
	}
}
