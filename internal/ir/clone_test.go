package ir

import "testing"

func buildAddFunction() *Function {
	fn := &Function{Name: "add", ReturnType: I32()}
	p1 := fn.AddParam("a", I32())
	p2 := fn.AddParam("b", I32())
	b := NewBuilder(fn)
	sum := b.Binary("sum", OpAdd, I32(), p1.Value, p2.Value)
	b.Ret(sum)
	return fn
}

func TestCloneFunctionIndependentValues(t *testing.T) {
	orig := buildAddFunction()
	clone, vm := CloneFunction(orig, "add_shadow")

	if clone.Name != "add_shadow" {
		t.Fatalf("clone name = %s, want add_shadow", clone.Name)
	}
	if len(clone.Params) != len(orig.Params) {
		t.Fatalf("clone has %d params, want %d", len(clone.Params), len(orig.Params))
	}
	for i, p := range orig.Params {
		if vm[p.Value] == p.Value {
			t.Fatalf("param %d was not remapped to a fresh value", i)
		}
	}

	origEntry := orig.Entry()
	cloneEntry := clone.Entry()
	if len(cloneEntry.Instructions) != len(origEntry.Instructions) {
		t.Fatalf("clone entry has %d instructions, want %d", len(cloneEntry.Instructions), len(origEntry.Instructions))
	}

	origSum := origEntry.Instructions[0].Result()
	cloneSum := cloneEntry.Instructions[0].Result()
	if origSum == cloneSum {
		t.Fatal("clone's sum result should be a distinct Value from the original's")
	}
	if cloneSum.DefInst != cloneEntry.Instructions[0] {
		t.Fatal("clone's sum value should be defined by the cloned instruction, not the original")
	}

	cloneBin := cloneEntry.Instructions[0].(*BinaryInstruction)
	if cloneBin.Left == origEntry.Instructions[0].(*BinaryInstruction).Left {
		t.Fatal("clone's operands should be remapped to the cloned parameter values")
	}
}

func TestCloneFunctionBlockTopologyPreserved(t *testing.T) {
	fn := &Function{Name: "branchy", ReturnType: I32()}
	b := NewBuilder(fn)
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

	clone, _ := CloneFunction(fn, "branchy_shadow")
	if len(clone.Blocks) != len(fn.Blocks) {
		t.Fatalf("clone has %d blocks, want %d", len(clone.Blocks), len(fn.Blocks))
	}

	cloneJoin := clone.BlockByLabel("join")
	if cloneJoin == nil {
		t.Fatal("clone should have a join block")
	}
	clonePhi := cloneJoin.Instructions[0].(*PhiInstruction)
	if len(clonePhi.Incoming) != 2 {
		t.Fatalf("cloned phi has %d incoming edges, want 2", len(clonePhi.Incoming))
	}
	for _, edge := range clonePhi.Incoming {
		if edge.Pred.Func != clone {
			t.Fatal("cloned phi incoming predecessor should belong to the clone, not the original function")
		}
	}
}
