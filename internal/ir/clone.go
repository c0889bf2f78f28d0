package ir

// ValueMap tracks the old-value -> new-value correspondence built up
// while cloning a function, so that operands referring to values
// defined earlier in the same clone resolve to the cloned copies
// instead of the originals.
type ValueMap map[*Value]*Value

func (vm ValueMap) remap(v *Value) *Value {
	if v == nil {
		return nil
	}
	if nv, ok := vm[v]; ok {
		return nv
	}
	return v // free variable (global, or value outside the cloned region): keep as-is
}

// CloneFunction duplicates f's entire body into a new function named
// newName with an independent value/block numbering space. It is the
// primitive RBR's caller-update step and EDDI's per-function
// duplication both build on: both need a
// function-shaped copy they can then mutate (changed signature,
// renamed shadow operands) without perturbing the original.
//
// Blocks, instructions, and PHI incoming edges are remapped through vm
// so the clone's internal structure is entirely self-contained; only
// references to globals and to other functions point back at the
// original module's objects.
func CloneFunction(f *Function, newName string) (*Function, ValueMap) {
	clone := &Function{
		Name:       newName,
		DebugName:  f.DebugName,
		ReturnType: f.ReturnType,
		VarArgs:    f.VarArgs,
		External:   f.External,
		Linkage:    f.Linkage,
		NoInline:   f.NoInline,
		Effects:    f.Effects,
	}

	vm := ValueMap{}
	for _, p := range f.Params {
		np := clone.AddParam(p.Name, p.Type, append([]ParamAttr{}, p.Attrs...)...)
		vm[p.Value] = np.Value
	}

	blockMap := map[*BasicBlock]*BasicBlock{}
	for _, b := range f.Blocks {
		nb := clone.AddBlock(b.Label)
		blockMap[b] = nb
	}

	for _, b := range f.Blocks {
		nb := blockMap[b]
		for _, inst := range b.Instructions {
			ninst := inst.Clone(clone.NextValueID())
			if res := inst.Result(); res != nil {
				nv := clone.NewValue(res.Name, res.Type)
				setResult(ninst, nv)
				vm[res] = nv
			}
			remapOperands(ninst, vm)
			if phi, ok := ninst.(*PhiInstruction); ok {
				for i, edge := range phi.Incoming {
					phi.Incoming[i] = PhiEdge{Pred: blockMap[edge.Pred], Value: edge.Value}
				}
			}
			nb.Append(ninst)
		}
	}

	for _, b := range f.Blocks {
		nb := blockMap[b]
		nterm := cloneTerminator(b.Term, blockMap)
		if res := b.Term.Result(); res != nil {
			nv := clone.NewValue(res.Name, res.Type)
			setResult(nterm, nv)
			vm[res] = nv
		}
		remapOperands(nterm, vm)
		nb.SetTerminator(nterm)
	}

	return clone, vm
}

// SetResult rebinds inst's result field to v. Exported for passes (EDDI's
// per-instruction duplicator) that build a single shadow instruction at a
// time rather than cloning a whole function and need the same result-field
// rebinding CloneFunction uses internally.
func SetResult(inst Instruction, v *Value) { setResult(inst, v) }

// setResult rebinds inst's result field to a freshly allocated Value.
// Instruction.Clone deliberately leaves Res pointing at the original's
// value (callers decide whether a fresh identity is wanted); cloning a
// whole function always wants one, since two distinct instructions must
// never share a single SSA value definition.
func setResult(inst Instruction, v *Value) {
	switch i := inst.(type) {
	case *AllocaInstruction:
		i.Res = v
	case *LoadInstruction:
		i.Res = v
	case *BinaryInstruction:
		i.Res = v
	case *UnaryInstruction:
		i.Res = v
	case *CompareInstruction:
		i.Res = v
	case *GEPInstruction:
		i.Res = v
	case *PhiInstruction:
		i.Res = v
	case *SelectInstruction:
		i.Res = v
	case *InsertValueInstruction:
		i.Res = v
	case *CallInstruction:
		i.Res = v
	case *AtomicRMWInstruction:
		i.Res = v
	case *CmpXchgInstruction:
		i.Res = v
	case *ConstInstruction:
		i.Res = v
	case *InvokeTerminator:
		i.Res = v
	}
}

func remapOperands(inst Instruction, vm ValueMap) {
	ops := inst.Operands()
	for i, op := range ops {
		inst.SetOperand(i, vm.remap(op))
	}
}

func cloneTerminator(t Terminator, blockMap map[*BasicBlock]*BasicBlock) Terminator {
	switch term := t.(type) {
	case *ReturnTerminator:
		return &ReturnTerminator{Value: term.Value}
	case *JumpTerminator:
		return &JumpTerminator{Target: blockMap[term.Target]}
	case *BranchTerminator:
		return &BranchTerminator{Condition: term.Condition, TrueBlock: blockMap[term.TrueBlock], FalseBlock: blockMap[term.FalseBlock]}
	case *SwitchTerminator:
		cases := make([]SwitchCase, len(term.Cases))
		for i, c := range term.Cases {
			cases[i] = SwitchCase{Value: c.Value, Dest: blockMap[c.Dest]}
		}
		var def *BasicBlock
		if term.Default != nil {
			def = blockMap[term.Default]
		}
		return &SwitchTerminator{Condition: term.Condition, Cases: cases, Default: def}
	case *IndirectBrTerminator:
		dests := make([]*BasicBlock, len(term.Possible))
		for i, d := range term.Possible {
			dests[i] = blockMap[d]
		}
		return &IndirectBrTerminator{Address: term.Address, Possible: dests}
	case *InvokeTerminator:
		var normal, unwind *BasicBlock
		if term.Normal != nil {
			normal = blockMap[term.Normal]
		}
		if term.Unwind != nil {
			unwind = blockMap[term.Unwind]
		}
		return &InvokeTerminator{Res: term.Res, Callee: term.Callee, CalleeValue: term.CalleeValue, Args: append([]*Value{}, term.Args...), Normal: normal, Unwind: unwind}
	case *UnreachableTerminator:
		return &UnreachableTerminator{}
	default:
		panic("ir: cloneTerminator: unknown terminator kind")
	}
}
