package ir

// BasicBlock is an ordered list of non-terminator instructions ending in
// exactly one Terminator. Predecessors/Successors are
// maintained incrementally by the block-mutation helpers below rather
// than recomputed from scratch, since passes query the CFG constantly
// while rewriting it.
type BasicBlock struct {
	Label        string
	Func         *Function
	Instructions []Instruction
	Term         Terminator
	Predecessors []*BasicBlock
	Successors   []*BasicBlock
}

// Append adds a non-terminator instruction at the end of the block's
// instruction list (before the terminator, which is tracked separately).
func (b *BasicBlock) Append(inst Instruction) {
	inst.setBlock(b)
	bindResult(inst, b)
	b.Instructions = append(b.Instructions, inst)
}

// bindResult points an instruction's result Value back at its defining
// instruction/block, so DefInst/DefBlock stay accurate as instructions
// move between blocks (splits, clones, sinking).
func bindResult(inst Instruction, b *BasicBlock) {
	if res := inst.Result(); res != nil {
		res.DefBlock = b
		res.DefInst = inst
	}
}

// Prepend inserts a non-terminator instruction at the very front of the
// block, after any existing leading PHI nodes -- used to accumulate the
// shadow-alloca prologue when duplicated allocas are not interleaved
// with their originals.
func (b *BasicBlock) Prepend(inst Instruction) {
	inst.setBlock(b)
	bindResult(inst, b)
	idx := b.firstNonPhiIndex()
	b.Instructions = append(b.Instructions, nil)
	copy(b.Instructions[idx+1:], b.Instructions[idx:])
	b.Instructions[idx] = inst
}

// InsertAfter inserts newInst immediately after existing in the
// instruction list. existing must already be in the block (or be nil,
// meaning "insert at the front").
func (b *BasicBlock) InsertAfter(existing, newInst Instruction) {
	newInst.setBlock(b)
	bindResult(newInst, b)
	if existing == nil {
		b.Instructions = append([]Instruction{newInst}, b.Instructions...)
		return
	}
	for i, inst := range b.Instructions {
		if inst == existing {
			b.Instructions = append(b.Instructions, nil)
			copy(b.Instructions[i+2:], b.Instructions[i+1:])
			b.Instructions[i+1] = newInst
			return
		}
	}
	b.Instructions = append(b.Instructions, newInst)
}

// InsertBefore inserts newInst immediately before existing.
func (b *BasicBlock) InsertBefore(existing, newInst Instruction) {
	newInst.setBlock(b)
	bindResult(newInst, b)
	for i, inst := range b.Instructions {
		if inst == existing {
			b.Instructions = append(b.Instructions, nil)
			copy(b.Instructions[i+1:], b.Instructions[i:])
			b.Instructions[i] = newInst
			return
		}
	}
	b.Instructions = append(b.Instructions, newInst)
}

// Remove deletes inst from the block's instruction list. Callers must
// have already rerouted any remaining uses of inst's result (e.g. via
// ReplaceAllUsesWith) -- Remove does not touch the use lists of inst's
// own operands either, since callers that remove an instruction as part
// of replacing it with something else usually want to reuse those uses.
func (b *BasicBlock) Remove(inst Instruction) {
	for i, cur := range b.Instructions {
		if cur == inst {
			b.Instructions = append(b.Instructions[:i], b.Instructions[i+1:]...)
			return
		}
	}
}

// Replace swaps old for repl at old's position in the instruction list.
// Used when a call is rewritten to target a different callee (duplicated
// or out-pointer signature) but keeps its place in program order.
func (b *BasicBlock) Replace(old, repl Instruction) {
	for i, cur := range b.Instructions {
		if cur == old {
			repl.setBlock(b)
			bindResult(repl, b)
			b.Instructions[i] = repl
			return
		}
	}
}

func (b *BasicBlock) firstNonPhiIndex() int {
	for i, inst := range b.Instructions {
		if _, ok := inst.(*PhiInstruction); !ok {
			return i
		}
	}
	return len(b.Instructions)
}

// SetTerminator installs term as the block's terminator and wires the
// Successors slice (and each successor's Predecessors) from it.
func (b *BasicBlock) SetTerminator(term Terminator) {
	if b.Term != nil {
		b.unlinkSuccessors()
	}
	term.setBlock(b)
	b.Term = term
	b.linkSuccessors()
}

func (b *BasicBlock) linkSuccessors() {
	b.Successors = nil
	for _, s := range b.Term.Successors() {
		if s == nil {
			continue
		}
		b.Successors = append(b.Successors, s)
		s.addPredecessor(b)
	}
}

func (b *BasicBlock) unlinkSuccessors() {
	for _, s := range b.Successors {
		s.removePredecessor(b)
	}
	b.Successors = nil
}

func (b *BasicBlock) addPredecessor(p *BasicBlock) {
	for _, pred := range b.Predecessors {
		if pred == p {
			return
		}
	}
	b.Predecessors = append(b.Predecessors, p)
}

func (b *BasicBlock) removePredecessor(p *BasicBlock) {
	for i, pred := range b.Predecessors {
		if pred == p {
			b.Predecessors = append(b.Predecessors[:i], b.Predecessors[i+1:]...)
			return
		}
	}
}

// ReplacePredecessor updates every PHI in b so that incoming edges from
// oldPred now come from newPred, and fixes up the Predecessors list.
// Used after a verification block is interposed between oldPred and b.
func (b *BasicBlock) ReplacePredecessor(oldPred, newPred *BasicBlock) {
	for _, inst := range b.Instructions {
		if phi, ok := inst.(*PhiInstruction); ok {
			phi.ReplacePredecessor(oldPred, newPred)
		}
	}
	for i, pred := range b.Predecessors {
		if pred == oldPred {
			b.Predecessors[i] = newPred
			return
		}
	}
}

// SplitBefore splits the block so that the instruction at or after
// target starts a brand-new successor block; everything up to but
// excluding that instruction stays in b. The new block inherits b's
// terminator and successors; b gets an unconditional jump to the new
// block. Returns the new successor block. This is the primitive both
// consistency-check insertion and control-flow verification blocks
// are built on.
func (b *BasicBlock) SplitBefore(target Instruction, newLabel string) *BasicBlock {
	idx := -1
	for i, inst := range b.Instructions {
		if inst == target {
			idx = i
			break
		}
	}
	tail := b.Instructions
	if idx >= 0 {
		tail = b.Instructions[idx:]
		b.Instructions = b.Instructions[:idx]
	} else {
		tail = nil
	}

	succ := &BasicBlock{Label: newLabel, Func: b.Func}
	for _, inst := range tail {
		succ.Append(inst)
	}
	b.unlinkSuccessors()
	succ.SetTerminator(b.Term)

	// Rewire PHIs in the old successors to point at succ instead of b.
	for _, old := range succ.Successors {
		old.ReplacePredecessor(b, succ)
	}

	jmp := &JumpTerminator{Target: succ}
	b.Term = nil
	b.SetTerminator(jmp)

	b.Func.insertBlockAfter(b, succ)
	return succ
}

// Phis returns the leading PHI instructions of the block, in order.
func (b *BasicBlock) Phis() []*PhiInstruction {
	var phis []*PhiInstruction
	for _, inst := range b.Instructions {
		if phi, ok := inst.(*PhiInstruction); ok {
			phis = append(phis, phi)
			continue
		}
		break
	}
	return phis
}

// AllInstructions returns the non-terminator instructions followed by
// the terminator, in program order -- the iteration order EDDI's
// per-instruction duplication walk requires.
func (b *BasicBlock) AllInstructions() []Instruction {
	all := make([]Instruction, 0, len(b.Instructions)+1)
	all = append(all, b.Instructions...)
	if b.Term != nil {
		all = append(all, b.Term)
	}
	return all
}
