package ir

import "fmt"

// --- ReturnTerminator ---------------------------------------------------

type ReturnTerminator struct {
	base
	Value *Value // nil for a void return
}

func (i *ReturnTerminator) Result() *Value { return nil }
func (i *ReturnTerminator) Operands() []*Value {
	if i.Value != nil {
		return []*Value{i.Value}
	}
	return nil
}
func (i *ReturnTerminator) SetOperand(idx int, v *Value) {
	if idx == 0 {
		i.Value = v
	}
}
func (i *ReturnTerminator) IsTerminator() bool      { return true }
func (i *ReturnTerminator) Opcode() string          { return "ret" }
func (i *ReturnTerminator) Successors() []*BasicBlock { return nil }
func (i *ReturnTerminator) SetSuccessor(int, *BasicBlock) {}
func (i *ReturnTerminator) String() string {
	if i.Value == nil {
		return "ret void"
	}
	return fmt.Sprintf("ret %s", i.Value)
}
func (i *ReturnTerminator) Clone(newID int) Instruction {
	c := *i
	c.id = newID
	return &c
}

// --- JumpTerminator (unconditional branch) ------------------------------

type JumpTerminator struct {
	base
	Target *BasicBlock
}

func (i *JumpTerminator) Result() *Value             { return nil }
func (i *JumpTerminator) Operands() []*Value         { return nil }
func (i *JumpTerminator) SetOperand(int, *Value)     {}
func (i *JumpTerminator) IsTerminator() bool          { return true }
func (i *JumpTerminator) Opcode() string              { return "jmp" }
func (i *JumpTerminator) Successors() []*BasicBlock   { return []*BasicBlock{i.Target} }
func (i *JumpTerminator) SetSuccessor(idx int, bb *BasicBlock) {
	if idx == 0 {
		i.Target = bb
	}
}
func (i *JumpTerminator) String() string { return fmt.Sprintf("jmp %s", i.Target.Label) }
func (i *JumpTerminator) Clone(newID int) Instruction {
	c := *i
	c.id = newID
	return &c
}

// --- BranchTerminator (conditional branch) ------------------------------

type BranchTerminator struct {
	base
	Condition  *Value
	TrueBlock  *BasicBlock
	FalseBlock *BasicBlock
}

func (i *BranchTerminator) Result() *Value     { return nil }
func (i *BranchTerminator) Operands() []*Value { return []*Value{i.Condition} }
func (i *BranchTerminator) SetOperand(idx int, v *Value) {
	if idx == 0 {
		i.Condition = v
	}
}
func (i *BranchTerminator) IsTerminator() bool { return true }
func (i *BranchTerminator) Opcode() string     { return "br" }
func (i *BranchTerminator) Successors() []*BasicBlock {
	return []*BasicBlock{i.TrueBlock, i.FalseBlock}
}
func (i *BranchTerminator) SetSuccessor(idx int, bb *BasicBlock) {
	switch idx {
	case 0:
		i.TrueBlock = bb
	case 1:
		i.FalseBlock = bb
	}
}
func (i *BranchTerminator) String() string {
	return fmt.Sprintf("br %s, %s, %s", i.Condition, i.TrueBlock.Label, i.FalseBlock.Label)
}
func (i *BranchTerminator) Clone(newID int) Instruction {
	c := *i
	c.id = newID
	return &c
}

// --- SwitchTerminator -----------------------------------------------------

// SwitchCase pairs a matched constant value with its destination block.
type SwitchCase struct {
	Value *Value
	Dest  *BasicBlock
}

// SwitchTerminator models a multi-way branch. CFC requires
// switches with more than two targets to have been lowered to chained
// branches by an earlier pass; RASM/RACFED reject anything wider.
type SwitchTerminator struct {
	base
	Condition *Value
	Cases     []SwitchCase
	Default   *BasicBlock
}

func (i *SwitchTerminator) Result() *Value { return nil }
func (i *SwitchTerminator) Operands() []*Value {
	ops := []*Value{i.Condition}
	for _, c := range i.Cases {
		ops = append(ops, c.Value)
	}
	return ops
}
func (i *SwitchTerminator) SetOperand(idx int, v *Value) {
	if idx == 0 {
		i.Condition = v
		return
	}
	if idx-1 < len(i.Cases) {
		i.Cases[idx-1].Value = v
	}
}
func (i *SwitchTerminator) IsTerminator() bool { return true }
func (i *SwitchTerminator) Opcode() string     { return "switch" }
func (i *SwitchTerminator) Successors() []*BasicBlock {
	succs := make([]*BasicBlock, 0, len(i.Cases)+1)
	for _, c := range i.Cases {
		succs = append(succs, c.Dest)
	}
	return append(succs, i.Default)
}
func (i *SwitchTerminator) SetSuccessor(idx int, bb *BasicBlock) {
	if idx < len(i.Cases) {
		i.Cases[idx].Dest = bb
		return
	}
	if idx == len(i.Cases) {
		i.Default = bb
	}
}
func (i *SwitchTerminator) String() string {
	return fmt.Sprintf("switch %s, default %s, cases %v", i.Condition, i.Default.Label, i.Cases)
}
func (i *SwitchTerminator) Clone(newID int) Instruction {
	c := *i
	c.id = newID
	c.Cases = append([]SwitchCase(nil), i.Cases...)
	return &c
}

// --- IndirectBrTerminator --------------------------------------------------

// IndirectBrTerminator jumps to a runtime-computed block address. Like
// wide switches, CFC rejects these outright.
type IndirectBrTerminator struct {
	base
	Address   *Value
	Possible  []*BasicBlock
}

func (i *IndirectBrTerminator) Result() *Value             { return nil }
func (i *IndirectBrTerminator) Operands() []*Value         { return []*Value{i.Address} }
func (i *IndirectBrTerminator) SetOperand(idx int, v *Value) {
	if idx == 0 {
		i.Address = v
	}
}
func (i *IndirectBrTerminator) IsTerminator() bool        { return true }
func (i *IndirectBrTerminator) Opcode() string            { return "indirectbr" }
func (i *IndirectBrTerminator) Successors() []*BasicBlock { return i.Possible }
func (i *IndirectBrTerminator) SetSuccessor(idx int, bb *BasicBlock) {
	if idx < len(i.Possible) {
		i.Possible[idx] = bb
	}
}
func (i *IndirectBrTerminator) String() string {
	return fmt.Sprintf("indirectbr %s, %v", i.Address, i.Possible)
}
func (i *IndirectBrTerminator) Clone(newID int) Instruction {
	c := *i
	c.id = newID
	c.Possible = append([]*BasicBlock(nil), i.Possible...)
	return &c
}

// --- InvokeTerminator -------------------------------------------------------

// InvokeTerminator is a call with exception-dispatch edges: Normal is
// taken on ordinary return, Unwind on a propagating exception. CFC
// treats it as a one-successor terminator for signature-adjustment
// purposes: the unwind edge carries no signature
// guarantee.
type InvokeTerminator struct {
	base
	Res         *Value
	Callee      *Function
	CalleeValue *Value
	Args        []*Value
	Normal      *BasicBlock
	Unwind      *BasicBlock
}

func (i *InvokeTerminator) Result() *Value { return i.Res }
func (i *InvokeTerminator) Operands() []*Value {
	if i.CalleeValue != nil {
		return append([]*Value{i.CalleeValue}, i.Args...)
	}
	return append([]*Value(nil), i.Args...)
}
func (i *InvokeTerminator) SetOperand(idx int, v *Value) {
	if i.CalleeValue != nil {
		if idx == 0 {
			i.CalleeValue = v
			return
		}
		idx--
	}
	if idx >= 0 && idx < len(i.Args) {
		i.Args[idx] = v
	}
}
func (i *InvokeTerminator) IsTerminator() bool { return true }
func (i *InvokeTerminator) Opcode() string     { return "invoke" }
func (i *InvokeTerminator) Successors() []*BasicBlock {
	return []*BasicBlock{i.Normal, i.Unwind}
}
func (i *InvokeTerminator) SetSuccessor(idx int, bb *BasicBlock) {
	switch idx {
	case 0:
		i.Normal = bb
	case 1:
		i.Unwind = bb
	}
}
func (i *InvokeTerminator) CalleeName() string {
	if i.Callee != nil {
		return i.Callee.Name
	}
	return "<indirect>"
}
func (i *InvokeTerminator) String() string {
	pfx := ""
	if i.Res != nil {
		pfx = i.Res.String() + " = "
	}
	return fmt.Sprintf("%sinvoke %s(%v) to %s unwind %s", pfx, i.CalleeName(), i.Args, i.Normal.Label, i.Unwind.Label)
}
func (i *InvokeTerminator) Clone(newID int) Instruction {
	c := *i
	c.id = newID
	c.Args = append([]*Value(nil), i.Args...)
	return &c
}

// --- UnreachableTerminator --------------------------------------------------

// UnreachableTerminator ends every error block: a call to the fault handler followed by unreachable.
type UnreachableTerminator struct {
	base
}

func (i *UnreachableTerminator) Result() *Value             { return nil }
func (i *UnreachableTerminator) Operands() []*Value         { return nil }
func (i *UnreachableTerminator) SetOperand(int, *Value)     {}
func (i *UnreachableTerminator) IsTerminator() bool         { return true }
func (i *UnreachableTerminator) Opcode() string             { return "unreachable" }
func (i *UnreachableTerminator) Successors() []*BasicBlock  { return nil }
func (i *UnreachableTerminator) SetSuccessor(int, *BasicBlock) {}
func (i *UnreachableTerminator) String() string              { return "unreachable" }
func (i *UnreachableTerminator) Clone(newID int) Instruction {
	c := *i
	c.id = newID
	return &c
}
