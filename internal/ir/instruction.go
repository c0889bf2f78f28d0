package ir

import "fmt"

// DebugLocation is the optional source-location token carried by an
// instruction. Synthesized instructions either copy one from a
// neighboring instruction or carry none at all; see internal/diag for
// the bounded-BFS fallback search used to recover one when needed.
type DebugLocation struct {
	File string
	Line int
	Col  int
}

// Instruction is the common surface every non-terminator and terminator
// implements. Passes walk instructions purely through this interface so
// that EDDI, RBR and CFC never need to know about every concrete opcode.
type Instruction interface {
	ID() int
	Result() *Value
	Operands() []*Value
	SetOperand(i int, v *Value)
	Block() *BasicBlock
	setBlock(*BasicBlock)
	IsTerminator() bool
	Opcode() string
	String() string
	DebugLoc() *DebugLocation
	SetDebugLoc(*DebugLocation)
	// Clone returns a detached copy of the instruction with a fresh ID,
	// the same opcode-specific fields, and operands still pointing at the
	// ORIGINAL operands (callers rewire them via SetOperand as needed).
	Clone(newID int) Instruction
}

// base is embedded by every concrete instruction to avoid re-implementing
// the bookkeeping fields on each of them.
type base struct {
	id    int
	block *BasicBlock
	loc   *DebugLocation
}

func (b *base) ID() int                       { return b.id }
func (b *base) Block() *BasicBlock             { return b.block }
func (b *base) setBlock(bb *BasicBlock)        { b.block = bb }
func (b *base) DebugLoc() *DebugLocation       { return b.loc }
func (b *base) SetDebugLoc(l *DebugLocation)   { b.loc = l }

// Terminator is implemented by every instruction that may end a basic
// block; Successors enumerates every control-flow-graph edge it owns,
// including the exceptional (unwind) edge of Invoke.
type Terminator interface {
	Instruction
	Successors() []*BasicBlock
	SetSuccessor(i int, bb *BasicBlock)
}

// --- AllocaInstruction ---------------------------------------------------

type AllocaInstruction struct {
	base
	Res    *Value
	Elem   Type
	// ExceptionAlloca marks allocas identified as feeding a
	// __cxa_begin_catch-style landing-pad store; EDDI never duplicates
	// these.
	ExceptionAlloca bool
}

func (i *AllocaInstruction) Result() *Value       { return i.Res }
func (i *AllocaInstruction) Operands() []*Value   { return nil }
func (i *AllocaInstruction) SetOperand(int, *Value) {}
func (i *AllocaInstruction) IsTerminator() bool    { return false }
func (i *AllocaInstruction) Opcode() string        { return "alloca" }
func (i *AllocaInstruction) String() string {
	return fmt.Sprintf("%s = alloca %s", i.Res, i.Elem)
}
func (i *AllocaInstruction) Clone(newID int) Instruction {
	c := *i
	c.id = newID
	return &c
}

// --- LoadInstruction ------------------------------------------------------

type LoadInstruction struct {
	base
	Res     *Value
	Address *Value
	Volatile bool
}

func (i *LoadInstruction) Result() *Value     { return i.Res }
func (i *LoadInstruction) Operands() []*Value { return []*Value{i.Address} }
func (i *LoadInstruction) SetOperand(idx int, v *Value) {
	if idx == 0 {
		i.Address = v
	}
}
func (i *LoadInstruction) IsTerminator() bool { return false }
func (i *LoadInstruction) Opcode() string     { return "load" }
func (i *LoadInstruction) String() string {
	return fmt.Sprintf("%s = load %s, %s", i.Res, i.Res.Type, i.Address)
}
func (i *LoadInstruction) Clone(newID int) Instruction {
	c := *i
	c.id = newID
	return &c
}

// --- StoreInstruction ------------------------------------------------------

type StoreInstruction struct {
	base
	Address  *Value
	Val      *Value
	Volatile bool
}

func (i *StoreInstruction) Result() *Value     { return nil }
func (i *StoreInstruction) Operands() []*Value { return []*Value{i.Address, i.Val} }
func (i *StoreInstruction) SetOperand(idx int, v *Value) {
	switch idx {
	case 0:
		i.Address = v
	case 1:
		i.Val = v
	}
}
func (i *StoreInstruction) IsTerminator() bool { return false }
func (i *StoreInstruction) Opcode() string     { return "store" }
func (i *StoreInstruction) String() string {
	return fmt.Sprintf("store %s, %s", i.Val, i.Address)
}
func (i *StoreInstruction) Clone(newID int) Instruction {
	c := *i
	c.id = newID
	return &c
}

// --- BinaryInstruction -----------------------------------------------------

// BinOp enumerates the arithmetic/logical/bitwise operators. Kept as a
// plain string so new operators never require touching the Instruction
// interface.
type BinOp string

const (
	OpAdd BinOp = "add"
	OpSub BinOp = "sub"
	OpMul BinOp = "mul"
	OpSDiv BinOp = "sdiv"
	OpSRem BinOp = "srem"
	OpAnd BinOp = "and"
	OpOr  BinOp = "or"
	OpXor BinOp = "xor"
	OpShl BinOp = "shl"
	OpShr BinOp = "shr"
)

type BinaryInstruction struct {
	base
	Res   *Value
	Op    BinOp
	Left  *Value
	Right *Value
}

func (i *BinaryInstruction) Result() *Value     { return i.Res }
func (i *BinaryInstruction) Operands() []*Value { return []*Value{i.Left, i.Right} }
func (i *BinaryInstruction) SetOperand(idx int, v *Value) {
	switch idx {
	case 0:
		i.Left = v
	case 1:
		i.Right = v
	}
}
func (i *BinaryInstruction) IsTerminator() bool { return false }
func (i *BinaryInstruction) Opcode() string     { return string(i.Op) }
func (i *BinaryInstruction) String() string {
	return fmt.Sprintf("%s = %s %s, %s", i.Res, i.Op, i.Left, i.Right)
}
func (i *BinaryInstruction) Clone(newID int) Instruction {
	c := *i
	c.id = newID
	return &c
}

// --- UnaryInstruction --------------------------------------------------

type UnOp string

const (
	OpNeg UnOp = "neg"
	OpNot UnOp = "not"
)

type UnaryInstruction struct {
	base
	Res *Value
	Op  UnOp
	X   *Value
}

func (i *UnaryInstruction) Result() *Value     { return i.Res }
func (i *UnaryInstruction) Operands() []*Value { return []*Value{i.X} }
func (i *UnaryInstruction) SetOperand(idx int, v *Value) {
	if idx == 0 {
		i.X = v
	}
}
func (i *UnaryInstruction) IsTerminator() bool { return false }
func (i *UnaryInstruction) Opcode() string     { return string(i.Op) }
func (i *UnaryInstruction) String() string     { return fmt.Sprintf("%s = %s %s", i.Res, i.Op, i.X) }
func (i *UnaryInstruction) Clone(newID int) Instruction {
	c := *i
	c.id = newID
	return &c
}

// --- CompareInstruction --------------------------------------------------

// CmpPred enumerates comparison predicates; Float selects the
// unordered-equal comparator consistency checks use when comparing
// floating-point shadow values.
type CmpPred string

const (
	CmpEQ CmpPred = "eq"
	CmpNE CmpPred = "ne"
	CmpLT CmpPred = "lt"
	CmpLE CmpPred = "le"
	CmpGT CmpPred = "gt"
	CmpGE CmpPred = "ge"
	CmpUEQ CmpPred = "ueq" // unordered-equal, floating point only
)

type CompareInstruction struct {
	base
	Res   *Value
	Pred  CmpPred
	Float bool
	Left  *Value
	Right *Value
}

func (i *CompareInstruction) Result() *Value     { return i.Res }
func (i *CompareInstruction) Operands() []*Value { return []*Value{i.Left, i.Right} }
func (i *CompareInstruction) SetOperand(idx int, v *Value) {
	switch idx {
	case 0:
		i.Left = v
	case 1:
		i.Right = v
	}
}
func (i *CompareInstruction) IsTerminator() bool { return false }
func (i *CompareInstruction) Opcode() string {
	if i.Float {
		return "fcmp"
	}
	return "icmp"
}
func (i *CompareInstruction) String() string {
	return fmt.Sprintf("%s = %s %s %s, %s", i.Res, i.Opcode(), i.Pred, i.Left, i.Right)
}
func (i *CompareInstruction) Clone(newID int) Instruction {
	c := *i
	c.id = newID
	return &c
}

// --- GEPInstruction --------------------------------------------------------

// GEPInstruction computes a derived address. InlineConst is set when
// the GEP was materialized as a constant expression rather than an
// ordinary instruction, the "inline constant GEP operand" case the
// duplicator handles specially.
type GEPInstruction struct {
	base
	Res        *Value
	Base       *Value
	Indices    []*Value
	InlineConst bool
}

func (i *GEPInstruction) Result() *Value { return i.Res }
func (i *GEPInstruction) Operands() []*Value {
	return append([]*Value{i.Base}, i.Indices...)
}
func (i *GEPInstruction) SetOperand(idx int, v *Value) {
	if idx == 0 {
		i.Base = v
		return
	}
	if idx-1 < len(i.Indices) {
		i.Indices[idx-1] = v
	}
}
func (i *GEPInstruction) IsTerminator() bool { return false }
func (i *GEPInstruction) Opcode() string     { return "gep" }
func (i *GEPInstruction) String() string {
	return fmt.Sprintf("%s = gep %s, %v", i.Res, i.Base, i.Indices)
}
func (i *GEPInstruction) Clone(newID int) Instruction {
	c := *i
	c.id = newID
	c.Indices = append([]*Value(nil), i.Indices...)
	return &c
}

// --- PhiInstruction --------------------------------------------------------

type PhiInstruction struct {
	base
	Res    *Value
	// Incoming keeps the predecessor/value pairs in block order so
	// rewiring a single predecessor (block splits) is an O(1)
	// slice mutation rather than a map rebuild that loses order.
	Incoming []PhiEdge
}

type PhiEdge struct {
	Pred  *BasicBlock
	Value *Value
}

func (i *PhiInstruction) Result() *Value { return i.Res }
func (i *PhiInstruction) Operands() []*Value {
	vs := make([]*Value, len(i.Incoming))
	for idx, e := range i.Incoming {
		vs[idx] = e.Value
	}
	return vs
}
func (i *PhiInstruction) SetOperand(idx int, v *Value) {
	if idx < len(i.Incoming) {
		i.Incoming[idx].Value = v
	}
}
func (i *PhiInstruction) IsTerminator() bool { return false }
func (i *PhiInstruction) Opcode() string     { return "phi" }
func (i *PhiInstruction) String() string {
	s := fmt.Sprintf("%s = phi %s ", i.Res, i.Res.Type)
	for idx, e := range i.Incoming {
		if idx > 0 {
			s += ", "
		}
		s += fmt.Sprintf("[%s, %s]", e.Value, e.Pred.Label)
	}
	return s
}
func (i *PhiInstruction) Clone(newID int) Instruction {
	c := *i
	c.id = newID
	c.Incoming = append([]PhiEdge(nil), i.Incoming...)
	return &c
}

// ReplacePredecessor rewires the incoming edge for oldPred to come from
// newPred instead, used when a block is split and a Verify block is
// interposed between a predecessor and the protected block.
func (i *PhiInstruction) ReplacePredecessor(oldPred, newPred *BasicBlock) {
	for idx := range i.Incoming {
		if i.Incoming[idx].Pred == oldPred {
			i.Incoming[idx].Pred = newPred
		}
	}
}

// --- SelectInstruction -----------------------------------------------------

type SelectInstruction struct {
	base
	Res       *Value
	Condition *Value
	TrueVal   *Value
	FalseVal  *Value
}

func (i *SelectInstruction) Result() *Value { return i.Res }
func (i *SelectInstruction) Operands() []*Value {
	return []*Value{i.Condition, i.TrueVal, i.FalseVal}
}
func (i *SelectInstruction) SetOperand(idx int, v *Value) {
	switch idx {
	case 0:
		i.Condition = v
	case 1:
		i.TrueVal = v
	case 2:
		i.FalseVal = v
	}
}
func (i *SelectInstruction) IsTerminator() bool { return false }
func (i *SelectInstruction) Opcode() string     { return "select" }
func (i *SelectInstruction) String() string {
	return fmt.Sprintf("%s = select %s, %s, %s", i.Res, i.Condition, i.TrueVal, i.FalseVal)
}
func (i *SelectInstruction) Clone(newID int) Instruction {
	c := *i
	c.id = newID
	return &c
}

// --- InsertValueInstruction -------------------------------------------------

type InsertValueInstruction struct {
	base
	Res      *Value
	Agg      *Value
	Elem     *Value
	Index    int
}

func (i *InsertValueInstruction) Result() *Value     { return i.Res }
func (i *InsertValueInstruction) Operands() []*Value { return []*Value{i.Agg, i.Elem} }
func (i *InsertValueInstruction) SetOperand(idx int, v *Value) {
	switch idx {
	case 0:
		i.Agg = v
	case 1:
		i.Elem = v
	}
}
func (i *InsertValueInstruction) IsTerminator() bool { return false }
func (i *InsertValueInstruction) Opcode() string     { return "insertvalue" }
func (i *InsertValueInstruction) String() string {
	return fmt.Sprintf("%s = insertvalue %s, %s, %d", i.Res, i.Agg, i.Elem, i.Index)
}
func (i *InsertValueInstruction) Clone(newID int) Instruction {
	c := *i
	c.id = newID
	return &c
}

// --- CallInstruction --------------------------------------------------------

// CallInstruction covers both direct and function-pointer (indirect)
// calls: Callee is set for direct calls, CalleeValue
// for indirect ones. Duplicatable intrinsics (memcpy/memset) are
// marked via Intrinsic.
type CallInstruction struct {
	base
	Res        *Value // nil for void calls
	Callee     *Function
	CalleeValue *Value // set instead of Callee for indirect calls
	Args       []*Value
	Intrinsic  string // "", "memcpy", or "memset"
}

func (i *CallInstruction) Result() *Value { return i.Res }
func (i *CallInstruction) Operands() []*Value {
	if i.CalleeValue != nil {
		return append([]*Value{i.CalleeValue}, i.Args...)
	}
	return append([]*Value(nil), i.Args...)
}
func (i *CallInstruction) SetOperand(idx int, v *Value) {
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
func (i *CallInstruction) IsTerminator() bool { return false }
func (i *CallInstruction) Opcode() string     { return "call" }
func (i *CallInstruction) CalleeName() string {
	if i.Callee != nil {
		return i.Callee.Name
	}
	return "<indirect>"
}
func (i *CallInstruction) String() string {
	pfx := ""
	if i.Res != nil {
		pfx = i.Res.String() + " = "
	}
	return fmt.Sprintf("%scall %s(%v)", pfx, i.CalleeName(), i.Args)
}
func (i *CallInstruction) Clone(newID int) Instruction {
	c := *i
	c.id = newID
	c.Args = append([]*Value(nil), i.Args...)
	return &c
}

// --- AtomicRMWInstruction ----------------------------------------------------

type AtomicRMWInstruction struct {
	base
	Res     *Value
	Op      BinOp
	Address *Value
	Val     *Value
}

func (i *AtomicRMWInstruction) Result() *Value     { return i.Res }
func (i *AtomicRMWInstruction) Operands() []*Value { return []*Value{i.Address, i.Val} }
func (i *AtomicRMWInstruction) SetOperand(idx int, v *Value) {
	switch idx {
	case 0:
		i.Address = v
	case 1:
		i.Val = v
	}
}
func (i *AtomicRMWInstruction) IsTerminator() bool { return false }
func (i *AtomicRMWInstruction) Opcode() string     { return "atomicrmw" }
func (i *AtomicRMWInstruction) String() string {
	return fmt.Sprintf("%s = atomicrmw %s %s, %s", i.Res, i.Op, i.Address, i.Val)
}
func (i *AtomicRMWInstruction) Clone(newID int) Instruction {
	c := *i
	c.id = newID
	return &c
}

// --- CmpXchgInstruction ------------------------------------------------------

type CmpXchgInstruction struct {
	base
	Res      *Value // aggregate {oldval, success}; modeled as a single value
	Address  *Value
	Expected *Value
	New      *Value
}

func (i *CmpXchgInstruction) Result() *Value     { return i.Res }
func (i *CmpXchgInstruction) Operands() []*Value { return []*Value{i.Address, i.Expected, i.New} }
func (i *CmpXchgInstruction) SetOperand(idx int, v *Value) {
	switch idx {
	case 0:
		i.Address = v
	case 1:
		i.Expected = v
	case 2:
		i.New = v
	}
}
func (i *CmpXchgInstruction) IsTerminator() bool { return false }
func (i *CmpXchgInstruction) Opcode() string     { return "cmpxchg" }
func (i *CmpXchgInstruction) String() string {
	return fmt.Sprintf("%s = cmpxchg %s, %s, %s", i.Res, i.Address, i.Expected, i.New)
}
func (i *CmpXchgInstruction) Clone(newID int) Instruction {
	c := *i
	c.id = newID
	return &c
}

// --- ConstInstruction --------------------------------------------------------

// ConstInstruction materializes a compile-time constant as an SSA value
// so that every value has exactly one definition, even for literals.
type ConstInstruction struct {
	base
	Res  *Value
	Data interface{}
}

func (i *ConstInstruction) Result() *Value       { return i.Res }
func (i *ConstInstruction) Operands() []*Value   { return nil }
func (i *ConstInstruction) SetOperand(int, *Value) {}
func (i *ConstInstruction) IsTerminator() bool    { return false }
func (i *ConstInstruction) Opcode() string        { return "const" }
func (i *ConstInstruction) String() string {
	return fmt.Sprintf("%s = const %s %v", i.Res, i.Res.Type, i.Data)
}
func (i *ConstInstruction) Clone(newID int) Instruction {
	c := *i
	c.id = newID
	return &c
}
