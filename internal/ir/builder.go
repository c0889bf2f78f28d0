package ir

// Builder constructs IR by appending instructions to a cursor block, an
// incremental insertion-point style driven directly from Go call sites
// instead of from a parsed syntax tree -- this toolchain's input is
// already-built IR, so fixtures and tests construct modules through
// this API rather than through a textual IR-assembly grammar.
type Builder struct {
	fn  *Function
	cur *BasicBlock
}

// NewBuilder returns a Builder positioned at fn's entry block, creating
// one if fn has none yet.
func NewBuilder(fn *Function) *Builder {
	cur := fn.Entry()
	if cur == nil {
		cur = fn.AddBlock("entry")
	}
	return &Builder{fn: fn, cur: cur}
}

// Block returns the builder's current insertion point.
func (b *Builder) Block() *BasicBlock { return b.cur }

// SetBlock repositions the builder's insertion point.
func (b *Builder) SetBlock(bb *BasicBlock) { b.cur = bb }

// NewBlock appends a fresh block to the function and moves the cursor
// there, returning the new block.
func (b *Builder) NewBlock(label string) *BasicBlock {
	bb := b.fn.AddBlock(label)
	b.cur = bb
	return bb
}

func (b *Builder) emit(inst Instruction) Instruction {
	b.cur.Append(inst)
	for _, op := range inst.Operands() {
		if op != nil {
			op.AddUse(inst, b.cur)
		}
	}
	return inst
}

func (b *Builder) result(name string, t Type) *Value { return b.fn.NewValue(name, t) }

// Alloca emits a stack allocation of elem and returns its pointer value.
func (b *Builder) Alloca(name string, elem Type) *Value {
	res := b.result(name, PtrTo(elem))
	b.emit(&AllocaInstruction{Res: res, Elem: elem})
	return res
}

// Load emits a load from addr.
func (b *Builder) Load(name string, t Type, addr *Value) *Value {
	res := b.result(name, t)
	b.emit(&LoadInstruction{Res: res, Address: addr})
	return res
}

// Store emits a store of val to addr.
func (b *Builder) Store(addr, val *Value) {
	b.emit(&StoreInstruction{Address: addr, Val: val})
}

// Binary emits a binary arithmetic/logical instruction.
func (b *Builder) Binary(name string, op BinOp, t Type, left, right *Value) *Value {
	res := b.result(name, t)
	b.emit(&BinaryInstruction{Res: res, Op: op, Left: left, Right: right})
	return res
}

// Unary emits a unary instruction.
func (b *Builder) Unary(name string, op UnOp, t Type, x *Value) *Value {
	res := b.result(name, t)
	b.emit(&UnaryInstruction{Res: res, Op: op, X: x})
	return res
}

// Compare emits an integer or floating-point comparison.
func (b *Builder) Compare(name string, pred CmpPred, float bool, left, right *Value) *Value {
	res := b.result(name, I1())
	b.emit(&CompareInstruction{Res: res, Pred: pred, Float: float, Left: left, Right: right})
	return res
}

// GEP emits an address computation.
func (b *Builder) GEP(name string, t Type, base *Value, indices ...*Value) *Value {
	res := b.result(name, t)
	b.emit(&GEPInstruction{Res: res, Base: base, Indices: indices})
	return res
}

// Select emits a select instruction.
func (b *Builder) Select(name string, t Type, cond, tv, fv *Value) *Value {
	res := b.result(name, t)
	b.emit(&SelectInstruction{Res: res, Condition: cond, TrueVal: tv, FalseVal: fv})
	return res
}

// Call emits a direct call to callee.
func (b *Builder) Call(name string, callee *Function, args ...*Value) *Value {
	var res *Value
	if callee.ReturnType != nil {
		if _, void := callee.ReturnType.(*VoidType); !void {
			res = b.result(name, callee.ReturnType)
		}
	}
	b.emit(&CallInstruction{Res: res, Callee: callee, Args: args})
	return res
}

// CallIndirect emits a call through a function-pointer value.
func (b *Builder) CallIndirect(name string, t Type, fnPtr *Value, args ...*Value) *Value {
	var res *Value
	if _, void := t.(*VoidType); !void {
		res = b.result(name, t)
	}
	b.emit(&CallInstruction{Res: res, CalleeValue: fnPtr, Args: args})
	return res
}

// Const materializes a literal constant as an SSA value.
func (b *Builder) Const(name string, t Type, data interface{}) *Value {
	res := b.result(name, t)
	b.emit(&ConstInstruction{Res: res, Data: data})
	return res
}

// Phi starts a PHI node with no incoming edges yet; call AddIncoming to
// populate it once predecessors are known.
func (b *Builder) Phi(name string, t Type) *PhiInstruction {
	res := b.result(name, t)
	phi := &PhiInstruction{Res: res}
	b.cur.Prepend(phi)
	return phi
}

// AddIncoming records one predecessor/value edge on a PHI.
func (b *Builder) AddIncoming(phi *PhiInstruction, pred *BasicBlock, v *Value) {
	phi.Incoming = append(phi.Incoming, PhiEdge{Pred: pred, Value: v})
	if v != nil {
		v.AddUse(phi, phi.Block())
	}
}

// Ret terminates the current block with a return.
func (b *Builder) Ret(v *Value) {
	term := &ReturnTerminator{Value: v}
	b.cur.SetTerminator(term)
	if v != nil {
		v.AddUse(term, b.cur)
	}
}

// Jump terminates the current block with an unconditional jump.
func (b *Builder) Jump(target *BasicBlock) {
	b.cur.SetTerminator(&JumpTerminator{Target: target})
}

// Branch terminates the current block with a conditional branch.
func (b *Builder) Branch(cond *Value, trueBlock, falseBlock *BasicBlock) {
	term := &BranchTerminator{Condition: cond, TrueBlock: trueBlock, FalseBlock: falseBlock}
	b.cur.SetTerminator(term)
	cond.AddUse(term, b.cur)
}

// Unreachable terminates the current block with an unreachable marker,
// the terminator every error block carries.
func (b *Builder) Unreachable() {
	b.cur.SetTerminator(&UnreachableTerminator{})
}
