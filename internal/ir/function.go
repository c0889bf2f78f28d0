package ir

// ParamAttr enumerates the small closed set of parameter/return
// attributes the passes care about.
type ParamAttr string

const (
	AttrReturned  ParamAttr = "returned"
	AttrStructRet ParamAttr = "sret"
	AttrNoUndef   ParamAttr = "noundef"
	AttrZeroExt   ParamAttr = "zeroext"
	AttrNoInline  ParamAttr = "noinline"
)

// Parameter is one entry of a function's argument list. Value is the
// SSA value other instructions reference; it is created once, at
// function-construction time, with Kind == ValueArgument.
type Parameter struct {
	Name  string
	Type  Type
	Value *Value
	Attrs []ParamAttr
}

// HasAttr reports whether the parameter carries the given attribute.
func (p *Parameter) HasAttr(a ParamAttr) bool {
	for _, x := range p.Attrs {
		if x == a {
			return true
		}
	}
	return false
}

// RemoveAttr strips the given attribute if present.
func (p *Parameter) RemoveAttr(a ParamAttr) {
	out := p.Attrs[:0]
	for _, x := range p.Attrs {
		if x != a {
			out = append(out, x)
		}
	}
	p.Attrs = out
}

// MemoryEffects is the closed enumeration RBR resets callers to when it
// cannot prove the new store-through-pointer behavior matches the old
// summary.
type MemoryEffects string

const (
	MemEffectsUnknown  MemoryEffects = "unknown"
	MemEffectsReadOnly MemoryEffects = "readonly"
	MemEffectsNone     MemoryEffects = "none"
)

// Function is a named, typed procedure: an ordered list of basic blocks
// (the first is the entry), a parameter list whose Values other
// instructions reference, and linkage/attribute metadata. External (declaration-only) functions have no Blocks.
type Function struct {
	Name       string
	DebugName  string // source-level name
	ReturnType Type
	Params     []*Parameter
	VarArgs    bool
	Blocks     []*BasicBlock
	External   bool
	Linkage    string
	NoInline   bool
	Effects    MemoryEffects

	valueCounter  int
	blockCounter  int
}

// Entry returns the function's first block, or nil if it has none
// (external declarations, or a function awaiting construction).
func (f *Function) Entry() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// Signature returns the function's type as seen by callers.
func (f *Function) Signature() *FuncType {
	params := make([]Type, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Type
	}
	return &FuncType{Params: params, Return: f.ReturnType, VarArgs: f.VarArgs}
}

// NextValueID hands out a module-unique-enough-per-function counter for
// freshly synthesized values; callers combine it with the function name
// when they need a globally unique identity.
func (f *Function) NextValueID() int {
	f.valueCounter++
	return f.valueCounter
}

func (f *Function) nextBlockID() int {
	f.blockCounter++
	return f.blockCounter
}

// NewValue allocates a fresh SSA value owned by this function's
// numbering space.
func (f *Function) NewValue(name string, t Type) *Value {
	return &Value{ID: f.NextValueID(), Name: name, Type: t, Kind: ValueInstruction}
}

// AddBlock appends a new, empty block to the function and returns it.
func (f *Function) AddBlock(label string) *BasicBlock {
	if label == "" {
		label = "bb"
	}
	bb := &BasicBlock{Label: label, Func: f}
	f.Blocks = append(f.Blocks, bb)
	return bb
}

// insertBlockAfter splices succ into the block list right after after.
// Used by BasicBlock.SplitBefore to keep native block order intact.
func (f *Function) insertBlockAfter(after, succ *BasicBlock) {
	for i, b := range f.Blocks {
		if b == after {
			f.Blocks = append(f.Blocks, nil)
			copy(f.Blocks[i+2:], f.Blocks[i+1:])
			f.Blocks[i+1] = succ
			return
		}
	}
	f.Blocks = append(f.Blocks, succ)
}

// BlockByLabel finds a block by its label, or nil.
func (f *Function) BlockByLabel(label string) *BasicBlock {
	for _, b := range f.Blocks {
		if b.Label == label {
			return b
		}
	}
	return nil
}

// AddParam appends a new parameter (and its backing Value) to the
// function's signature.
func (f *Function) AddParam(name string, t Type, attrs ...ParamAttr) *Parameter {
	v := &Value{ID: f.NextValueID(), Name: name, Type: t, Kind: ValueArgument}
	p := &Parameter{Name: name, Type: t, Value: v, Attrs: attrs}
	f.Params = append(f.Params, p)
	return p
}

// AllBlocksInOrder returns every block of the function, entry first, in
// the function's native order.
func (f *Function) AllBlocksInOrder() []*BasicBlock {
	return f.Blocks
}
