package ir

// GlobalVariable is a typed, optionally-initialized storage cell. Addr
// is the pointer Value other instructions use to reference it.
type GlobalVariable struct {
	Name                  string
	Type                  Type
	Initializer           interface{} // nil if uninitialized
	Linkage                string
	Alignment             int
	ThreadLocal           bool
	AddrSpace             int
	ExternallyInitialized bool
	Constant              bool
	Section               string
	Addr                  *Value
}

// NewGlobalVariable allocates a global of the given name/type and its
// backing pointer Value.
func NewGlobalVariable(name string, t Type) *GlobalVariable {
	g := &GlobalVariable{Name: name, Type: t}
	g.Addr = &Value{Name: name, Type: &PointerType{ElemType: t}, Kind: ValueGlobal}
	return g
}

// Clone returns a detached copy of g with the given new name; callers
// are responsible for registering it in the module. The duplicator
// always wants a fresh Addr value so the shadow global is distinguishable
// as an operand from the original.
func (g *GlobalVariable) Clone(newName string) *GlobalVariable {
	c := *g
	c.Name = newName
	c.Addr = &Value{Name: newName, Type: g.Addr.Type, Kind: ValueGlobal}
	return &c
}
