// Package ir defines the abstract host-IR representation consumed and
// produced by the hardening passes. It plays the role the specification
// assigns to "the host IR library": typed SSA values,
// basic blocks, functions, globals, and a module container, all mutable
// in place so later passes can keep rewriting what earlier passes built.
//
// The physical representation of a production IR (e.g. LLVM bitcode) is
// explicitly out of scope of this toolchain; this package is a from-scratch
// stand-in that is just rich enough to express everything the RBR, EDDI and
// control-flow-protector passes need to manipulate and to let the module be
// exercised end-to-end in tests without a real compiler front end attached.
package ir

// NewModule creates an empty module with the given name.
func NewModule(name string) *Module {
	return &Module{
		Name:      name,
		functions: map[string]*Function{},
		globals:   map[string]*GlobalVariable{},
	}
}
