package ir

import "fmt"

// Type is the minimal type-system surface the passes reason about: enough
// to check shadow pairs have equal type (the EDDI invariant) and to build
// pointer/array types over them.
type Type interface {
	String() string
	Equal(Type) bool
}

// IntType is a fixed-width integer.
type IntType struct{ Bits int }

func (t *IntType) String() string { return fmt.Sprintf("i%d", t.Bits) }
func (t *IntType) Equal(o Type) bool {
	other, ok := o.(*IntType)
	return ok && other.Bits == t.Bits
}

// FloatType is a floating point type (width in bits, 32 or 64).
type FloatType struct{ Bits int }

func (t *FloatType) String() string { return fmt.Sprintf("f%d", t.Bits) }
func (t *FloatType) Equal(o Type) bool {
	other, ok := o.(*FloatType)
	return ok && other.Bits == t.Bits
}

// BoolType is a one-bit condition value.
type BoolType struct{}

func (t *BoolType) String() string  { return "i1" }
func (t *BoolType) Equal(o Type) bool {
	_, ok := o.(*BoolType)
	return ok
}

// VoidType is the return type of a function with no result.
type VoidType struct{}

func (t *VoidType) String() string { return "void" }
func (t *VoidType) Equal(o Type) bool {
	_, ok := o.(*VoidType)
	return ok
}

// PointerType points into one of the address spaces of the module.
type PointerType struct {
	ElemType  Type
	AddrSpace int
}

func (t *PointerType) String() string {
	if t.AddrSpace != 0 {
		return fmt.Sprintf("%s addrspace(%d)*", t.ElemType, t.AddrSpace)
	}
	return t.ElemType.String() + "*"
}
func (t *PointerType) Equal(o Type) bool {
	other, ok := o.(*PointerType)
	return ok && other.AddrSpace == t.AddrSpace && other.ElemType.Equal(t.ElemType)
}

// ArrayType is a fixed-length homogeneous aggregate.
type ArrayType struct {
	ElemType Type
	Len      int
}

func (t *ArrayType) String() string { return fmt.Sprintf("[%d x %s]", t.Len, t.ElemType) }
func (t *ArrayType) Equal(o Type) bool {
	other, ok := o.(*ArrayType)
	return ok && other.Len == t.Len && other.ElemType.Equal(t.ElemType)
}

// StructType is a named or anonymous aggregate of fields.
type StructType struct {
	Name   string
	Fields []Type
}

func (t *StructType) String() string {
	if t.Name != "" {
		return "%" + t.Name
	}
	s := "{"
	for i, f := range t.Fields {
		if i > 0 {
			s += ", "
		}
		s += f.String()
	}
	return s + "}"
}
func (t *StructType) Equal(o Type) bool {
	other, ok := o.(*StructType)
	if !ok || len(other.Fields) != len(t.Fields) {
		return false
	}
	for i, f := range t.Fields {
		if !f.Equal(other.Fields[i]) {
			return false
		}
	}
	return true
}

// FuncType is a function signature: used both for Function.Signature()
// and to type function-pointer values used in indirect calls.
type FuncType struct {
	Params   []Type
	Return   Type
	VarArgs  bool
}

func (t *FuncType) String() string {
	s := "("
	for i, p := range t.Params {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	if t.VarArgs {
		if len(t.Params) > 0 {
			s += ", "
		}
		s += "..."
	}
	return s + ") -> " + t.Return.String()
}
func (t *FuncType) Equal(o Type) bool {
	other, ok := o.(*FuncType)
	if !ok || len(other.Params) != len(t.Params) || other.VarArgs != t.VarArgs {
		return false
	}
	if !other.Return.Equal(t.Return) {
		return false
	}
	for i, p := range t.Params {
		if !p.Equal(other.Params[i]) {
			return false
		}
	}
	return true
}

// Common singleton-ish helpers used throughout the passes and tests.
func I1() Type  { return &BoolType{} }
func I8() Type  { return &IntType{Bits: 8} }
func I32() Type { return &IntType{Bits: 32} }
func I64() Type { return &IntType{Bits: 64} }
func Void() Type { return &VoidType{} }
func PtrTo(t Type) Type { return &PointerType{ElemType: t} }
