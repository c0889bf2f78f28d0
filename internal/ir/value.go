package ir

import "strconv"

// ValueKind distinguishes the provenance of a Value. Every Value in the
// module carries one of these so passes can tell an instruction result
// from a function argument without a type assertion on DefInst.
type ValueKind int

const (
	ValueInstruction ValueKind = iota
	ValueArgument
	ValueGlobal
)

// Value is an SSA value: every instruction result and every function
// argument is a *Value, and each one has exactly one definition. Global
// variables also expose a *Value (their address) so they can appear as
// ordinary pointer operands.
type Value struct {
	ID       int
	Name     string
	Type     Type
	Kind     ValueKind
	DefBlock *BasicBlock // nil for arguments and globals
	DefInst  Instruction // nil unless Kind == ValueInstruction
	Uses     []*Use
}

// Use records one occurrence of a Value as an operand of an instruction.
type Use struct {
	Value *Value
	User  Instruction
	Block *BasicBlock
}

// AddUse records that User references v as an operand, for live
// use-list maintenance.
func (v *Value) AddUse(user Instruction, block *BasicBlock) {
	v.Uses = append(v.Uses, &Use{Value: v, User: user, Block: block})
}

// RemoveUse drops the first use recorded for the given user, if any.
func (v *Value) RemoveUse(user Instruction) {
	for i, u := range v.Uses {
		if u.User == user {
			v.Uses = append(v.Uses[:i], v.Uses[i+1:]...)
			return
		}
	}
}

// ReplaceAllUsesWith rewires every recorded use of v to point at repl
// instead, updating the user instruction's operand list in place.
func (v *Value) ReplaceAllUsesWith(repl *Value) {
	uses := v.Uses
	v.Uses = nil
	for _, u := range uses {
		ops := u.User.Operands()
		for i, op := range ops {
			if op == v {
				u.User.SetOperand(i, repl)
			}
		}
		repl.AddUse(u.User, u.Block)
	}
}

func (v *Value) String() string {
	if v == nil {
		return "<nil>"
	}
	if v.Name != "" {
		return "%" + v.Name
	}
	switch v.Kind {
	case ValueGlobal:
		return "@" + v.Name
	default:
		return "%v" + strconv.Itoa(v.ID)
	}
}
