package ir

// Effect describes the side effect class of an instruction. The
// per-instruction classification is what the return-by-reference pass
// consults when it resets a cloned function's summary to "unknown"
// because it can no longer prove the original summary still holds.
type Effect interface{ Kind() string }

type PureEffect struct{}

func (PureEffect) Kind() string { return "pure" }

type MemoryEffect struct {
	Op MemOp // read, write, allocate
}

type MemOp string

const (
	MemRead     MemOp = "read"
	MemWrite    MemOp = "write"
	MemAllocate MemOp = "allocate"
)

func (MemoryEffect) Kind() string { return "memory" }

// ExternalEffect marks a call whose side effects are unknown. EffectsOf
// returns it for every non-intrinsic call and every invoke, whether or
// not the callee is defined in this module, since a call may reenter
// the module -- the duplicator falls back to its non-duplicatable-callee
// fix-up policy for these.
type ExternalEffect struct{}

func (ExternalEffect) Kind() string { return "external" }

// EffectsOf classifies the side effects of an instruction by opcode.
// Kept as a single type-switch function rather than a per-instruction
// method since the instruction set is homogeneous enough that
// centralizing the policy in one place is easier to audit.
func EffectsOf(inst Instruction) []Effect {
	switch i := inst.(type) {
	case *LoadInstruction:
		return []Effect{MemoryEffect{Op: MemRead}}
	case *StoreInstruction:
		return []Effect{MemoryEffect{Op: MemWrite}}
	case *AllocaInstruction:
		return []Effect{MemoryEffect{Op: MemAllocate}}
	case *AtomicRMWInstruction:
		return []Effect{MemoryEffect{Op: MemRead}, MemoryEffect{Op: MemWrite}}
	case *CmpXchgInstruction:
		return []Effect{MemoryEffect{Op: MemRead}, MemoryEffect{Op: MemWrite}}
	case *CallInstruction:
		if i.Intrinsic != "" {
			return []Effect{MemoryEffect{Op: MemWrite}}
		}
		if i.Callee != nil && !i.Callee.External {
			return []Effect{ExternalEffect{}} // conservative: calls may reenter the module
		}
		return []Effect{ExternalEffect{}}
	case *InvokeTerminator:
		return []Effect{ExternalEffect{}}
	default:
		return []Effect{PureEffect{}}
	}
}
