// Package diag implements the error partition every pass reports through:
// fatal errors that abort the current pass, warnings that are logged and
// execution continues, and a bounded fallback search for a debug location
// when a synthesized instruction has none.
package diag

import (
	"golang.org/x/xerrors"

	"aspis/internal/ir"
)

// FatalError wraps the offending value (or nil) and the name of the pass
// that raised it. %+v on the wrapped chain walks back through every pass
// boundary the error crossed.
type FatalError struct {
	Pass  string
	Value ir.Instruction
	Func  *ir.Function
	cause error
}

func (e *FatalError) Error() string {
	return e.cause.Error()
}

func (e *FatalError) Unwrap() error {
	return e.cause
}

// Fatal builds a FatalError for the named pass, wrapping cause with
// xerrors so the diagnostic keeps a stack frame back to where it was
// raised.
func Fatal(pass string, fn *ir.Function, inst ir.Instruction, cause error) *FatalError {
	return &FatalError{
		Pass:  pass,
		Value: inst,
		Func:  fn,
		cause: xerrors.Errorf("%s: %w", pass, cause),
	}
}

// Fatalf is Fatal with a formatted cause.
func Fatalf(pass string, fn *ir.Function, inst ir.Instruction, format string, args ...interface{}) *FatalError {
	return Fatal(pass, fn, inst, xerrors.Errorf(format, args...))
}

// Warning is a recoverable diagnostic: the caller logs it and continues
// the pass.
type Warning struct {
	Pass    string
	Message string
}

func (w *Warning) Error() string {
	return w.Message
}

// NewWarning builds a Warning for the named pass.
func NewWarning(pass, format string, args ...interface{}) *Warning {
	return &Warning{Pass: pass, Message: xerrors.Errorf(format, args...).Error()}
}

// maxDebugLocationHops bounds the BFS fallback search so a module with no
// debug metadata anywhere doesn't walk the whole function.
const maxDebugLocationHops = 8

// FindDebugLocation recovers a debug location for inst by scanning its own
// block up to inst, then walking predecessor blocks breadth-first up to
// maxDebugLocationHops looking for any instruction or terminator with a
// non-nil DebugLoc. It falls back to the enclosing function's last
// terminator when nothing is found within the hop bound.
func FindDebugLocation(inst ir.Instruction) *ir.DebugLocation {
	if loc := inst.DebugLoc(); loc != nil {
		return loc
	}
	start := inst.Block()
	if start == nil {
		return nil
	}
	if loc := scanBlockBefore(start, inst); loc != nil {
		return loc
	}

	type frontierEntry struct {
		block *ir.BasicBlock
		hops  int
	}
	visited := map[*ir.BasicBlock]bool{start: true}
	var queue []frontierEntry
	for _, p := range start.Predecessors {
		queue = append(queue, frontierEntry{block: p, hops: 1})
	}
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		if visited[e.block] || e.hops > maxDebugLocationHops {
			continue
		}
		visited[e.block] = true
		if loc := scanBlockFull(e.block); loc != nil {
			return loc
		}
		for _, p := range e.block.Predecessors {
			if !visited[p] {
				queue = append(queue, frontierEntry{block: p, hops: e.hops + 1})
			}
		}
	}

	if fn := start.Func; fn != nil {
		for i := len(fn.Blocks) - 1; i >= 0; i-- {
			b := fn.Blocks[i]
			if b.Term != nil {
				if loc := b.Term.DebugLoc(); loc != nil {
					return loc
				}
			}
		}
	}
	return nil
}

// scanBlockBefore looks for a debug location among the instructions of b
// that precede target, closest first.
func scanBlockBefore(b *ir.BasicBlock, target ir.Instruction) *ir.DebugLocation {
	end := len(b.Instructions)
	for i, inst := range b.Instructions {
		if inst == target {
			end = i
			break
		}
	}
	for i := end - 1; i >= 0; i-- {
		if loc := b.Instructions[i].DebugLoc(); loc != nil {
			return loc
		}
	}
	return nil
}

// scanBlockFull looks for a debug location anywhere in b, terminator last.
func scanBlockFull(b *ir.BasicBlock) *ir.DebugLocation {
	for _, inst := range b.Instructions {
		if loc := inst.DebugLoc(); loc != nil {
			return loc
		}
	}
	if b.Term != nil {
		return b.Term.DebugLoc()
	}
	return nil
}
