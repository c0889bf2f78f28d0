// Package cfc implements the Control-Flow Protector (SPEC_FULL §4.6):
// RASM, a per-function stack signature cell with per-edge subtraction
// adjustments, and RACFED, a module-global signature cell with
// intra-block additive updates, selected at configuration time by
// cfg.CFCAlgorithm.
package cfc

import (
	"github.com/golang/glog"

	"aspis/internal/annotation"
	"aspis/internal/config"
	"aspis/internal/diag"
	"aspis/internal/errorblock"
	"aspis/internal/ir"
	"aspis/internal/oracle"
	"aspis/internal/sig"
)

const passName = "cfc"

// Result records what Run did.
type Result struct {
	Targets []*ir.Function
}

// Run hardens every eligible function of m against control-flow faults,
// using whichever discipline cfg.CFCAlgorithm selects.
func Run(m *ir.Module, o *oracle.Oracle, idx *annotation.Index, cfg *config.Config) (*Result, error) {
	targets := o.EligibleFunctions(m)
	glog.V(1).Infof("cfc: %d eligible function(s), algorithm=%s", len(targets), cfg.CFCAlgorithm)

	mz := errorblock.New(m, idx)
	ebf := errorblock.NewFactory(mz)

	var gc *globalCell
	if cfg.CFCAlgorithm == config.CFCRacfed {
		gc = newGlobalCell(m, idx)
	}

	for _, f := range targets {
		if err := validate(f); err != nil {
			glog.Errorf("cfc: %v", err)
			return nil, err
		}
		switch cfg.CFCAlgorithm {
		case config.CFCRacfed:
			hardenRacfed(f, m, idx, gc, ebf)
		default:
			hardenRasm(f, m, idx, ebf)
		}
		glog.V(2).Infof("cfc: protected %s", f.Name)
	}
	return &Result{Targets: targets}, nil
}

// validate rejects the terminator shapes §4.6.3 disallows outright:
// indirect branches (always) and switches wider than one case plus a
// default, which are expected to have been lowered to chained branches
// by an earlier pass.
func validate(f *ir.Function) error {
	for _, b := range f.Blocks {
		switch t := b.Term.(type) {
		case *ir.IndirectBrTerminator:
			return diag.Fatalf(passName, f, t, "indirectbr is rejected by the control-flow protector, block %s", b.Label)
		case *ir.SwitchTerminator:
			if len(t.Cases) > 1 {
				return diag.Fatalf(passName, f, t, "switch with %d cases in block %s must be lowered to chained branches first", len(t.Cases), b.Label)
			}
		}
	}
	return nil
}

// landingPads returns the set of blocks that are the unwind target of at
// least one invoke in f: §4.6.3 exempts these from the normal Verify-block
// prefix.
func landingPads(f *ir.Function) map[*ir.BasicBlock]bool {
	pads := map[*ir.BasicBlock]bool{}
	for _, b := range f.Blocks {
		if inv, ok := b.Term.(*ir.InvokeTerminator); ok && inv.Unwind != nil {
			pads[inv.Unwind] = true
		}
	}
	return pads
}

// initEntry stores the entry block's own compile-time signature into the
// runtime cell, unconditionally, before anything else in the function
// runs (§4.6: "Initialization"). anchor, if non-nil, is the instruction
// the init sequence is inserted after (RASM's freshly prepended alloca);
// nil means insert at the very front (after any leading PHIs, which a
// function entry should not have).
func initEntry(f *ir.Function, entry *ir.BasicBlock, cell RuntimeCell, moduleName string, anchor ir.Instruction) {
	ct := sig.BlockSignature(moduleName, f.Name, entry.Label)
	res := f.NewValue("", ir.I32())
	c := &ir.ConstInstruction{Res: res, Data: int64(ct)}
	if anchor == nil {
		entry.Prepend(c)
	} else {
		entry.InsertAfter(anchor, c)
	}
	st := &ir.StoreInstruction{Address: cell.Addr(), Val: res}
	entry.InsertAfter(c, st)
	res.AddUse(st, entry)
	cell.Addr().AddUse(st, entry)
}
