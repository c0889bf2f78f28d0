// Package annotation builds the per-symbol annotation and linkage index
// every pass consults before deciding whether to transform a function or
// global: which ones are force-duplicated, which are excluded, and which
// globals back the control-flow protector's runtime signature cells.
package annotation

import "aspis/internal/ir"

// Kind is one of the four recognized annotation strings. Anything else
// found in the module's metadata array is an unknown annotation: callers
// log a warning and ignore it rather than rejecting the module.
type Kind string

const (
	ToDuplicate Kind = "to_duplicate"
	Exclude     Kind = "exclude"
	RuntimeSig  Kind = "runtime_sig"
	RunAdjSig   Kind = "run_adj_sig"
)

func isKnown(k Kind) bool {
	switch k {
	case ToDuplicate, Exclude, RuntimeSig, RunAdjSig:
		return true
	}
	return false
}

// Index maps symbol names to their recognized annotations and maintains
// the source-name-to-symbol-name linkage table used to resolve
// DataCorruption_Handler/SigMismatch_Handler by their debug name.
type Index struct {
	bySymbol map[string][]Kind
	bySource map[string][]string // source-level name -> symbol names
	unknown  []string            // unrecognized annotation strings seen, for warning reporting
}

// Build scans a module's annotation array and every function's debug
// name, producing a populated Index. Unknown annotation strings are
// recorded (not discarded) so the caller can emit one warning per entry
// rather than silently dropping diagnostics.
func Build(m *ir.Module) *Index {
	idx := &Index{
		bySymbol: map[string][]Kind{},
		bySource: map[string][]string{},
	}
	for _, e := range m.Annotations {
		k := Kind(e.Annotation)
		if !isKnown(k) {
			idx.unknown = append(idx.unknown, e.Annotation)
			continue
		}
		idx.bySymbol[e.Target] = append(idx.bySymbol[e.Target], k)
	}
	for _, f := range m.Functions() {
		if f.DebugName == "" {
			continue
		}
		idx.bySource[f.DebugName] = append(idx.bySource[f.DebugName], f.Name)
	}
	return idx
}

// Has reports whether symbol carries the given annotation.
func (idx *Index) Has(symbol string, k Kind) bool {
	for _, x := range idx.bySymbol[symbol] {
		if x == k {
			return true
		}
	}
	return false
}

// Excluded reports whether symbol is annotated exclude.
func (idx *Index) Excluded(symbol string) bool {
	return idx.Has(symbol, Exclude)
}

// ToDuplicate reports whether symbol is annotated to_duplicate.
func (idx *Index) ToDuplicate(symbol string) bool {
	return idx.Has(symbol, ToDuplicate)
}

// ResolveSymbols returns every symbol name registered under the given
// source-level (debug) name, in declaration order.
func (idx *Index) ResolveSymbols(sourceName string) []string {
	return idx.bySource[sourceName]
}

// UnknownAnnotations returns every unrecognized annotation string
// encountered while building the index, for the caller to report as
// warnings.
func (idx *Index) UnknownAnnotations() []string {
	return idx.unknown
}

// RuntimeSigGlobal returns the name of the global annotated runtime_sig,
// and whether one was found. The invariant (exactly one such global per
// module when RACFED is selected) is enforced by the caller, not here.
func (idx *Index) RuntimeSigGlobal() (string, bool) {
	for sym, kinds := range idx.bySymbol {
		for _, k := range kinds {
			if k == RuntimeSig {
				return sym, true
			}
		}
	}
	return "", false
}

// RunAdjSigGlobal returns the name of the global annotated run_adj_sig,
// and whether one was found.
func (idx *Index) RunAdjSigGlobal() (string, bool) {
	for sym, kinds := range idx.bySymbol {
		for _, k := range kinds {
			if k == RunAdjSig {
				return sym, true
			}
		}
	}
	return "", false
}
