package profile

import (
	"strings"

	"aspis/internal/ir"
)

// ScanModule records one sample per synchronization point or
// verification block already present in m, recognizing the naming
// conventions internal/eddi ("<block>.verify.<id>") and internal/cfc
// ("Verify_<label>") use for the blocks they synthesize. This is what
// makes the aspis-insert-check-profile pipeline entry concrete: it runs
// after hardening passes have already inserted their check sites, and
// records where they landed.
func ScanModule(r *Recorder, pass string, m *ir.Module) {
	for _, f := range m.Functions() {
		for _, b := range f.Blocks {
			if kind, ok := classify(b.Label); ok {
				r.Record(pass, kind, f.Name, b.Label)
			}
		}
	}
}

func classify(label string) (SampleKind, bool) {
	switch {
	case strings.HasPrefix(label, "Verify_"):
		return SampleCFCPoint, true
	case strings.Contains(label, ".verify."):
		return SampleCheckBegin, true
	default:
		return "", false
	}
}
