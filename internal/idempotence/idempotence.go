// Package idempotence checks SPEC_FULL §8's idempotence property: running
// a pipeline twice over its own output should produce a module that
// differs from its input only in metadata (the module-scope annotation
// comments printer.go emits), never in any function or global.
//
// It backs `aspis diff` (cmd/aspis) and is exercised directly by each
// pass's own package, but lives here because the diff itself — not the
// pass — is the reusable unit: every pass's idempotence check is "print,
// rerun, print, diff", so the diffing belongs in one place.
package idempotence

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"aspis/internal/ir"
)

// Report is the result of comparing a module's printed form before and
// after a pass re-run.
type Report struct {
	Identical bool
	Diff      string
}

// Compare prints before and after with internal/ir.Print and returns a
// Report describing whether they match once metadata-only lines (module
// annotation comments, which are allowed to be reordered or restated by a
// re-run) are stripped from both sides first.
func Compare(before, after *ir.Module) Report {
	return CompareText(ir.Print(before), ir.Print(after))
}

// CompareText is Compare over already-printed text. It exists for callers
// that must capture a module's printed form before mutating that same
// module in place (a pipeline pass rewrites its Context's module rather
// than returning a new one), so there is no separate "before" *ir.Module
// left to print once the rerun has happened.
func CompareText(beforeText, afterText string) Report {
	beforeText = stripMetadata(beforeText)
	afterText = stripMetadata(afterText)

	if beforeText == afterText {
		return Report{Identical: true}
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(beforeText, afterText, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	return Report{
		Identical: false,
		Diff:      dmp.DiffPrettyText(diffs),
	}
}

// stripMetadata removes the `; module` and `; annotate` header lines
// internal/ir.Printer always emits first, since a re-run is allowed to
// restate or reorder those without violating idempotence.
func stripMetadata(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		trimmed := strings.TrimSpace(l)
		if strings.HasPrefix(trimmed, "; module ") || strings.HasPrefix(trimmed, "; annotate ") {
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

// Summary renders a one-line human-facing result for CLI output.
func (r Report) Summary() string {
	if r.Identical {
		return "idempotent: no structural difference after re-run"
	}
	return "NOT idempotent: structural difference found after re-run"
}
