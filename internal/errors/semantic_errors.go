package errors

import (
	"fmt"
)

// recognizedAnnotations lists the annotation strings SPEC_FULL §6.3
// recognizes; used to suggest the nearest match when an unrecognized
// annotation string is seen.
var recognizedAnnotations = []string{"to_duplicate", "exclude", "runtime_sig", "run_adj_sig"}

// Builder provides a fluent interface for attaching notes and help text to
// a Diagnostic, mirroring the teacher's SemanticErrorBuilder but over the
// pipeline's own Diagnostic shape rather than a source-positioned
// CompilerError.
type Builder struct {
	d Diagnostic
}

func newBuilder(level Level, code, message, pass string) *Builder {
	return &Builder{d: Diagnostic{Level: level, Code: code, Message: message, Pass: pass}}
}

// WithFunc attaches the enclosing function's name.
func (b *Builder) WithFunc(name string) *Builder {
	b.d.Func = name
	return b
}

// WithInst attaches the offending instruction's textual form.
func (b *Builder) WithInst(text string) *Builder {
	b.d.Inst = text
	return b
}

// WithNote appends a note line.
func (b *Builder) WithNote(note string) *Builder {
	b.d.Notes = append(b.d.Notes, note)
	return b
}

// WithHelp sets the help line.
func (b *Builder) WithHelp(help string) *Builder {
	b.d.HelpText = help
	return b
}

// Build returns the completed Diagnostic.
func (b *Builder) Build() Diagnostic {
	return b.d
}

// UnresolvedSymbol builds the diagnostic for a handler or signature-cell
// name the linkage index could not resolve (§4.7, §7).
func UnresolvedSymbol(pass, sourceName string) Diagnostic {
	return newBuilder(Error, ErrorUnresolvedSymbol,
		fmt.Sprintf("symbol %q could not be resolved via the linkage index", sourceName), pass).
		WithHelp("check that the front-end emitted a debug subprogram for this symbol").
		Build()
}

// UnsupportedCallKind builds the diagnostic for a call site that is
// neither a direct call nor an invoke (§4.3, §7).
func UnsupportedCallKind(pass, funcName, instText string) Diagnostic {
	return newBuilder(Error, ErrorUnsupportedCallKind,
		"call site is neither a direct call nor an invoke", pass).
		WithFunc(funcName).
		WithInst(instText).
		WithHelp("only direct calls and invokes are rewritten by this pass").
		Build()
}

// MalformedFunction builds the diagnostic for a function with no entry
// block or that otherwise fails the well-formedness the pass assumes.
func MalformedFunction(pass, funcName, reason string) Diagnostic {
	return newBuilder(Error, ErrorMalformedFunction, reason, pass).
		WithFunc(funcName).
		Build()
}

// UnsupportedTerminator builds the diagnostic for indirectbr or a switch
// with more than two targets reaching control-flow checking without prior
// lowering (§4.6.3).
func UnsupportedTerminator(pass, funcName, instText string) Diagnostic {
	return newBuilder(Error, ErrorUnsupportedTerminator,
		"indirect branch or >2-way switch requires prior lowering to chained branches", pass).
		WithFunc(funcName).
		WithInst(instText).
		WithHelp("lower indirectbr and wide switches to chained conditional branches before running this pass").
		Build()
}

// ShadowInvariant builds the diagnostic for a shadow-map symmetry or
// typing violation (§3, §8.1).
func ShadowInvariant(pass, detail string) Diagnostic {
	return newBuilder(Error, ErrorShadowInvariant, detail, pass).Build()
}

// SignatureCollision builds the diagnostic for two blocks assigned the
// same compile-time or adjusted signature (§3, §8.2).
func SignatureCollision(pass, funcName, detail string) Diagnostic {
	return newBuilder(Error, ErrorSignatureCollision, detail, pass).
		WithFunc(funcName).
		Build()
}

// UnknownAnnotation builds the warning for an unrecognized annotation
// string, suggesting the nearest recognized annotation by edit distance
// (§4.1, §7) when one is close enough to be a plausible typo.
func UnknownAnnotation(pass, raw string) Diagnostic {
	b := newBuilder(Warning, WarningUnknownAnnotation,
		fmt.Sprintf("annotation %q was not recognized and was ignored", raw), pass)
	if similar := findSimilarNames(raw, recognizedAnnotations); len(similar) > 0 {
		b = b.WithHelp(fmt.Sprintf("did you mean %q?", similar[0]))
	}
	return b.Build()
}

// IdempotentDuplication builds the warning emitted when a duplication
// request names an already-present `_dup`-suffixed shadow and is treated
// as idempotent (§7).
func IdempotentDuplication(pass, name string) Diagnostic {
	return newBuilder(Warning, WarningIdempotentDuplication,
		fmt.Sprintf("%q already has a shadow; reusing the existing clone", name), pass).
		Build()
}

// findSimilarNames returns candidates within edit distance 2 of target,
// nearest first, reused from the teacher's identifier-suggestion helper.
func findSimilarNames(target string, candidates []string) []string {
	type scored struct {
		name string
		dist int
	}
	var matches []scored
	for _, c := range candidates {
		if d := levenshteinDistance(target, c); d <= 2 {
			matches = append(matches, scored{c, d})
		}
	}
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j-1].dist > matches[j].dist; j-- {
			matches[j-1], matches[j] = matches[j], matches[j-1]
		}
	}
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.name
	}
	return names
}

// levenshteinDistance is the teacher's plain dynamic-programming edit
// distance, unchanged.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
	}
	for i := 0; i <= len(a); i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len(b); j++ {
		matrix[0][j] = j
	}
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			matrix[i][j] = min3(
				matrix[i-1][j]+1,
				matrix[i][j-1]+1,
				matrix[i-1][j-1]+cost,
			)
		}
	}
	return matrix[len(a)][len(b)]
}

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
