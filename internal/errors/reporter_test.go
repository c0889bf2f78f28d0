package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"aspis/internal/diag"
	"aspis/internal/ir"
)

func TestReporterFormatsFatalError(t *testing.T) {
	fn := &ir.Function{Name: "transfer"}
	fatal := diag.Fatalf("eddi-verify", fn, nil, "shadow map missing pair for %%1")
	d := FromFatal(ErrorShadowInvariant, fatal)

	reporter := NewReporter()
	formatted := reporter.Format(d)

	assert.Contains(t, formatted, "error["+ErrorShadowInvariant+"]")
	assert.Contains(t, formatted, "eddi-verify")
	assert.Contains(t, formatted, "transfer")
	assert.Contains(t, formatted, "shadow map missing pair")
}

func TestReporterFormatsWarning(t *testing.T) {
	w := diag.NewWarning("annotation", "annotation %q ignored", "duplicat")
	d := FromWarning(WarningUnknownAnnotation, w)

	reporter := NewReporter()
	formatted := reporter.Format(d)

	assert.Contains(t, formatted, "warning["+WarningUnknownAnnotation+"]")
	assert.Contains(t, formatted, "ignored")
}

func TestUnresolvedSymbolDiagnostic(t *testing.T) {
	d := UnresolvedSymbol("errorblock", "DataCorruption_Handler")
	assert.Equal(t, ErrorUnresolvedSymbol, d.Code)
	assert.Contains(t, d.Message, "DataCorruption_Handler")
	assert.NotEmpty(t, d.HelpText)
}

func TestUnknownAnnotationSuggestsNearestMatch(t *testing.T) {
	d := UnknownAnnotation("annotation", "to_duplicat")
	assert.Equal(t, WarningUnknownAnnotation, d.Code)
	assert.Contains(t, d.HelpText, "to_duplicate")
}

func TestUnknownAnnotationWithNoCloseMatchHasNoSuggestion(t *testing.T) {
	d := UnknownAnnotation("annotation", "zzzzzzzzzz")
	assert.Empty(t, d.HelpText)
}

func TestUnsupportedTerminatorDiagnostic(t *testing.T) {
	d := UnsupportedTerminator("rasm-verify", "dispatch", "switch i32 %x, label %default [ ... 5 cases ... ]")
	assert.Equal(t, ErrorUnsupportedTerminator, d.Code)
	assert.Equal(t, "dispatch", d.Func)
	assert.Contains(t, d.Inst, "switch")
}

func TestSignatureCollisionDiagnostic(t *testing.T) {
	d := SignatureCollision("rasm-verify", "fact", "CT collision between entry and loop.body")
	assert.Equal(t, ErrorSignatureCollision, d.Code)
	assert.Equal(t, "fact", d.Func)
}

func TestIdempotentDuplicationDiagnostic(t *testing.T) {
	d := IdempotentDuplication("duplicate-globals", "counter_dup")
	assert.Equal(t, WarningIdempotentDuplication, d.Code)
	assert.Contains(t, d.Message, "counter_dup")
}

func TestLevenshteinDistance(t *testing.T) {
	assert.Equal(t, 0, levenshteinDistance("hello", "hello"))
	assert.Equal(t, 1, levenshteinDistance("hello", "hallo"))
	assert.Equal(t, 1, levenshteinDistance("hello", "helo"))
	assert.Equal(t, 5, levenshteinDistance("hello", ""))
	assert.Equal(t, 3, levenshteinDistance("kitten", "sitting"))
}

func TestFindSimilarNames(t *testing.T) {
	candidates := []string{"to_duplicate", "exclude", "runtime_sig", "run_adj_sig"}

	similar := findSimilarNames("to_duplicat", candidates)
	assert.Equal(t, []string{"to_duplicate"}, similar)

	similar = findSimilarNames("completely_unrelated_string", candidates)
	assert.Empty(t, similar)
}

func TestIsWarning(t *testing.T) {
	assert.True(t, IsWarning(WarningUnknownAnnotation))
	assert.False(t, IsWarning(ErrorShadowInvariant))
}
