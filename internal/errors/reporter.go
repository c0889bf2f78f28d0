package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"aspis/internal/diag"
	"aspis/internal/ir"
)

// Level mirrors diag's fatal/warning split for presentation purposes.
type Level string

const (
	Error   Level = "error"
	Warning Level = "warning"
)

// Diagnostic is the presentation-ready form of a diag.FatalError or
// diag.Warning: a severity, a code, a message and whatever location
// context the pass that raised it had available.
type Diagnostic struct {
	Level    Level
	Code     string
	Message  string
	Pass     string
	Func     string
	Inst     string
	Location string // "file:line:col" when a debug location was available
	Notes    []string
	HelpText string
}

// FromFatal builds a Diagnostic from a diag.FatalError, given the sharper
// error code the caller has already selected for the failure.
func FromFatal(code string, err *diag.FatalError) Diagnostic {
	d := Diagnostic{
		Level:   Error,
		Code:    code,
		Message: err.Error(),
		Pass:    err.Pass,
	}
	if err.Func != nil {
		d.Func = err.Func.Name
	}
	if err.Value != nil {
		d.Inst = err.Value.String()
		if loc := diag.FindDebugLocation(err.Value); loc != nil {
			d.Location = formatLocation(loc)
		}
	}
	return d
}

// FromWarning builds a Diagnostic from a diag.Warning.
func FromWarning(code string, w *diag.Warning) Diagnostic {
	return Diagnostic{
		Level:   Warning,
		Code:    code,
		Message: w.Message,
		Pass:    w.Pass,
	}
}

func formatLocation(loc *ir.DebugLocation) string {
	return fmt.Sprintf("%s:%d:%d", loc.File, loc.Line, loc.Col)
}

// Reporter renders Diagnostic values to a colorized, human-facing string,
// one severity color per line the way the teacher's ErrorReporter renders
// one color per CompilerError level — minus the source-line context an
// IR diagnostic has no file to pull from.
type Reporter struct{}

// NewReporter constructs a Reporter. It carries no state; unlike the
// teacher's source-backed reporter there is no per-file line cache to hold.
func NewReporter() *Reporter {
	return &Reporter{}
}

// Format renders d as a multi-line diagnostic block.
func (r *Reporter) Format(d Diagnostic) string {
	var out strings.Builder

	levelColor := r.levelColor(d.Level)
	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	if d.Code != "" {
		out.WriteString(fmt.Sprintf("%s[%s]: %s\n", levelColor(string(d.Level)), d.Code, d.Message))
	} else {
		out.WriteString(fmt.Sprintf("%s: %s\n", levelColor(string(d.Level)), d.Message))
	}

	if d.Pass != "" {
		out.WriteString(fmt.Sprintf("  %s %s\n", dim("-->"), bold(d.Pass)))
	}
	if d.Func != "" {
		out.WriteString(fmt.Sprintf("  %s in function %s\n", dim("│"), bold(d.Func)))
	}
	if d.Location != "" {
		out.WriteString(fmt.Sprintf("  %s at %s\n", dim("│"), d.Location))
	}
	if d.Inst != "" {
		out.WriteString(fmt.Sprintf("  %s %s\n", dim("│"), dim(d.Inst)))
	}

	for _, note := range d.Notes {
		noteColor := color.New(color.FgBlue).SprintFunc()
		out.WriteString(fmt.Sprintf("  %s %s %s\n", dim("│"), noteColor("note:"), note))
	}

	if d.HelpText != "" {
		helpColor := color.New(color.FgGreen).SprintFunc()
		out.WriteString(fmt.Sprintf("  %s %s %s\n", dim("│"), helpColor("help:"), d.HelpText))
	}

	out.WriteString("\n")
	return out.String()
}

func (r *Reporter) levelColor(level Level) func(...interface{}) string {
	switch level {
	case Error:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	case Warning:
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	default:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	}
}
