package ir

import (
	"fmt"
	"strings"
)

// Printer renders a Module as readable text: one pass prints functions
// in module order, each function's blocks in native order, each
// block's PHIs then instructions then terminator.
type Printer struct {
	sb strings.Builder
}

// Print renders the whole module.
func Print(m *Module) string {
	p := &Printer{}
	p.printModule(m)
	return p.sb.String()
}

// PrintFunction renders a single function, entry block first.
func PrintFunction(f *Function) string {
	p := &Printer{}
	p.printFunction(f)
	return p.sb.String()
}

func (p *Printer) printModule(m *Module) {
	fmt.Fprintf(&p.sb, "; module %s\n", m.Name)
	for _, a := range m.Annotations {
		fmt.Fprintf(&p.sb, "; annotate %s %q\n", a.Target, a.Annotation)
	}
	for _, g := range m.Globals() {
		p.printGlobal(g)
	}
	for _, f := range m.Functions() {
		p.sb.WriteString("\n")
		p.printFunction(f)
	}
}

func (p *Printer) printGlobal(g *GlobalVariable) {
	kind := "global"
	if g.Constant {
		kind = "constant"
	}
	init := ""
	if g.Initializer != nil {
		init = fmt.Sprintf(" = %v", g.Initializer)
	}
	fmt.Fprintf(&p.sb, "@%s = %s %s%s\n", g.Name, kind, g.Type, init)
}

func (p *Printer) printFunction(f *Function) {
	if f.External {
		fmt.Fprintf(&p.sb, "declare %s @%s%s\n", f.ReturnType, f.Name, p.signatureParens(f))
		return
	}
	fmt.Fprintf(&p.sb, "define %s @%s%s {\n", f.ReturnType, f.Name, p.signatureParens(f))
	for _, bb := range f.AllBlocksInOrder() {
		p.printBlock(bb)
	}
	p.sb.WriteString("}\n")
}

func (p *Printer) signatureParens(f *Function) string {
	s := "("
	for i, param := range f.Params {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s %s", param.Type, param.Value)
		for _, a := range param.Attrs {
			s += fmt.Sprintf(" %s", a)
		}
	}
	if f.VarArgs {
		if len(f.Params) > 0 {
			s += ", "
		}
		s += "..."
	}
	return s + ")"
}

func (p *Printer) printBlock(bb *BasicBlock) {
	fmt.Fprintf(&p.sb, "%s:\n", bb.Label)
	for _, inst := range bb.Instructions {
		fmt.Fprintf(&p.sb, "  %s\n", inst)
	}
	if bb.Term != nil {
		fmt.Fprintf(&p.sb, "  %s\n", bb.Term)
	}
}
