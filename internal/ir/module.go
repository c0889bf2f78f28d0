package ir

// AnnotationEntry is one row of the module-scope metadata array: a
// (target, annotation-string) pair. Target names a Function or
// GlobalVariable by its symbol name.
type AnnotationEntry struct {
	Target     string
	Annotation string
}

// Module is the mutable container of functions and globals a pass
// pipeline runs over. Iteration order for functions and
// globals is insertion order, which the passes rely on for
// deterministic output.
type Module struct {
	Name string

	order     []*Function
	functions map[string]*Function

	globalOrder []*GlobalVariable
	globals     map[string]*GlobalVariable

	Annotations []AnnotationEntry
}

// AddFunction registers a new function in the module. Panics on a
// duplicate name, since the data model treats function names as unique
// symbols.
func (m *Module) AddFunction(f *Function) {
	if _, exists := m.functions[f.Name]; exists {
		panic("ir: duplicate function name " + f.Name)
	}
	m.functions[f.Name] = f
	m.order = append(m.order, f)
}

// AddGlobal registers a new global variable in the module.
func (m *Module) AddGlobal(g *GlobalVariable) {
	if _, exists := m.globals[g.Name]; exists {
		panic("ir: duplicate global name " + g.Name)
	}
	m.globals[g.Name] = g
	m.globalOrder = append(m.globalOrder, g)
}

// InsertGlobalBefore inserts g immediately before existing in iteration
// order -- an "alternating layout" placement, as opposed to AddGlobal
// which always appends ("interleaved" / trailing layout).
func (m *Module) InsertGlobalBefore(existing, g *GlobalVariable) {
	if _, exists := m.globals[g.Name]; exists {
		panic("ir: duplicate global name " + g.Name)
	}
	m.globals[g.Name] = g
	for i, cur := range m.globalOrder {
		if cur == existing {
			m.globalOrder = append(m.globalOrder, nil)
			copy(m.globalOrder[i+1:], m.globalOrder[i:])
			m.globalOrder[i] = g
			return
		}
	}
	m.globalOrder = append(m.globalOrder, g)
}

// InsertGlobalFront inserts g before every existing global -- the
// "interleaved" layout's "before all globals" placement option.
func (m *Module) InsertGlobalFront(g *GlobalVariable) {
	if _, exists := m.globals[g.Name]; exists {
		panic("ir: duplicate global name " + g.Name)
	}
	m.globals[g.Name] = g
	m.globalOrder = append([]*GlobalVariable{g}, m.globalOrder...)
}

// Functions returns every function in insertion order.
func (m *Module) Functions() []*Function { return m.order }

// Globals returns every global variable in insertion order.
func (m *Module) Globals() []*GlobalVariable { return m.globalOrder }

// FunctionByName looks up a function by its symbol name.
func (m *Module) FunctionByName(name string) (*Function, bool) {
	f, ok := m.functions[name]
	return f, ok
}

// GlobalByName looks up a global variable by its symbol name.
func (m *Module) GlobalByName(name string) (*GlobalVariable, bool) {
	g, ok := m.globals[name]
	return g, ok
}

// Annotate records an annotation-string for a target symbol name, as if
// it had been found in the well-known metadata array.
func (m *Module) Annotate(target, annotation string) {
	m.Annotations = append(m.Annotations, AnnotationEntry{Target: target, Annotation: annotation})
}
