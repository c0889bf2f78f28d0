// Package pipeline registers the seven named, independently invocable
// passes SPEC_FULL §6.5 lists and composes them into an ordered run,
// mirroring the teacher's OptimizationPass/OptimizationPipeline pattern:
// a pass is a named unit applied to a shared piece of state, and a
// pipeline is just an ordered slice of them run in sequence.
package pipeline

import (
	"fmt"

	"github.com/golang/glog"

	"aspis/internal/annotation"
	"aspis/internal/config"
	"aspis/internal/ir"
	"aspis/internal/oracle"
	"aspis/internal/profile"
)

// Context is the state threaded through every pass of a run. It is built
// once by the driver and mutated in place as passes run: Oracle and Index
// are rebuilt by the driver between structural passes that might
// introduce new functions worth re-annotating, so a Pass should treat
// them as read-only.
type Context struct {
	Module   *ir.Module
	Oracle   *oracle.Oracle
	Index    *annotation.Index
	Config   *config.Config
	Recorder *profile.Recorder
	Bias     profile.Bias
}

// Pass is one named, independently invocable transformation over a
// Context. Run reports whether it changed the module, so a pipeline can
// log progress the way the teacher's OptimizationPipeline does.
type Pass interface {
	Name() string
	Description() string
	Run(ctx *Context) (bool, error)
}

// registry maps a pass's invocable name to its constructor. Passes
// register themselves in this file's init, one per §6.5 entry.
var registry = map[string]Pass{}

func register(p Pass) {
	if _, exists := registry[p.Name()]; exists {
		panic(fmt.Sprintf("pipeline: duplicate pass name %q", p.Name()))
	}
	registry[p.Name()] = p
}

// Lookup returns the registered pass for name, or false if name is not a
// known pipeline surface.
func Lookup(name string) (Pass, bool) {
	p, ok := registry[name]
	return p, ok
}

// Names returns every registered pass name, for CLI help text and
// validation error messages.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// Pipeline is an ordered sequence of passes built by name.
type Pipeline struct {
	passes []Pass
}

// New builds a Pipeline from an ordered list of pass names, failing fast
// on the first name that isn't registered.
func New(names ...string) (*Pipeline, error) {
	pl := &Pipeline{}
	for _, name := range names {
		p, ok := Lookup(name)
		if !ok {
			return nil, fmt.Errorf("pipeline: unknown pass %q (known: %v)", name, Names())
		}
		pl.passes = append(pl.passes, p)
	}
	return pl, nil
}

// Run executes every pass against ctx in order, stopping at the first
// error.
func (pl *Pipeline) Run(ctx *Context) error {
	glog.V(1).Infof("pipeline: running %d pass(es)", len(pl.passes))
	for _, p := range pl.passes {
		glog.V(1).Infof("pipeline: %s: %s", p.Name(), p.Description())
		changed, err := p.Run(ctx)
		if err != nil {
			return fmt.Errorf("pipeline: %s: %w", p.Name(), err)
		}
		glog.V(2).Infof("pipeline: %s: changed=%t", p.Name(), changed)
	}
	return nil
}
