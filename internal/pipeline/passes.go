package pipeline

import (
	"aspis/internal/cfc"
	"aspis/internal/config"
	"aspis/internal/eddi"
	"aspis/internal/globalprop"
	"aspis/internal/ir"
	"aspis/internal/persist"
	"aspis/internal/profile"
	"aspis/internal/rbr"
)

// targetNames extracts the compiled-function names a pass hardened, in the
// shape persist.Save wants.
func targetNames(fns []*ir.Function) []string {
	names := make([]string, 0, len(fns))
	for _, f := range fns {
		names = append(names, f.Name)
	}
	return names
}

func init() {
	register(funcRetToRef{})
	register(eddiVerify{})
	register(duplicateGlobals{})
	register(cfcVerify{name: "rasm-verify", algorithm: config.CFCRasm})
	register(cfcVerify{name: "racfed-verify", algorithm: config.CFCRacfed})
	register(insertCheckProfile{})
	register(checkProfile{})
}

// funcRetToRef wraps internal/rbr.Rewrite: every eligible function that
// returns a value gets an out-pointer clone and its call sites rewritten
// to pass a local slot by reference instead of receiving a return value
// (SPEC_FULL §4.3). It must run before eddi-verify, since EDDI's
// signature doubling assumes the by-reference shape already holds.
type funcRetToRef struct{}

func (funcRetToRef) Name() string { return "func-ret-to-ref" }
func (funcRetToRef) Description() string {
	return "rewrite value-returning functions to take an out-pointer parameter"
}
func (funcRetToRef) Run(ctx *Context) (bool, error) {
	if err := rbr.Rewrite(ctx.Module, ctx.Oracle); err != nil {
		return false, err
	}
	return true, nil
}

// eddiVerify wraps internal/eddi.Run: duplicates eligible functions' data
// and control-independent computation and inserts consistency checks at
// the configured synchronization points (SPEC_FULL §4.4).
type eddiVerify struct{}

func (eddiVerify) Name() string        { return "eddi-verify" }
func (eddiVerify) Description() string { return "duplicate instructions and insert consistency checks" }
func (eddiVerify) Run(ctx *Context) (bool, error) {
	res, err := eddi.Run(ctx.Module, ctx.Oracle, ctx.Index, ctx.Config)
	if err != nil {
		return false, err
	}
	if err := persist.Save(ctx.Config.CompiledSetDir, persist.EDDISet, targetNames(res.Targets)); err != nil {
		return false, err
	}
	return len(res.Targets) > 0, nil
}

// duplicateGlobals wraps the standalone post-propagator
// (internal/globalprop.Run), retrofitting clone stores and dup-callee
// call rewrites into functions eddi-verify never touched in-process
// (SPEC_FULL §4.5). Invocable independently of eddi-verify so a caller
// can rerun propagation against a module whose compiled-set CSV was
// produced by an earlier, separate compilation.
type duplicateGlobals struct{}

func (duplicateGlobals) Name() string { return "duplicate-globals" }
func (duplicateGlobals) Description() string {
	return "retrofit global-duplication rewrites using the persisted compiled-function set"
}
func (duplicateGlobals) Run(ctx *Context) (bool, error) {
	res, err := globalprop.Run(ctx.Module, ctx.Index, ctx.Config)
	if err != nil {
		return false, err
	}
	changed := res.StoresCloned+res.LoadsCloned+res.CallsToDup+res.CallsToOrig > 0
	return changed, nil
}

// cfcVerify wraps internal/cfc.Run, pinned to one algorithm regardless of
// ctx.Config.CFCAlgorithm's prior value: rasm-verify and racfed-verify
// are separate pipeline surfaces precisely so a caller can pick the
// discipline by name rather than by a side config field.
type cfcVerify struct {
	name      string
	algorithm config.CFCAlgorithm
}

func (p cfcVerify) Name() string { return p.name }
func (p cfcVerify) Description() string {
	return "harden control flow with the " + string(p.algorithm) + " discipline"
}
func (p cfcVerify) Run(ctx *Context) (bool, error) {
	ctx.Config.CFCAlgorithm = p.algorithm
	res, err := cfc.Run(ctx.Module, ctx.Oracle, ctx.Index, ctx.Config)
	if err != nil {
		return false, err
	}
	set := persist.RASMSet
	if p.algorithm == config.CFCRacfed {
		set = persist.RACFEDSet
	}
	if err := persist.Save(ctx.Config.CompiledSetDir, set, targetNames(res.Targets)); err != nil {
		return false, err
	}
	return len(res.Targets) > 0, nil
}

// insertCheckProfile wraps internal/profile.ScanModule: it is the
// profile-emitting pass itself, recording a sample for every
// synchronization point and verification block the hardening passes
// already inserted, then writing the accumulated profile to
// ctx.Config.ProfilePath. It belongs at the end of a run, after whatever
// combination of hardening passes ran before it.
type insertCheckProfile struct{}

func (insertCheckProfile) Name() string { return "aspis-insert-check-profile" }
func (insertCheckProfile) Description() string {
	return "record a profile sample for every hardening site already present in the module"
}
func (insertCheckProfile) Run(ctx *Context) (bool, error) {
	if ctx.Recorder == nil {
		ctx.Recorder = profile.NewRecorder()
	}
	before := ctx.Recorder.Samples()
	profile.ScanModule(ctx.Recorder, "pipeline", ctx.Module)
	if err := ctx.Recorder.WriteFile(ctx.Config.ProfilePath); err != nil {
		return false, err
	}
	return ctx.Recorder.Samples() > before, nil
}

// checkProfile wraps internal/profile.LoadBias: it reads a profile a
// prior aspis-insert-check-profile run emitted and populates ctx.Bias so
// a later hardening pass can bias which synchronization points get
// checks toward sites a previous run actually exercised.
type checkProfile struct{}

func (checkProfile) Name() string { return "aspis-check-profile" }
func (checkProfile) Description() string {
	return "load a previously recorded profile to bias check-point selection"
}
func (checkProfile) Run(ctx *Context) (bool, error) {
	bias, err := profile.LoadBias(ctx.Config.ProfilePath)
	if err != nil {
		return false, err
	}
	ctx.Bias = bias
	return len(bias) > 0, nil
}
