// Package fixtures builds small, self-contained IR modules standing in
// for the end-to-end programs SPEC_FULL §8's scenario table describes.
// With no front-end or backend in scope (§1), these are the toolchain's
// only realistic input: every fixture is built directly through
// internal/ir's programmatic Builder rather than parsed from a textual
// assembly form, exactly as SPEC_FULL §10.4 specifies for this
// rendering's structural/property tests. `aspis run`/`inspect`/`diff`
// (cmd/aspis) select one of these by name in place of reading a file the
// toolchain has no parser for.
package fixtures

import (
	"fmt"
	"sort"

	"aspis/internal/ir"
)

// Builder constructs a fixture module from scratch. Each fixture owns its
// own Builder func so cmd/aspis can look one up by name and each pass's
// tests can import the same fixture instead of redefining it inline.
type Builder func() *ir.Module

var registry = map[string]Builder{
	"fact":      buildFactorial,
	"loopsum":   buildLoopSum,
	"switch5":   buildSwitchFive,
	"xorcipher": buildXORCipher,
	"counter":   buildGlobalCounter,
}

// Names returns every registered fixture name, sorted, for CLI help text.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build returns the named fixture's module, or an error if the name is
// not registered.
func Build(name string) (*ir.Module, error) {
	b, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("fixtures: unknown fixture %q (known: %v)", name, Names())
	}
	return b(), nil
}

// buildFactorial is scenario 1: recursive fact(5) == 120. fact calls
// itself recursively and multiplies; EDDI's recursive-call duplication
// (§4.4.3) and RBR's return-by-reference rewrite (§4.3) both exercise
// this fixture's single self-call.
func buildFactorial() *ir.Module {
	m := ir.NewModule("fact")

	fact := &ir.Function{Name: "fact", ReturnType: ir.I32()}
	n := fact.AddParam("n", ir.I32())
	m.AddFunction(fact)

	b := ir.NewBuilder(fact)
	entry := fact.Entry()
	baseBlock := fact.AddBlock("base")
	recurBlock := fact.AddBlock("recur")

	b.SetBlock(entry)
	one := b.Const("one", ir.I32(), int64(1))
	isBase := b.Compare("is.base", ir.CmpLE, false, n.Value, one)
	b.Branch(isBase, baseBlock, recurBlock)

	b.SetBlock(baseBlock)
	b.Ret(one)

	b.SetBlock(recurBlock)
	nMinusOne := b.Binary("n.minus.one", ir.OpSub, ir.I32(), n.Value, one)
	sub := b.Call("sub.result", fact, nMinusOne)
	product := b.Binary("product", ir.OpMul, ir.I32(), n.Value, sub)
	b.Ret(product)

	return m
}

// buildLoopSum is scenario 4: a loop summing 0..=i with a continue at
// i==1 and a break at i==3, expected result 2. Exercises PHI repair
// across the loop header/body/exit split CFC's verification-block
// insertion performs (§4.6).
func buildLoopSum() *ir.Module {
	m := ir.NewModule("loopsum")

	f := &ir.Function{Name: "loop_sum", ReturnType: ir.I32()}
	m.AddFunction(f)

	b := ir.NewBuilder(f)
	header := b.NewBlock("header")
	skip := b.NewBlock("skip")
	accumulate := b.NewBlock("accumulate")
	exit := b.NewBlock("exit")

	entry := f.Entry()
	b.SetBlock(entry)
	zero := b.Const("zero", ir.I32(), int64(0))
	one := b.Const("one", ir.I32(), int64(1))
	three := b.Const("three", ir.I32(), int64(3))
	b.Jump(header)

	b.SetBlock(header)
	iPhi := b.Phi("i", ir.I32())
	sumPhi := b.Phi("sum", ir.I32())
	b.AddIncoming(iPhi, entry, zero)
	b.AddIncoming(sumPhi, entry, zero)
	isBreak := b.Compare("is.break", ir.CmpEQ, false, iPhi.Res, three)
	b.Branch(isBreak, exit, skip)

	b.SetBlock(skip)
	isContinue := b.Compare("is.continue", ir.CmpEQ, false, iPhi.Res, one)
	skipI := b.Binary("skip.i", ir.OpAdd, ir.I32(), iPhi.Res, one)
	b.Branch(isContinue, header, accumulate)
	// continue edge advances i and restates the unmodified sum, matching
	// a C `continue` in a for loop that skips the accumulation for i==1
	b.AddIncoming(iPhi, skip, skipI)
	b.AddIncoming(sumPhi, skip, sumPhi.Res)

	b.SetBlock(accumulate)
	newSum := b.Binary("new.sum", ir.OpAdd, ir.I32(), sumPhi.Res, iPhi.Res)
	newI := b.Binary("new.i", ir.OpAdd, ir.I32(), iPhi.Res, one)
	b.Jump(header)
	b.AddIncoming(iPhi, accumulate, newI)
	b.AddIncoming(sumPhi, accumulate, newSum)

	b.SetBlock(exit)
	b.Ret(sumPhi.Res)

	return m
}

// buildSwitchFive is scenario 5: switch(3) over cases {0,1,2,3,4}
// mapping to {100,200,250,300,400}, expecting 300. A >2-target switch
// like this one is exactly what SPEC_FULL §4.6.3/§8 requires RASM/RACFED
// to reject without prior lowering, so this fixture exists to drive that
// rejection path rather than to be hardened successfully.
func buildSwitchFive() *ir.Module {
	m := ir.NewModule("switch5")

	f := &ir.Function{Name: "dispatch", ReturnType: ir.I32()}
	m.AddFunction(f)

	b := ir.NewBuilder(f)
	entry := f.Entry()
	cases := []int64{0, 1, 2, 3, 4}
	results := []int64{100, 200, 250, 300, 400}
	dests := make([]*ir.BasicBlock, len(cases))
	for i := range cases {
		dests[i] = f.AddBlock(fmt.Sprintf("case.%d", cases[i]))
	}
	defaultBlock := f.AddBlock("default")

	b.SetBlock(entry)
	selector := b.Const("selector", ir.I32(), int64(3))
	swCases := make([]ir.SwitchCase, len(cases))
	for i, c := range cases {
		cv := b.Const(fmt.Sprintf("case.val.%d", c), ir.I32(), c)
		swCases[i] = ir.SwitchCase{Value: cv, Dest: dests[i]}
	}
	entry.SetTerminator(&ir.SwitchTerminator{Condition: selector, Cases: swCases, Default: defaultBlock})

	for i, c := range cases {
		b.SetBlock(dests[i])
		rv := b.Const(fmt.Sprintf("result.%d", c), ir.I32(), results[i])
		b.Ret(rv)
	}
	b.SetBlock(defaultBlock)
	b.Ret(b.Const("default.result", ir.I32(), int64(-1)))

	return m
}

// buildXORCipher is scenario 2: an annotated-duplicate key global and an
// annotated-duplicate process routine that XORs one byte with the key.
// The fixture holds only the routine and the key; no function here runs
// the round trip over "HELLOWORLD".
// Exercises annotation-driven forced duplication of both a function and
// a global (§4.4.1, §4.4.3's to_duplicate call-site cloning rule).
func buildXORCipher() *ir.Module {
	m := ir.NewModule("xorcipher")

	key := ir.NewGlobalVariable("cipher_key", ir.I32())
	key.Initializer = int64(0x5A)
	m.AddGlobal(key)
	m.Annotate("cipher_key", "to_duplicate")

	process := &ir.Function{Name: "xor_process", ReturnType: ir.I32()}
	byteParam := process.AddParam("b", ir.I32())
	m.AddFunction(process)
	m.Annotate("xor_process", "to_duplicate")

	b := ir.NewBuilder(process)
	k := b.Load("k", ir.I32(), key.Addr)
	result := b.Binary("result", ir.OpXor, ir.I32(), byteParam.Value, k)
	b.Ret(result)

	return m
}

// buildGlobalCounter is scenario 6: a global counter that one function
// increments by one and another reads, counter annotated to_duplicate.
// No function in the fixture calls the incrementing one.
// Exercises the globals post-propagator's cross-function store/load
// cloning (§4.5) when the incrementing function is outside the compiled
// set.
func buildGlobalCounter() *ir.Module {
	m := ir.NewModule("counter")

	counter := ir.NewGlobalVariable("counter", ir.I32())
	counter.Initializer = int64(0)
	m.AddGlobal(counter)
	m.Annotate("counter", "to_duplicate")

	counterPtr := counter.Addr

	increment := &ir.Function{Name: "increment", ReturnType: ir.Void()}
	m.AddFunction(increment)
	ib := ir.NewBuilder(increment)
	cur := ib.Load("cur", ir.I32(), counterPtr)
	one := ib.Const("one", ir.I32(), int64(1))
	next := ib.Binary("next", ir.OpAdd, ir.I32(), cur, one)
	ib.Store(counterPtr, next)
	ib.Ret(nil)

	read := &ir.Function{Name: "read_counter", ReturnType: ir.I32()}
	m.AddFunction(read)
	rb := ir.NewBuilder(read)
	v := rb.Load("v", ir.I32(), counterPtr)
	rb.Ret(v)

	return m
}
