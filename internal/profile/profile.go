// Package profile implements the companion profiler SPEC_FULL §6.2/§6.5
// describe: one github.com/google/pprof/profile.Profile sample recorded
// for every synchronization point and verification block a pass
// inserts, labeled by pass name and check kind, plus the converse read
// path a later run uses to bias which synchronization points get
// checks from what a prior recorded profile actually saw exercised.
package profile

import (
	"io"
	"os"

	gpprof "github.com/google/pprof/profile"
)

// SampleKind names the hardening site a recorded sample represents,
// matching the external declaration names §2's Error-Block Materializer
// row and §6.2 list.
type SampleKind string

const (
	SampleSyncPoint  SampleKind = "aspis.syncpt"
	SampleCFCPoint   SampleKind = "aspis.cfcpt"
	SampleCheckBegin SampleKind = "aspis.datacheck.begin"
	SampleCheckEnd   SampleKind = "aspis.datacheck.end"
)

// Recorder accumulates samples across one pipeline run and emits them
// as a single pprof profile.
type Recorder struct {
	prof      *gpprof.Profile
	funcs     map[string]*gpprof.Function
	nextFnID  uint64
	nextLocID uint64
}

// NewRecorder returns an empty Recorder ready to accept samples.
func NewRecorder() *Recorder {
	return &Recorder{
		prof: &gpprof.Profile{
			SampleType: []*gpprof.ValueType{{Type: "hardening_sites", Unit: "count"}},
			PeriodType: &gpprof.ValueType{Type: "hardening_sites", Unit: "count"},
			Period:     1,
		},
		funcs: map[string]*gpprof.Function{},
	}
}

// Record adds one sample for a synchronization point or verification
// block a pass inserted into function fn (block names it).
func (r *Recorder) Record(pass string, kind SampleKind, fn, block string) {
	loc := r.locationFor(fn)
	r.prof.Sample = append(r.prof.Sample, &gpprof.Sample{
		Location: []*gpprof.Location{loc},
		Value:    []int64{1},
		Label: map[string][]string{
			"pass":  {pass},
			"kind":  {string(kind)},
			"block": {block},
		},
	})
}

func (r *Recorder) locationFor(fn string) *gpprof.Location {
	f, ok := r.funcs[fn]
	if !ok {
		r.nextFnID++
		f = &gpprof.Function{ID: r.nextFnID, Name: fn, SystemName: fn}
		r.funcs[fn] = f
		r.prof.Function = append(r.prof.Function, f)
	}
	r.nextLocID++
	loc := &gpprof.Location{ID: r.nextLocID, Line: []gpprof.Line{{Function: f}}}
	r.prof.Location = append(r.prof.Location, loc)
	return loc
}

// Samples reports how many samples have been recorded so far.
func (r *Recorder) Samples() int { return len(r.prof.Sample) }

// WriteFile writes the accumulated profile to path in pprof's standard
// gzip-compressed wire format.
func (r *Recorder) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return r.prof.Write(f)
}

// Bias is the set of function/block sites a previously recorded profile
// saw hardening activity at.
type Bias map[string]bool

func biasKey(fn, block string) string { return fn + "\x00" + block }

// Hit reports whether fn/block was recorded in a prior profiling run.
func (b Bias) Hit(fn, block string) bool { return b[biasKey(fn, block)] }

// LoadBias reads a profile previously written by Recorder.WriteFile and
// returns the set of sites it recorded samples for.
func LoadBias(path string) (Bias, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readBias(f)
}

func readBias(r io.Reader) (Bias, error) {
	prof, err := gpprof.Parse(r)
	if err != nil {
		return nil, err
	}
	bias := Bias{}
	for _, s := range prof.Sample {
		var fn, block string
		if len(s.Location) > 0 && len(s.Location[0].Line) > 0 && s.Location[0].Line[0].Function != nil {
			fn = s.Location[0].Line[0].Function.Name
		}
		if bs, ok := s.Label["block"]; ok && len(bs) > 0 {
			block = bs[0]
		}
		bias[biasKey(fn, block)] = true
	}
	return bias, nil
}
