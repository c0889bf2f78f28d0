// Package logging centralizes the glog verbosity levels every pass and the
// CLI driver log at, so a level name never gets hand-picked twice.
// internal/pipeline already calls glog directly at V(1)/V(2) for
// pass-start/pass-result lines; this package gives the CLI layer and the
// passes that don't already have a convention the same fixed levels.
package logging

import (
	"flag"
	"strconv"

	"github.com/golang/glog"

	"aspis/internal/config"
)

// Verbosity levels used consistently across the pipeline:
//
//	V(0) (Infof/Warningf/Errorf) — always emitted, user-facing summary
//	V(1) — one line per pass invocation
//	V(2) — one line per structural change a pass makes
//	V(3) — per-instruction/per-block tracing, only under -v=3
const (
	levelPass   glog.Level = 1
	levelDetail glog.Level = 2
	levelTrace  glog.Level = 3
)

// SetVerbosity maps a config.LogLevel to glog's -v flag equivalent so the
// CLI's --log-level option controls the same knob glog.V checks read.
func SetVerbosity(level config.LogLevel) {
	var v int
	switch level {
	case config.LogError, config.LogWarn:
		v = 0
	case config.LogInfo:
		v = int(levelPass)
	case config.LogDebug:
		v = int(levelTrace)
	default:
		v = int(levelPass)
	}
	if err := flag.Set("v", strconv.Itoa(v)); err != nil {
		glog.Warningf("logging: could not set verbosity: %v", err)
	}
}

// Pass logs a pass-start line at the standard per-pass verbosity.
func Pass(format string, args ...interface{}) {
	glog.V(levelPass).Infof(format, args...)
}

// Detail logs a structural-change line at the standard per-change verbosity.
func Detail(format string, args ...interface{}) {
	glog.V(levelDetail).Infof(format, args...)
}

// Trace logs fine-grained per-instruction/per-block tracing.
func Trace(format string, args ...interface{}) {
	glog.V(levelTrace).Infof(format, args...)
}

// Warnf always logs a warning, independent of verbosity.
func Warnf(format string, args ...interface{}) {
	glog.Warningf(format, args...)
}

// Fatalf always logs and then terminates the process, matching glog's own
// Fatalf semantics (used only by the CLI driver, never by a pass, which
// must return an error instead).
func Fatalf(format string, args ...interface{}) {
	glog.Fatalf(format, args...)
}
