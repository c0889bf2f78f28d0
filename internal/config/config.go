// Package config defines the single configuration object threaded through
// every pass, mirroring the pipeline's externally visible options.
package config

// CFCAlgorithm selects the control-flow protection discipline.
type CFCAlgorithm string

const (
	CFCRasm   CFCAlgorithm = "rasm"
	CFCRacfed CFCAlgorithm = "racfed"
)

// CheckPoint names a synchronization point EDDI can insert a consistency
// check at.
type CheckPoint string

const (
	CheckStore  CheckPoint = "store"
	CheckBranch CheckPoint = "branch"
	CheckReturn CheckPoint = "return"
	CheckCall   CheckPoint = "call"
)

// LogLevel mirrors glog's verbosity knob at the config layer so callers
// don't need to know glog flag names.
type LogLevel string

const (
	LogError LogLevel = "error"
	LogWarn  LogLevel = "warn"
	LogInfo  LogLevel = "info"
	LogDebug LogLevel = "debug"
)

// Config is constructed once by the CLI driver and passed by pointer to
// every registered pass. Passes never read flags or the environment
// directly.
type Config struct {
	AlternateMemmap bool
	DuplicateSec    string
	EnableProfiling bool
	DebugEnabled    bool
	CFCAlgorithm    CFCAlgorithm
	CheckPoints     map[CheckPoint]bool
	CompiledSetDir  string
	LogLevel        LogLevel
	ProfilePath     string
}

// Default returns a Config with every field set to its documented default.
func Default() *Config {
	return &Config{
		AlternateMemmap: false,
		DuplicateSec:    ".dup_data",
		EnableProfiling: false,
		DebugEnabled:    false,
		CFCAlgorithm:    CFCRasm,
		CheckPoints: map[CheckPoint]bool{
			CheckStore:  true,
			CheckBranch: true,
		},
		CompiledSetDir: ".",
		LogLevel:       LogInfo,
		ProfilePath:    "aspis.profile.pb.gz",
	}
}

// HasCheckPoint reports whether checks are enabled at the given
// synchronization point.
func (c *Config) HasCheckPoint(cp CheckPoint) bool {
	return c.CheckPoints[cp]
}
