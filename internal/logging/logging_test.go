package logging

import (
	"testing"

	"aspis/internal/config"
)

func TestSetVerbosityAcceptsEveryLogLevel(t *testing.T) {
	levels := []config.LogLevel{
		config.LogError,
		config.LogWarn,
		config.LogInfo,
		config.LogDebug,
		config.LogLevel("unrecognized"),
	}
	for _, lvl := range levels {
		SetVerbosity(lvl)
	}
}

func TestHelpersDoNotPanic(t *testing.T) {
	Pass("pass %s", "eddi-verify")
	Detail("detail %d", 1)
	Trace("trace %s", "block")
	Warnf("warn %s", "annotation")
}
