package app

import (
	"os"
	"strings"

	"github.com/petervdpas/codespace/internal/config"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("app")

// LogLevelEnv overrides the configured level, e.g. "debug" or
// "preview=debug,lua=warn".
const LogLevelEnv = "CODESPACE_LOG_LEVEL"

// SetupLogging applies the configured level. Debug mode wins over the
// configured level; the environment wins over both.
func SetupLogging(v config.Viewer) {
	level := v.LogLevel
	if level == "" {
		level = "info"
	}
	if v.Debug {
		level = "debug"
	}
	applyLevel(level)

	if env := strings.TrimSpace(os.Getenv(LogLevelEnv)); env != "" {
		applyLevel(env)
	}
}

func applyLevel(spec string) {
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if name, lvl, ok := strings.Cut(part, "="); ok {
			if err := logging.SetLogLevel(name, lvl); err != nil {
				log.Warnf("log level %q: %v", part, err)
			}
			continue
		}
		l, err := logging.LevelFromString(part)
		if err != nil {
			log.Warnf("log level %q: %v", part, err)
			continue
		}
		logging.SetAllLoggers(l)
	}
}
