package app

import (
	"strings"

	logger "github.com/sirupsen/logrus"
)

// SetupLogger configures the global logrus logger. Unknown levels fall back to
// debug; format "json" selects the JSON formatter, anything else text.
func SetupLogger(level, format string) {
	lvl, err := logger.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logger.DebugLevel
	}
	logger.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		logger.SetFormatter(&logger.JSONFormatter{})
		return
	}
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
}
