package engine

import (
	"os"

	"github.com/rs/zerolog"
)

// NewLogHandler returns a LogHandler that routes engine log messages through
// logger. A severity-0 message terminates the process with exit(1) after the
// text is surfaced; advisory severities map onto log levels without touching
// control flow. A nil exit falls back to os.Exit.
func NewLogHandler(logger zerolog.Logger, exit func(code int)) LogHandler {
	if exit == nil {
		exit = os.Exit
	}

	return func(severity int, text string) {
		switch {
		case severity == SeverityFatal:
			logger.Error().Int("severity", severity).Str("engine_message", text).Msg("engine reported a fatal error")
			exit(1)
		case severity == 1:
			logger.Error().Int("severity", severity).Msg(text)
		case severity == 2:
			logger.Warn().Int("severity", severity).Msg(text)
		default:
			logger.Debug().Int("severity", severity).Msg(text)
		}
	}
}
