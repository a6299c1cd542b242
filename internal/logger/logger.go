package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Setup builds the root zerolog logger. Format "pretty" writes colorized
// console output for local development; anything else emits JSON lines.
// An unparseable level falls back to info. Packages derive their own child
// loggers from the returned root via With().Str("component", ...).
func Setup(level, format string) zerolog.Logger {
	var writer io.Writer = os.Stdout
	if format == "pretty" {
		writer = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	root := zerolog.New(writer).
		With().
		Timestamp().
		Caller().
		Logger()

	if err != nil {
		root.Warn().Str("level", level).Msg("unknown log level, using info")
	}

	return root
}
