package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ParseLevel maps a config level name to a zerolog level; unknown names mean info
func ParseLevel(name string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New builds a console logger writing to w, or stderr when w is nil.
// If logFile is not nil the same records are also written there without colours.
func New(level string, w io.Writer, logFile io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	var out io.Writer = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	if logFile != nil {
		out = zerolog.MultiLevelWriter(
			out,
			zerolog.ConsoleWriter{Out: logFile, TimeFormat: time.RFC3339, NoColor: true},
		)
	}
	return zerolog.New(out).Level(ParseLevel(level)).With().Timestamp().Logger()
}
