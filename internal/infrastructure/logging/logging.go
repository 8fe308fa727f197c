package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	global zerolog.Logger
	once   sync.Once
)

func init() {
	// Safe default before Init is called.
	global = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// Init configures the global logger from LOG_LEVEL and LOG_PRETTY.
// Call once at process startup.
func Init() {
	once.Do(func() {
		var w io.Writer = os.Stdout
		if v := strings.TrimSpace(os.Getenv("LOG_PRETTY")); v == "1" || strings.EqualFold(v, "true") {
			w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
		}
		global = zerolog.New(w).Level(parseLevel(os.Getenv("LOG_LEVEL"))).With().Timestamp().Logger()
	})
}

// L returns the global logger.
func L() zerolog.Logger {
	return global
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
