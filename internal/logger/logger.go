package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/Domenick1991/cargobooking/config"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

var Log zerolog.Logger

func Init(cfg config.LogConfig) {
	InitWithWriter(os.Stdout, cfg)
}

// InitWithWriter builds the process logger and installs it as the zerolog
// global. Unknown levels fall back to info; any format other than "json"
// is rendered for the console.
func InitWithWriter(w io.Writer, cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var l zerolog.Logger
	if strings.EqualFold(cfg.Format, "json") {
		l = zerolog.New(w).With().Timestamp().Logger().Level(level)
	} else {
		l = zerolog.New(zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger().Level(level)
	}

	Log = l
	zlog.Logger = l
}

// Component returns the global logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return zlog.Logger.With().Str("component", name).Logger()
}
