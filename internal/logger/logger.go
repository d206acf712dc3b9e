package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/markdave123-py/ivyready/internal/config"
)

// Init configures the global zerolog logger from cfg.
// LogFormat "text" writes a console format, anything else JSON. When LogFile is
// set, records are also written to a rotated file.
func Init(cfg *config.Config) {
	var logWriter io.Writer
	if cfg.LogFormat == "text" {
		logWriter = zerolog.ConsoleWriter{Out: os.Stderr}
	} else {
		logWriter = os.Stderr
	}

	if cfg.LogFile != "" {
		logWriter = io.MultiWriter(
			logWriter,
			&lumberjack.Logger{
				Filename:   cfg.LogFile,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
			})
	}

	log.Logger = zerolog.New(logWriter).With().Timestamp().Str("service", "ivyready").Logger()
	zerolog.SetGlobalLevel(ParseLevel(cfg.LogLevel))
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch level {
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
