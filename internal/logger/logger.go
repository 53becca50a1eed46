package logger

import (
	"io"
	"os"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how the logger writes
type Options struct {
	Level  string
	Format string
	// File, when set, receives a copy of every entry and is rotated by size
	File   string
	Output io.Writer
}

// New builds a logger from opts. Unknown levels fall back to info.
func New(opts Options) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	switch opts.Format {
	case "text":
		logger.SetFormatter(&formatter.Formatter{
			NoColors:        true,
			TimestampFormat: "2006-01-02 15:04:05.000",
			HideKeys:        false,
			FieldsOrder:     []string{"request_id", "source", "event_type"},
		})
	default:
		// Set JSON formatter for structured logging
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	writers := []io.Writer{out}
	if opts.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 3,
		})
	}
	logger.SetOutput(io.MultiWriter(writers...))

	return logger
}

// Discard returns a logger that drops everything, for tests and the CLI's quiet mode
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
