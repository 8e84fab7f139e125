// Package logging builds the service logger.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

// New creates a logger writing to stdout
func New(level, format string) *logrus.Logger {
	return NewWithOutput(level, format, os.Stdout)
}

// NewWithOutput creates a logger with the given level name ("debug", "info",
// "warn", "error") and format ("text" or "json"). Unknown values fall back to
// info and text.
func NewWithOutput(level, format string, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(parseLevel(level))

	switch format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
		})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
		})
	}
	return logger
}

func parseLevel(level string) logrus.Level {
	switch level {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
