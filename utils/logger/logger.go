package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the logging interface the rest of the codebase depends on.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
}

// logrusLogger satisfies Logger by embedding; logrus already provides
// every method the interface asks for.
type logrusLogger struct {
	*logrus.Logger
}

// NewLogger builds a logger writing to stdout. Level is one of debug,
// info, warn, error (anything else falls back to info); format is
// "json" or text.
func NewLogger(level, format string) Logger {
	return newLogger(level, format, os.Stdout)
}

func newLogger(level, format string, out io.Writer) Logger {
	l := logrus.New()
	l.SetOutput(out)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	l.SetLevel(parsed)

	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			ForceColors:     true,
		})
	}

	return &logrusLogger{Logger: l}
}
