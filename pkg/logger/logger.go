// Package logger provides the logrus-backed logger shared by the Spine
// binding. Code that has a context should log through G(ctx); code without
// one uses L directly.
package logger

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// G returns the logger attached to a context, falling back to L.
	G = GetLogger
	// L is the package-wide logger entry.
	L = logrus.NewEntry(newLogger()).WithField("component", "spine")
)

type loggerKey struct{}

// WithLogger attaches a logger entry to ctx so that G(ctx) returns it.
func WithLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, entry.WithContext(ctx))
}

// GetLogger returns the logger stored in ctx, or L bound to ctx.
func GetLogger(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return L
	}
	if entry, ok := ctx.Value(loggerKey{}).(*logrus.Entry); ok {
		return entry
	}
	return L.WithContext(ctx)
}

func newLogger() *logrus.Logger {
	l := logrus.New()
	setFormat(l, "text")
	return l
}

func setFormat(l *logrus.Logger, format string) {
	switch format {
	case "json":
		l.Formatter = &logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano}
	default:
		l.Formatter = &logrus.TextFormatter{
			TimestampFormat: time.RFC3339Nano,
			FullTimestamp:   true,
		}
	}
}

// SetLevel parses and applies a level name such as "debug" or "warn".
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	L.Logger.SetLevel(lvl)
	return nil
}

// SetFormat switches between "text" and "json" output.
func SetFormat(format string) {
	setFormat(L.Logger, format)
}

// SetOutput redirects log output.
func SetOutput(w io.Writer) {
	L.Logger.SetOutput(w)
}
