package errors

import (
	"github.com/sirupsen/logrus"

	"github.com/go-drift/drift-spine/pkg/logger"
)

// LogHandler is a Handler that writes to the binding's logrus logger.
type LogHandler struct {
	// Verbose attaches stack traces to log entries.
	Verbose bool
}

// HandleError logs a SpineError at error level.
func (h *LogHandler) HandleError(err *SpineError) {
	if err == nil {
		return
	}
	fields := logrus.Fields{"op": err.Op, "kind": err.Kind.String()}
	if err.Channel != "" {
		fields["channel"] = err.Channel
	}
	if err.SkeletonID != 0 {
		fields["skeletonId"] = err.SkeletonID
	}
	if err.ViewID != 0 {
		fields["viewId"] = err.ViewID
	}
	if h.Verbose && err.StackTrace != "" {
		fields["stack"] = err.StackTrace
	}
	logger.L.WithFields(fields).WithError(err.Err).Error("spine error")
}

// HandlePanic logs a PanicError at error level.
func (h *LogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	entry := logger.L.WithField("panic", err.Value)
	if err.Op != "" {
		entry = entry.WithField("op", err.Op)
	}
	if h.Verbose && err.StackTrace != "" {
		entry = entry.WithField("stack", err.StackTrace)
	}
	entry.Error("spine panic recovered")
}
