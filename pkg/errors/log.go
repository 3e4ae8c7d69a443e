package errors

import (
	"fmt"
	"io"
	"os"
)

// LogHandler is a Handler that logs errors to a writer, stderr by default.
type LogHandler struct {
	// Verbose enables detailed output including stack traces.
	Verbose bool
	// Out receives log lines. Nil means os.Stderr.
	Out io.Writer
}

func (h *LogHandler) out() io.Writer {
	if h.Out != nil {
		return h.Out
	}
	return os.Stderr
}

// HandleError logs a GeoError.
func (h *LogHandler) HandleError(err *GeoError) {
	if err == nil {
		return
	}
	w := h.out()
	if h.Verbose {
		fmt.Fprintf(w, "[geo error] %s [%s]", err.Op, err.Kind)
		if err.Channel != "" {
			fmt.Fprintf(w, " channel=%s", err.Channel)
		}
		fmt.Fprintf(w, ": %v\n", err.Err)
		if err.StackTrace != "" {
			fmt.Fprintf(w, "Stack trace:\n%s\n", err.StackTrace)
		}
	} else {
		fmt.Fprintf(w, "[geo error] %s: %v\n", err.Op, err.Err)
	}
}

// HandlePanic logs a PanicError.
func (h *LogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	w := h.out()
	if err.Op != "" {
		fmt.Fprintf(w, "[geo panic] %s: %v\n", err.Op, err.Value)
	} else {
		fmt.Fprintf(w, "[geo panic] %v\n", err.Value)
	}
	if h.Verbose && err.StackTrace != "" {
		fmt.Fprintf(w, "Stack trace:\n%s\n", err.StackTrace)
	}
}
