// Package logging configures the process-wide slog logger and prints
// user-facing status lines.
//
// Debug and diagnostic output goes through log/slog on stderr. Status lines
// meant for people use the User* helpers:
//
//	logging.UserInfo("rooted %s at %s", name, root)
//	logging.UserSuccess("committed %s", rev)
//	logging.UserWarning("nothing to commit")
//	logging.UserError("%v", err)
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Setup installs a text or JSON handler on w as the slog default.
func Setup(verbose, jsonOutput bool, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// SetOutput redirects the User* helpers. Nil keeps the current writer.
func SetOutput(out, errOut io.Writer) {
	if out != nil {
		stdout = out
	}
	if errOut != nil {
		stderr = errOut
	}
}

func UserInfo(format string, args ...any) {
	fmt.Fprintf(stdout, "ℹ "+format+"\n", args...)
}

func UserSuccess(format string, args ...any) {
	fmt.Fprintf(stdout, "✓ "+format+"\n", args...)
}

func UserWarning(format string, args ...any) {
	fmt.Fprintf(stderr, "⚠ "+format+"\n", args...)
}

func UserError(format string, args ...any) {
	fmt.Fprintf(stderr, "✗ "+format+"\n", args...)
}
