// Package buildlog sets up kld's build log: every message goes to
// stderr and, mirroring original_source/src/logging.rs's two-appender
// log4rs config (a ConsoleAppender plus a FileAppender, fanned out
// from one Root logger), to a log file next to the output binary.
package buildlog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	slogmulti "github.com/samber/slog-multi"
)

// New builds a logger that writes to stderr and to <output>.log,
// truncating any log left over from a previous run, matching
// logging.rs's std::fs::remove_file("output.log") before init. verbose
// lowers both appenders' threshold from Info to Debug, the Go analogue
// of log4rs's ThresholdFilter on the console appender.
func New(outputPath string, verbose bool) (*slog.Logger, func() error, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	logPath := outputPath + ".log"
	os.Remove(logPath)
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	handler := slogmulti.Fanout(
		slog.NewTextHandler(os.Stderr, opts),
		slog.NewTextHandler(f, opts),
	)

	logger := slog.New(handler)
	return logger, f.Close, nil
}

// Discard is a logger that writes nowhere, for tests that don't care
// about build log output.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
