// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects the level and destination.
type Config struct {
	Level string // debug, info, warn or error; empty means info
	File  string // rotating log file, empty logs to stdout

	MaxSizeMB  int // rotation threshold, default 64
	MaxBackups int // rotated files kept, default 5
	MaxAgeDays int // default 14
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
}

// New returns a JSON logger and the writer behind it. Close the writer on shutdown
// when it is an io.Closer. An invalid level falls back to info and is reported
// through the returned logger.
func New(cfg Config) (*slog.Logger, io.Writer) {
	var w io.Writer = os.Stdout
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		if lj.MaxSize <= 0 {
			lj.MaxSize = 64 // MB
		}
		if lj.MaxBackups <= 0 {
			lj.MaxBackups = 5
		}
		if lj.MaxAge <= 0 {
			lj.MaxAge = 14
		}
		w = lj
	}

	lvl, levelErr := ParseLevel(cfg.Level)
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
	if levelErr != nil {
		logger.Warn("invalid log level, using info", "value", cfg.Level)
	}

	logger.Debug("logger started",
		"goos", runtime.GOOS,
		"goarch", runtime.GOARCH,
		"num_cpu", runtime.NumCPU(),
		"file", cfg.File,
	)
	return logger, w
}
