// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogManager handles log configuration with safe runtime reconfiguration.
type LogManager struct {
	switchable  *switchableWriter
	version     string
	mu          sync.Mutex
	initialized atomic.Bool
}

// NewLogManager creates a new LogManager with the given version string.
func NewLogManager(version string) *LogManager {
	return &LogManager{
		switchable: newSwitchableWriter(baseLogWriter(version)),
		version:    version,
	}
}

// Initialize sets up the global logger to use the switchable writer.
// This should only be called once during application startup.
func (lm *LogManager) Initialize() {
	if lm.initialized.Swap(true) {
		return
	}
	// Keep the logger itself at trace so the global level can change at runtime
	// without mutating log.Logger.
	log.Logger = log.Logger.Output(lm.switchable).Level(zerolog.TraceLevel)
}

// Apply updates the log configuration with the given settings.
// Returns an error if file logging is requested but cannot be enabled.
func (lm *LogManager) Apply(level, logPath string, maxSize, maxBackups int) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	setLogLevel(level)

	newWriter, newCloser, err := lm.buildWriter(baseLogWriter(lm.version), logPath, maxSize, maxBackups)
	if err != nil {
		return err
	}

	if oldCloser := lm.switchable.Swap(newWriter, newCloser); oldCloser != nil {
		if closeErr := oldCloser.Close(); closeErr != nil {
			log.Debug().Err(closeErr).Msg("Failed to close old log rotator")
		}
	}

	return nil
}

// Close releases the current log file, falling back to console output.
func (lm *LogManager) Close() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if oldCloser := lm.switchable.Swap(baseLogWriter(lm.version), nil); oldCloser != nil {
		return oldCloser.Close()
	}
	return nil
}

func (lm *LogManager) buildWriter(baseWriter io.Writer, logPath string, maxSize, maxBackups int) (io.Writer, io.Closer, error) {
	if logPath == "" {
		return baseWriter, nil, nil
	}

	dir := filepath.Dir(logPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	if maxSize <= 0 {
		maxSize = 50
	}
	if maxBackups < 0 {
		maxBackups = 0
	}

	rotator := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
	}
	return io.MultiWriter(baseWriter, rotator), rotator, nil
}

// baseLogWriter is pretty console output for dev builds and JSON otherwise.
func baseLogWriter(version string) io.Writer {
	if version == "" || strings.HasSuffix(version, "-dev") || version == "dev" {
		return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return os.Stderr
}

func setLogLevel(level string) {
	switch canonicalizeLogLevel(level) {
	case "TRACE":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "DEBUG":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "WARN":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "ERROR":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// switchableWriter is an io.Writer whose target can be swapped atomically.
type switchableWriter struct {
	target atomic.Pointer[writerWithCloser]
}

type writerWithCloser struct {
	w      io.Writer
	closer io.Closer // optional, may be nil
}

func newSwitchableWriter(initial io.Writer) *switchableWriter {
	sw := &switchableWriter{}
	sw.target.Store(&writerWithCloser{w: initial})
	return sw
}

func (sw *switchableWriter) Write(p []byte) (int, error) {
	target := sw.target.Load()
	if target == nil || target.w == nil {
		return len(p), nil
	}
	return target.w.Write(p) //nolint:wrapcheck // io.Writer interface compliance
}

// Swap replaces the underlying writer and returns the old closer, which the caller must close.
func (sw *switchableWriter) Swap(newWriter io.Writer, newCloser io.Closer) io.Closer {
	old := sw.target.Swap(&writerWithCloser{w: newWriter, closer: newCloser})
	if old != nil {
		return old.closer
	}
	return nil
}
