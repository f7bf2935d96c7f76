// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package acquisition

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	shellquote "github.com/Hellseher/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/rossoflix/rossoflix/pkg/redact"
)

var (
	// ErrAcquisitionFailed is returned when the download agent could not be started or exited non-zero.
	ErrAcquisitionFailed = errors.New("acquisition failed")
	// ErrAcquisitionTimeout is returned when the agent was still running when its deadline passed.
	ErrAcquisitionTimeout = errors.New("acquisition timed out")
)

// outputTailSize bounds how much of the agent's output is kept for error reporting.
const outputTailSize = 4 << 10

// Runner executes an external program and waits for it to exit.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs programs with os/exec. The process is killed when ctx ends.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = 5 * time.Second

	tail := &tailBuffer{limit: outputTailSize}
	cmd.Stdout = tail
	cmd.Stderr = tail

	if err := cmd.Run(); err != nil {
		if out := strings.TrimSpace(tail.String()); out != "" {
			return fmt.Errorf("%w: %s", err, lastLine(out))
		}
		return err
	}
	return nil
}

// AgentConfig configures the external download agent.
type AgentConfig struct {
	Binary       string
	ArgsTemplate string
	Trackers     []string
	Runner       Runner
}

// Agent fetches a named file for a magnet into a directory by running an
// external BitTorrent client to completion.
type Agent struct {
	binary       string
	argsTemplate string
	trackers     string
	runner       Runner
}

// NewAgent returns an Agent, filling unset fields with the aria2c defaults.
func NewAgent(cfg AgentConfig) *Agent {
	a := &Agent{
		binary:       strings.TrimSpace(cfg.Binary),
		argsTemplate: strings.TrimSpace(cfg.ArgsTemplate),
		runner:       cfg.Runner,
	}
	if a.binary == "" {
		a.binary = DefaultBinary
	}
	if a.argsTemplate == "" {
		a.argsTemplate = DefaultArgsTemplate
	}
	if cfg.Trackers == nil {
		a.trackers = JoinTrackers(DefaultTrackers)
	} else {
		a.trackers = JoinTrackers(cfg.Trackers)
	}
	if a.runner == nil {
		a.runner = ExecRunner{}
	}
	return a
}

// Acquire runs the agent for magnet, asking it to write filename into dir.
// It returns once the agent exits. Success only means the agent exited cleanly;
// callers must check that the file actually exists.
func (a *Agent) Acquire(ctx context.Context, magnet Magnet, dir, filename string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create storage dir: %w", ErrAcquisitionFailed, err)
	}

	args, err := BuildArguments(a.argsTemplate, map[string]string{
		VarDir:      dir,
		VarFilename: filename,
		VarTrackers: a.trackers,
		VarMagnet:   magnet.URI,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAcquisitionFailed, err)
	}

	logArgs := make([]string, len(args))
	for i, arg := range args {
		logArgs[i] = redact.Magnet(arg)
	}

	logger := log.With().
		Str("infoHash", magnet.InfoHash).
		Str("filename", filename).
		Logger()
	logger.Info().
		Str("command", shellquote.Join(append([]string{a.binary}, logArgs...)...)).
		Msg("starting download agent")

	start := time.Now()
	runErr := a.runner.Run(ctx, a.binary, args...)
	elapsed := time.Since(start)

	switch {
	case runErr == nil:
		logger.Info().Dur("elapsed", elapsed).Msg("download agent finished")
		return nil
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		logger.Warn().Dur("elapsed", elapsed).Msg("download agent timed out")
		return fmt.Errorf("%w after %s", ErrAcquisitionTimeout, elapsed.Round(time.Second))
	default:
		logger.Error().Err(runErr).Dur("elapsed", elapsed).Msg("download agent failed")
		return fmt.Errorf("%w: %w", ErrAcquisitionFailed, runErr)
	}
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(p)
	if len(p) >= t.limit {
		t.buf.Reset()
		t.buf.Write(p[len(p)-t.limit:])
		return n, nil
	}
	if over := t.buf.Len() + len(p) - t.limit; over > 0 {
		t.buf.Next(over)
	}
	t.buf.Write(p)
	return n, nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}

func lastLine(s string) string {
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[idx+1:])
	}
	return s
}

func isTimeout(err error) bool {
	return errors.Is(err, ErrAcquisitionTimeout)
}
