// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package gateway resolves a magnet and filename to an open file on local
// storage, downloading it first when it is not there yet.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/rossoflix/rossoflix/internal/acquisition"
	"github.com/rossoflix/rossoflix/internal/locator"
)

var (
	// ErrBadRequest covers missing or unusable request parameters.
	ErrBadRequest = errors.New("bad request")
	// ErrFileMissingAfterAcquisition is returned when the agent exited cleanly but the file never appeared.
	ErrFileMissingAfterAcquisition = errors.New("file missing after acquisition")
	// ErrOpenFailed is returned when a located file could not be opened or stat'ed.
	ErrOpenFailed = errors.New("failed to open file")
)

// Acquirer downloads filename for magnet into the storage root.
type Acquirer interface {
	Acquire(ctx context.Context, magnet acquisition.Magnet, filename string) error
}

// ResolvedFile is an open, located media file. The caller owns File and must close it.
type ResolvedFile struct {
	Path     string
	File     *os.File
	Size     int64
	Acquired bool
}

// Close releases the file handle.
func (r *ResolvedFile) Close() error {
	if r == nil || r.File == nil {
		return nil
	}
	return r.File.Close()
}

// Service composes lookup, acquisition and opening.
type Service struct {
	root     string
	acquirer Acquirer
}

// NewService returns a Service rooted at root, creating the directory if needed.
func NewService(root string, acquirer Acquirer) (*Service, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Service{root: root, acquirer: acquirer}, nil
}

// Root returns the storage directory.
func (s *Service) Root() string {
	return s.root
}

// Resolve returns filename opened for reading. When it is not under the
// storage root yet, magnet is downloaded once and the tree is searched again.
// Empty parameters and unusable filenames are rejected before the filesystem
// is touched; the magnet itself is only parsed when a download is needed.
func (s *Service) Resolve(ctx context.Context, identifier, filename string) (*ResolvedFile, error) {
	if err := ValidateFilename(filename); err != nil {
		return nil, err
	}
	if strings.TrimSpace(identifier) == "" {
		return nil, fmt.Errorf("%w: magnet is required", ErrBadRequest)
	}

	path, found := locator.Locate(ctx, s.root, filename)
	acquired := false
	if !found {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Only the download needs a well-formed magnet; stored files are served by name.
		magnet, err := acquisition.NormalizeMagnet(identifier)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
		logger := log.With().Str("filename", filename).Str("infoHash", magnet.InfoHash).Logger()

		logger.Info().Msg("file not in storage, acquiring")
		if err := s.acquirer.Acquire(ctx, magnet, filename); err != nil {
			return nil, err
		}
		acquired = true

		path, found = locator.Locate(ctx, s.root, filename)
		if !found {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			logger.Error().Msg("download agent succeeded but file is still missing")
			return nil, fmt.Errorf("%w: %s", ErrFileMissingAfterAcquisition, filename)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	return &ResolvedFile{
		Path:     path,
		File:     f,
		Size:     info.Size(),
		Acquired: acquired,
	}, nil
}

// ValidateFilename rejects names that cannot be a single on-disk file name.
func ValidateFilename(filename string) error {
	switch {
	case strings.TrimSpace(filename) == "":
		return fmt.Errorf("%w: filename is required", ErrBadRequest)
	case filename == "." || filename == "..":
		return fmt.Errorf("%w: invalid filename %q", ErrBadRequest, filename)
	case strings.ContainsAny(filename, `/\`), strings.ContainsRune(filename, 0):
		return fmt.Errorf("%w: filename must not contain path separators", ErrBadRequest)
	}
	return nil
}
