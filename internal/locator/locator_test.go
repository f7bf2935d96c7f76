// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package locator

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, data string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func TestLocate(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "top.mkv"), "a")
	writeFile(t, filepath.Join(root, "Show", "Season 1", "episode.mp4"), "b")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "movie.mp4"), 0o755)) // directory, not a file

	tests := []struct {
		name     string
		filename string
		wantPath string
		wantOK   bool
	}{
		{name: "top level", filename: "top.mkv", wantPath: filepath.Join(root, "top.mkv"), wantOK: true},
		{name: "nested", filename: "episode.mp4", wantPath: filepath.Join(root, "Show", "Season 1", "episode.mp4"), wantOK: true},
		{name: "directory with matching name is ignored", filename: "movie.mp4"},
		{name: "case sensitive", filename: "TOP.mkv"},
		{name: "no extension inference", filename: "top"},
		{name: "missing", filename: "absent.mp4"},
		{name: "empty name", filename: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.name == "case sensitive" && (runtime.GOOS == "darwin" || runtime.GOOS == "windows") {
				t.Skip("case-insensitive filesystem")
			}
			path, ok := Locate(context.Background(), root, tt.filename)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}

func TestLocateMissingRootIsNotFound(t *testing.T) {
	path, ok := Locate(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"), "movie.mp4")
	assert.False(t, ok)
	assert.Empty(t, path)
}

func TestLocateDuplicatesReturnsOneOfThem(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a", "movie.mp4")
	b := filepath.Join(root, "b", "movie.mp4")
	writeFile(t, a, "1")
	writeFile(t, b, "2")

	path, ok := Locate(context.Background(), root, "movie.mp4")
	require.True(t, ok)
	assert.Contains(t, []string{a, b}, path)
}

func TestLocateSeesNewFilesWithoutCaching(t *testing.T) {
	root := t.TempDir()

	_, ok := Locate(context.Background(), root, "late.mp4")
	require.False(t, ok)

	writeFile(t, filepath.Join(root, "late.mp4"), "x")

	path, ok := Locate(context.Background(), root, "late.mp4")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "late.mp4"), path)
}

func TestLocateCancelledContext(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "movie.mp4"), "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := Locate(ctx, root, "movie.mp4")
	assert.False(t, ok)
}
