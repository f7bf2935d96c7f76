// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package gateway

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rossoflix/rossoflix/internal/acquisition"
)

const testHash = "dd8255ecdc7ca55fb0bbf81323d87062db1f6d1c"

type fakeAcquirer struct {
	calls  atomic.Int32
	err    error
	create string
	dir    string
	data   []byte
}

func (f *fakeAcquirer) Acquire(_ context.Context, magnet acquisition.Magnet, filename string) error {
	f.calls.Add(1)
	if magnet.URI == "" {
		return acquisition.ErrInvalidMagnet
	}
	if f.err != nil {
		return f.err
	}
	if f.create != "" {
		if err := os.MkdirAll(f.dir, 0o755); err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(f.dir, f.create), f.data, 0o644)
	}
	return nil
}

func newTestService(t *testing.T, acq Acquirer) (*Service, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "media")
	svc, err := NewService(root, acq)
	require.NoError(t, err)
	return svc, root
}

func TestResolveExistingFileSkipsAcquisition(t *testing.T) {
	t.Parallel()

	acq := &fakeAcquirer{}
	svc, root := newTestService(t, acq)

	dir := filepath.Join(root, "Movie (2008)")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "movie.mp4"), make([]byte, 1000), 0o644))

	for range 3 {
		rf, err := svc.Resolve(context.Background(), testHash, "movie.mp4")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "movie.mp4"), rf.Path)
		assert.Equal(t, int64(1000), rf.Size)
		assert.False(t, rf.Acquired)
		require.NoError(t, rf.Close())
	}
	assert.Zero(t, acq.calls.Load())
}

func TestResolveAcquiresMissingFileOnce(t *testing.T) {
	t.Parallel()

	acq := &fakeAcquirer{create: "movie.mp4", data: []byte("hello world")}
	svc, root := newTestService(t, acq)
	acq.dir = root

	rf, err := svc.Resolve(context.Background(), "magnet:?xt=urn:btih:"+testHash, "movie.mp4")
	require.NoError(t, err)
	defer rf.Close()

	assert.True(t, rf.Acquired)
	assert.Equal(t, int64(11), rf.Size)
	assert.Equal(t, int32(1), acq.calls.Load())

	data, err := io.ReadAll(rf.File)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	// already on disk now
	again, err := svc.Resolve(context.Background(), testHash, "movie.mp4")
	require.NoError(t, err)
	require.NoError(t, again.Close())
	assert.Equal(t, int32(1), acq.calls.Load())
}

func TestResolveAcquisitionFailureIsNotRetried(t *testing.T) {
	t.Parallel()

	acq := &fakeAcquirer{err: acquisition.ErrAcquisitionFailed}
	svc, _ := newTestService(t, acq)

	_, err := svc.Resolve(context.Background(), testHash, "movie.mp4")
	assert.ErrorIs(t, err, acquisition.ErrAcquisitionFailed)
	assert.Equal(t, int32(1), acq.calls.Load())
}

func TestResolveMissingAfterSuccessfulAcquisition(t *testing.T) {
	t.Parallel()

	acq := &fakeAcquirer{}
	svc, _ := newTestService(t, acq)

	_, err := svc.Resolve(context.Background(), testHash, "movie.mp4")
	assert.ErrorIs(t, err, ErrFileMissingAfterAcquisition)
	assert.NotErrorIs(t, err, acquisition.ErrAcquisitionFailed)
	assert.Equal(t, int32(1), acq.calls.Load())
}

func TestResolveBadRequestBeforeAnyActivity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		identifier string
		filename   string
	}{
		{name: "empty filename", identifier: testHash, filename: ""},
		{name: "blank filename", identifier: testHash, filename: "   "},
		{name: "empty magnet", identifier: "", filename: "movie.mp4"},
		{name: "path traversal", identifier: testHash, filename: "../etc/passwd"},
		{name: "nested path", identifier: testHash, filename: "dir/movie.mp4"},
		{name: "windows separator", identifier: testHash, filename: `dir\movie.mp4`},
		{name: "dot dot", identifier: testHash, filename: ".."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			acq := &fakeAcquirer{}
			// root that does not exist yet proves nothing touched the filesystem
			svc := &Service{root: filepath.Join(t.TempDir(), "never-created"), acquirer: acq}

			_, err := svc.Resolve(context.Background(), tt.identifier, tt.filename)
			assert.ErrorIs(t, err, ErrBadRequest)
			assert.Zero(t, acq.calls.Load())
			_, statErr := os.Stat(svc.Root())
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestResolveStoredFileIgnoresMagnetFormat(t *testing.T) {
	t.Parallel()

	acq := &fakeAcquirer{}
	svc, root := newTestService(t, acq)
	require.NoError(t, os.WriteFile(filepath.Join(root, "movie.mp4"), []byte("stored"), 0o644))

	for _, identifier := range []string{"not-a-hash", "magnet:?xt=urn:btmh:1220" + testHash + testHash[:24]} {
		rf, err := svc.Resolve(context.Background(), identifier, "movie.mp4")
		require.NoError(t, err, identifier)
		assert.Equal(t, int64(6), rf.Size)
		assert.False(t, rf.Acquired)
		require.NoError(t, rf.Close())
	}
	assert.Zero(t, acq.calls.Load())
}

func TestResolveInvalidMagnetRejectedWhenDownloadNeeded(t *testing.T) {
	t.Parallel()

	acq := &fakeAcquirer{}
	svc, _ := newTestService(t, acq)

	_, err := svc.Resolve(context.Background(), "not-a-hash", "movie.mp4")
	assert.ErrorIs(t, err, ErrBadRequest)
	assert.ErrorIs(t, err, acquisition.ErrInvalidMagnet)
	assert.Zero(t, acq.calls.Load())
}

func TestResolveCancelledBeforeAcquire(t *testing.T) {
	t.Parallel()

	acq := &fakeAcquirer{}
	svc, _ := newTestService(t, acq)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Resolve(ctx, testHash, "movie.mp4")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, acq.calls.Load())
}

func TestNewServiceCreatesRoot(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "a", "b")
	svc, err := NewService(root, &fakeAcquirer{})
	require.NoError(t, err)
	assert.DirExists(t, svc.Root())

	_, err = NewService(" ", &fakeAcquirer{})
	assert.Error(t, err)
}
