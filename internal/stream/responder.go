// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package stream

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// DefaultContentType is declared for every streamed file. Content is never sniffed or transcoded.
const DefaultContentType = "video/mp4"

var (
	// ErrStreamIO is returned when the file could not be read mid-response.
	// Headers are already on the wire by then, so the connection must be dropped.
	ErrStreamIO = errors.New("stream read failed")
	// ErrClientGone is returned when the client stopped reading before the window was sent.
	ErrClientGone = errors.New("client went away")
)

// Result describes a finished response.
type Result struct {
	Status  int
	Range   ByteRange
	Written int64
	// HeaderWritten reports whether the status line went out.
	HeaderWritten bool
}

// Responder writes a byte window of a file as a 200 or 206 response.
type Responder struct {
	contentType string
	pool        *BufferPool
}

// NewResponder returns a Responder declaring contentType and reading chunkSize bytes at a time.
func NewResponder(contentType string, chunkSize int) *Responder {
	if contentType == "" {
		contentType = DefaultContentType
	}
	return &Responder{
		contentType: contentType,
		pool:        NewBufferPool(chunkSize),
	}
}

// ChunkSize is the number of bytes read and flushed per write.
func (s *Responder) ChunkSize() int {
	return s.pool.Size()
}

// Serve answers r from f, which holds size bytes. A satisfiable Range header
// yields 206 with just that window; anything else yields 200 with the whole
// file. The body is copied chunk by chunk and flushed after each write so the
// player can start as soon as the first chunk lands.
//
// A seek failure is returned before anything is written, so the caller can
// still reply with an error status. Serve does not close f.
func (s *Responder) Serve(w http.ResponseWriter, r *http.Request, f io.ReadSeeker, size int64) (Result, error) {
	res := Result{Status: http.StatusOK, Range: FullRange(size)}
	if br, ok := ParseRange(r.Header.Get("Range"), size); ok {
		res.Status = http.StatusPartialContent
		res.Range = br
	}

	length := res.Range.Length()
	if size <= 0 {
		length = 0
	}

	if length > 0 && res.Range.Start > 0 {
		if _, err := f.Seek(res.Range.Start, io.SeekStart); err != nil {
			return res, fmt.Errorf("%w: seek to %d: %w", ErrStreamIO, res.Range.Start, err)
		}
	}

	h := w.Header()
	h.Set("Content-Type", s.contentType)
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Length", strconv.FormatInt(length, 10))
	if res.Status == http.StatusPartialContent {
		h.Set("Content-Range", res.Range.ContentRange(size))
	}

	w.WriteHeader(res.Status)
	res.HeaderWritten = true
	if r.Method == http.MethodHead || length == 0 {
		return res, nil
	}

	written, err := s.copyWindow(w, r, f, length)
	res.Written = written
	return res, err
}

func (s *Responder) copyWindow(w http.ResponseWriter, r *http.Request, src io.Reader, remaining int64) (int64, error) {
	bufp := s.pool.Get()
	defer s.pool.Put(bufp)
	buf := *bufp

	rc := http.NewResponseController(w)
	ctx := r.Context()

	var written int64
	for remaining > 0 {
		if err := ctx.Err(); err != nil {
			return written, fmt.Errorf("%w: %w", ErrClientGone, err)
		}

		chunk := buf
		if int64(len(chunk)) > remaining {
			chunk = chunk[:remaining]
		}

		n, readErr := src.Read(chunk)
		if n > 0 {
			if _, err := w.Write(chunk[:n]); err != nil {
				return written, fmt.Errorf("%w: %w", ErrClientGone, err)
			}
			written += int64(n)
			remaining -= int64(n)
			if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
				return written, fmt.Errorf("%w: %w", ErrClientGone, err)
			}
		}

		if readErr != nil {
			if remaining == 0 {
				break
			}
			if errors.Is(readErr, io.EOF) {
				readErr = io.ErrUnexpectedEOF
			}
			return written, fmt.Errorf("%w: %w", ErrStreamIO, readErr)
		}
	}
	return written, nil
}
