// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/rossoflix/rossoflix/internal/acquisition"
	"github.com/rossoflix/rossoflix/internal/gateway"
	"github.com/rossoflix/rossoflix/internal/stream"
)

// retryAfterSeconds is sent with 503 when a download outlived its deadline.
const retryAfterSeconds = 30

type Resolver interface {
	Resolve(ctx context.Context, identifier, filename string) (*gateway.ResolvedFile, error)
}

type StreamRecorder interface {
	StreamServed(status int, written int64)
}

type StreamHandler struct {
	resolver  Resolver
	responder *stream.Responder
	recorder  StreamRecorder
}

func NewStreamHandler(resolver Resolver, responder *stream.Responder, recorder StreamRecorder) *StreamHandler {
	return &StreamHandler{
		resolver:  resolver,
		responder: responder,
		recorder:  recorder,
	}
}

// ServeStream handles GET /stream?magnet=&filename=. The file is downloaded
// first if it is not in storage, then served with Range support.
func (h *StreamHandler) ServeStream(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	magnet := query.Get("magnet")
	filename := query.Get("filename")

	logger := log.With().Str("filename", filename).Logger()

	resolved, err := h.resolver.Resolve(r.Context(), magnet, filename)
	if err != nil {
		status, message := streamErrorStatus(err)
		if status == 0 {
			logger.Debug().Err(err).Msg("Client went away before stream started")
			return
		}
		if status >= http.StatusInternalServerError {
			logger.Error().Err(err).Int("status", status).Msg("Failed to resolve stream")
		} else {
			logger.Debug().Err(err).Int("status", status).Msg("Rejected stream request")
		}
		if status == http.StatusServiceUnavailable {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		}
		h.record(status, 0)
		RespondError(w, status, message)
		return
	}
	defer resolved.Close()

	res, err := h.responder.Serve(w, r, resolved.File, resolved.Size)
	switch {
	case err == nil:
		h.record(res.Status, res.Written)
		logger.Debug().
			Int("status", res.Status).
			Int64("start", res.Range.Start).
			Int64("end", res.Range.End).
			Int64("size", resolved.Size).
			Bool("acquired", resolved.Acquired).
			Msg("Stream served")
	case !res.HeaderWritten:
		logger.Error().Err(err).Str("path", resolved.Path).Msg("Failed to start stream")
		h.record(http.StatusInternalServerError, 0)
		RespondError(w, http.StatusInternalServerError, "Failed to read file")
	case errors.Is(err, stream.ErrStreamIO):
		h.record(res.Status, res.Written)
		logger.Error().Err(err).Str("path", resolved.Path).Int64("written", res.Written).Msg("Stream aborted by read error")
		// Headers are out; dropping the connection is the only way to signal failure.
		panic(http.ErrAbortHandler)
	default:
		h.record(res.Status, res.Written)
		logger.Debug().Err(err).Int64("written", res.Written).Msg("Client closed stream")
	}
}

func (h *StreamHandler) record(status int, written int64) {
	if h.recorder != nil {
		h.recorder.StreamServed(status, written)
	}
}

// streamErrorStatus maps resolution failures to a status and client message.
// A zero status means the client is gone and nothing should be written.
func streamErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, context.Canceled):
		return 0, ""
	case errors.Is(err, gateway.ErrBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, acquisition.ErrAcquisitionTimeout):
		return http.StatusServiceUnavailable, "Download timed out, try again later"
	case errors.Is(err, acquisition.ErrAcquisitionFailed):
		return http.StatusInternalServerError, "Download failed"
	case errors.Is(err, gateway.ErrFileMissingAfterAcquisition):
		return http.StatusNotFound, "File not found"
	case errors.Is(err, gateway.ErrOpenFailed):
		return http.StatusInternalServerError, "Failed to open file"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "Request timed out"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
