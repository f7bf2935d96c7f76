// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/rossoflix/rossoflix/internal/cache"
	"github.com/rossoflix/rossoflix/internal/upstream"
)

type MovieSource interface {
	Configured() bool
	Search(ctx context.Context, query string, page int, kind string) (*upstream.SearchResult, error)
	Detail(ctx context.Context, imdbID string) (json.RawMessage, error)
}

type StreamSource interface {
	Movie(ctx context.Context, imdbID string) (json.RawMessage, error)
	Episode(ctx context.Context, imdbID string, season, episode int) (json.RawMessage, error)
}

// MetadataHandler proxies movie metadata and torrent listings through the response cache.
type MetadataHandler struct {
	cache   *cache.Cache
	movies  MovieSource
	streams StreamSource
	ttl     time.Duration
}

func NewMetadataHandler(c *cache.Cache, movies MovieSource, streams StreamSource, ttl time.Duration) *MetadataHandler {
	return &MetadataHandler{
		cache:   c,
		movies:  movies,
		streams: streams,
		ttl:     ttl,
	}
}

func (h *MetadataHandler) Routes(r chi.Router) {
	r.Get("/search", h.Search)
	r.Get("/movie/{imdbID}", h.MovieDetail)
	r.Get("/torrentio/movie/{imdbID}", h.TorrentioMovie)
	r.Get("/torrentio/show/{imdbID}/{season}/{episode}", h.TorrentioEpisode)
}

// Search handles GET /search?q=&page=1&type=movie.
func (h *MetadataHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := query.Get("q")
	if strings.TrimSpace(q) == "" {
		RespondError(w, http.StatusBadRequest, "q is required")
		return
	}

	page := 1
	if raw := query.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			RespondError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		page = n
	}

	kind := query.Get("type")
	if kind == "" {
		kind = "movie"
	}

	if !h.movies.Configured() {
		RespondError(w, http.StatusServiceUnavailable, "OMDb API key is not configured")
		return
	}

	h.respondCached(w, r, cache.SearchKey(q, page, kind), func(ctx context.Context) (json.RawMessage, error) {
		result, err := h.movies.Search(ctx, q, page, kind)
		if err != nil {
			return nil, err
		}
		return json.Marshal(result)
	})
}

// MovieDetail handles GET /movie/{imdbID}.
func (h *MetadataHandler) MovieDetail(w http.ResponseWriter, r *http.Request) {
	imdbID, ok := imdbIDParam(w, r)
	if !ok {
		return
	}
	if !h.movies.Configured() {
		RespondError(w, http.StatusServiceUnavailable, "OMDb API key is not configured")
		return
	}

	h.respondCached(w, r, cache.DetailKey(imdbID), func(ctx context.Context) (json.RawMessage, error) {
		return h.movies.Detail(ctx, imdbID)
	})
}

// TorrentioMovie handles GET /torrentio/movie/{imdbID}.
func (h *MetadataHandler) TorrentioMovie(w http.ResponseWriter, r *http.Request) {
	imdbID, ok := imdbIDParam(w, r)
	if !ok {
		return
	}

	h.respondCached(w, r, cache.MovieStreamsKey(imdbID), func(ctx context.Context) (json.RawMessage, error) {
		return h.streams.Movie(ctx, imdbID)
	})
}

// TorrentioEpisode handles GET /torrentio/show/{imdbID}/{season}/{episode}.
func (h *MetadataHandler) TorrentioEpisode(w http.ResponseWriter, r *http.Request) {
	imdbID, ok := imdbIDParam(w, r)
	if !ok {
		return
	}

	season, err := strconv.Atoi(chi.URLParam(r, "season"))
	if err != nil || season < 0 {
		RespondError(w, http.StatusBadRequest, "season must be a non-negative integer")
		return
	}
	episode, err := strconv.Atoi(chi.URLParam(r, "episode"))
	if err != nil || episode < 0 {
		RespondError(w, http.StatusBadRequest, "episode must be a non-negative integer")
		return
	}

	h.respondCached(w, r, cache.EpisodeStreamsKey(imdbID, season, episode), func(ctx context.Context) (json.RawMessage, error) {
		return h.streams.Episode(ctx, imdbID, season, episode)
	})
}

func (h *MetadataHandler) respondCached(w http.ResponseWriter, r *http.Request, key string, compute cache.ComputeFunc) {
	body, err := h.cache.GetOrCompute(r.Context(), key, h.ttl, compute)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			return
		case errors.Is(err, upstream.ErrUpstream):
			log.Warn().Err(err).Str("key", key).Msg("Upstream request failed")
			RespondError(w, http.StatusBadGateway, err.Error())
		default:
			log.Error().Err(err).Str("key", key).Msg("Failed to build metadata response")
			RespondError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	RespondRawJSON(w, http.StatusOK, body)
}

func imdbIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	imdbID := strings.TrimSpace(chi.URLParam(r, "imdbID"))
	if imdbID == "" {
		RespondError(w, http.StatusBadRequest, "imdb id is required")
		return "", false
	}
	return imdbID, true
}
