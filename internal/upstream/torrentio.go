// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

const (
	DefaultTorrentioBaseURL = "https://torrentio.strem.fun"
	upstreamTorrentio       = "torrentio"
)

// Torrentio lists torrent streams for movies and episodes. Responses are passed through as-is.
type Torrentio struct {
	client  *Client
	baseURL string
}

func NewTorrentio(client *Client, baseURL string) *Torrentio {
	if baseURL == "" {
		baseURL = DefaultTorrentioBaseURL
	}
	return &Torrentio{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (t *Torrentio) Movie(ctx context.Context, imdbID string) (json.RawMessage, error) {
	return t.client.getJSON(ctx, upstreamTorrentio, fmt.Sprintf("%s/stream/movie/%s.json", t.baseURL, url.PathEscape(imdbID)))
}

func (t *Torrentio) Episode(ctx context.Context, imdbID string, season, episode int) (json.RawMessage, error) {
	return t.client.getJSON(ctx, upstreamTorrentio, fmt.Sprintf("%s/stream/series/%s/%d-%d/.json", t.baseURL, url.PathEscape(imdbID), season, episode))
}
