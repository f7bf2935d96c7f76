// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cache

import (
	"fmt"
	"strings"
)

func SearchKey(query string, page int, kind string) string {
	return fmt.Sprintf("search:q=%s:page=%d:type=%s", strings.TrimSpace(query), page, kind)
}

func DetailKey(imdbID string) string {
	return "detail:" + imdbID
}

func MovieStreamsKey(imdbID string) string {
	return "torrentio:movie:" + imdbID
}

func EpisodeStreamsKey(imdbID string, season, episode int) string {
	return fmt.Sprintf("torrentio:show:%s:S%dE%d", imdbID, season, episode)
}
