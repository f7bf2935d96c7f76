// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package acquisition

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anacrolix/torrent/metainfo"
)

const magnetScheme = "magnet:"

// ErrInvalidMagnet is returned when an identifier cannot be turned into a well-formed magnet URI.
var ErrInvalidMagnet = errors.New("invalid magnet identifier")

// Magnet is a normalized magnet identifier.
type Magnet struct {
	// URI is handed to the download agent verbatim.
	URI      string
	InfoHash string
	Name     string
}

// NormalizeMagnet turns a bare info-hash or a full magnet URI into a magnet URI.
// Values already carrying the magnet scheme are kept as-is; anything else is
// wrapped as magnet:?xt=urn:btih:<identifier>. The result must parse as a magnet.
func NormalizeMagnet(identifier string) (Magnet, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return Magnet{}, fmt.Errorf("%w: empty identifier", ErrInvalidMagnet)
	}

	uri := identifier
	if !hasMagnetScheme(identifier) {
		uri = "magnet:?xt=urn:btih:" + identifier
	}

	parsed, err := metainfo.ParseMagnetUri(uri)
	if err != nil {
		return Magnet{}, fmt.Errorf("%w: %w", ErrInvalidMagnet, err)
	}

	return Magnet{
		URI:      uri,
		InfoHash: parsed.InfoHash.HexString(),
		Name:     parsed.DisplayName,
	}, nil
}

func hasMagnetScheme(s string) bool {
	return len(s) >= len(magnetScheme) && strings.EqualFold(s[:len(magnetScheme)], magnetScheme)
}
