// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package stream

import (
	"fmt"
	"strconv"
	"strings"
)

const bytesUnit = "bytes="

// ByteRange is an inclusive, zero-indexed window into a file.
type ByteRange struct {
	Start int64
	End   int64
}

// Length is the number of bytes the range covers.
func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange formats the range for the Content-Range header.
func (r ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// FullRange covers the whole of a file of the given size.
func FullRange(size int64) ByteRange {
	return ByteRange{Start: 0, End: size - 1}
}

// ParseRange parses a single "bytes=start-end" or "bytes=start-" specifier
// against a file of the given size. It reports false for anything it cannot
// honor: a missing header, a different unit, multiple ranges, suffix ranges
// ("bytes=-500"), non-numeric bounds, start > end or end >= size. Callers
// serve the full file in that case instead of replying 416.
func ParseRange(header string, size int64) (ByteRange, bool) {
	spec, ok := strings.CutPrefix(strings.TrimSpace(header), bytesUnit)
	if !ok || size <= 0 {
		return ByteRange{}, false
	}
	if strings.Contains(spec, ",") {
		return ByteRange{}, false
	}

	left, right, ok := strings.Cut(spec, "-")
	if !ok {
		return ByteRange{}, false
	}

	start, ok := parseOffset(left)
	if !ok {
		return ByteRange{}, false
	}

	end := size - 1
	if right != "" {
		if end, ok = parseOffset(right); !ok {
			return ByteRange{}, false
		}
	}

	if start > end || end >= size {
		return ByteRange{}, false
	}
	return ByteRange{Start: start, End: end}, true
}

// parseOffset accepts plain decimal digits only; signs and spaces are rejected.
func parseOffset(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
