// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRange(t *testing.T) {
	t.Parallel()

	const size = 1000

	tests := []struct {
		name   string
		header string
		want   ByteRange
		ok     bool
	}{
		{name: "closed range", header: "bytes=500-599", want: ByteRange{500, 599}, ok: true},
		{name: "open ended", header: "bytes=900-", want: ByteRange{900, 999}, ok: true},
		{name: "single byte", header: "bytes=0-0", want: ByteRange{0, 0}, ok: true},
		{name: "last byte", header: "bytes=999-999", want: ByteRange{999, 999}, ok: true},
		{name: "whole file", header: "bytes=0-999", want: ByteRange{0, 999}, ok: true},
		{name: "surrounding whitespace", header: "  bytes=1-2 ", want: ByteRange{1, 2}, ok: true},
		{name: "empty header", header: ""},
		{name: "end past size", header: "bytes=0-1000"},
		{name: "start past size", header: "bytes=1000-"},
		{name: "start after end", header: "bytes=600-500"},
		{name: "suffix range", header: "bytes=-500"},
		{name: "non numeric start", header: "bytes=abc-10"},
		{name: "non numeric end", header: "bytes=0-xyz"},
		{name: "negative end", header: "bytes=5--1"},
		{name: "signed start", header: "bytes=+5-10"},
		{name: "missing dash", header: "bytes=100"},
		{name: "wrong unit", header: "items=0-10"},
		{name: "multi range", header: "bytes=0-10,20-30"},
		{name: "overflow", header: "bytes=99999999999999999999-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := ParseRange(tt.header, size)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseRangeEmptyFile(t *testing.T) {
	t.Parallel()

	_, ok := ParseRange("bytes=0-", 0)
	assert.False(t, ok)
}

func TestByteRangeHelpers(t *testing.T) {
	t.Parallel()

	r := ByteRange{Start: 500, End: 599}
	assert.Equal(t, int64(100), r.Length())
	assert.Equal(t, "bytes 500-599/1000", r.ContentRange(1000))
	assert.Equal(t, ByteRange{Start: 0, End: 999}, FullRange(1000))
}
