// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package acquisition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildArguments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		vars     map[string]string
		want     []string
	}{
		{
			name:     "default template",
			template: DefaultArgsTemplate,
			vars: map[string]string{
				VarDir:      "/srv/media",
				VarFilename: "movie.mp4",
				VarTrackers: "udp://a:1,udp://b:2",
				VarMagnet:   "magnet:?xt=urn:btih:" + testHash,
			},
			want: []string{
				"--dir=/srv/media",
				"--out=movie.mp4",
				"--seed-time=0",
				"--enable-dht=true",
				"--enable-peer-exchange=true",
				"--bt-tracker=udp://a:1,udp://b:2",
				"magnet:?xt=urn:btih:" + testHash,
			},
		},
		{
			name:     "values with spaces stay one argument",
			template: "--dir={dir} --out={filename} {magnet}",
			vars: map[string]string{
				VarDir:      "/srv/my media",
				VarFilename: "Big Buck Bunny (2008).mp4",
				VarMagnet:   "magnet:?xt=urn:btih:" + testHash + "&dn=a b",
			},
			want: []string{
				"--dir=/srv/my media",
				"--out=Big Buck Bunny (2008).mp4",
				"magnet:?xt=urn:btih:" + testHash + "&dn=a b",
			},
		},
		{
			name:     "quoted template segments",
			template: `--out "{filename}" --comment 'hello world'`,
			vars:     map[string]string{VarFilename: "a.mp4"},
			want:     []string{"--out", "a.mp4", "--comment", "hello world"},
		},
		{
			name:     "unknown placeholders are left alone",
			template: "{dir} {unknown}",
			vars:     map[string]string{VarDir: "/tmp"},
			want:     []string{"/tmp", "{unknown}"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := BuildArguments(tt.template, tt.vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildArgumentsErrors(t *testing.T) {
	t.Parallel()

	_, err := BuildArguments("   ", nil)
	assert.Error(t, err)

	_, err = BuildArguments(`--out "unterminated`, nil)
	assert.Error(t, err)
}

func TestJoinTrackers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "udp://a:1,udp://b:2", JoinTrackers([]string{" udp://a:1 ", "", "udp://b:2"}))
	assert.Empty(t, JoinTrackers(nil))
	assert.NotEmpty(t, JoinTrackers(DefaultTrackers))
}
