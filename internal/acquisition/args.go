// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package acquisition

import (
	"fmt"
	"strings"

	shellquote "github.com/Hellseher/go-shellquote"
)

// DefaultBinary is the download agent looked up on PATH.
const DefaultBinary = "aria2c"

// DefaultArgsTemplate drives aria2c: no seeding once done, DHT and peer exchange
// on, and extra public trackers for magnets that carry none.
const DefaultArgsTemplate = `--dir={dir} --out={filename} --seed-time=0 --enable-dht=true --enable-peer-exchange=true --bt-tracker={trackers} {magnet}`

// DefaultTrackers are public UDP announce URLs appended to every acquisition.
var DefaultTrackers = []string{
	"udp://tracker.opentrackr.org:1337/announce",
	"udp://open.stealth.si:80/announce",
	"udp://tracker.torrent.eu.org:451/announce",
	"udp://exodus.desync.com:6969/announce",
	"udp://open.demonii.com:1337/announce",
	"udp://explodie.org:6969/announce",
	"udp://tracker.tiny-vps.com:6969/announce",
	"udp://tracker.openbittorrent.com:6969/announce",
}

// Template placeholders understood by BuildArguments.
const (
	VarDir      = "dir"
	VarFilename = "filename"
	VarTrackers = "trackers"
	VarMagnet   = "magnet"
)

// BuildArguments splits the args template with shell quoting rules and then
// substitutes {placeholders} inside each argument. Substitution happens after
// splitting, so values with spaces stay a single argument and need no quoting.
// The result is suitable for exec.Command.
func BuildArguments(template string, vars map[string]string) ([]string, error) {
	if strings.TrimSpace(template) == "" {
		return nil, fmt.Errorf("empty argument template")
	}

	args, err := shellquote.Split(template)
	if err != nil {
		return nil, fmt.Errorf("failed to split argument template: %w", err)
	}

	for i := range args {
		for key, value := range vars {
			args[i] = strings.ReplaceAll(args[i], "{"+key+"}", value)
		}
	}

	return args, nil
}

// JoinTrackers formats announce URLs the way aria2c's --bt-tracker expects them.
func JoinTrackers(trackers []string) string {
	cleaned := make([]string, 0, len(trackers))
	for _, tr := range trackers {
		if tr = strings.TrimSpace(tr); tr != "" {
			cleaned = append(cleaned, tr)
		}
	}
	return strings.Join(cleaned, ",")
}
