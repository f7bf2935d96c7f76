// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package acquisition

import (
	"os/exec"
	"runtime"
)

func lookShell() (string, error) {
	if runtime.GOOS == "windows" {
		return "", exec.ErrNotFound
	}
	return exec.LookPath("sh")
}
