// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

// RedactedStr stands in for secret config values in logs.
const RedactedStr = "<redacted>"

// RedactString hides a secret. An empty value stays empty so an unset key is
// still visible as unset.
func RedactString(s string) string {
	if s == "" {
		return ""
	}
	return RedactedStr
}
