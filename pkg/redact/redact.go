// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package redact provides utilities for redacting sensitive information from URLs, magnets and errors.
package redact

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// sensitiveParams lists query parameter names that should be redacted (case-insensitive).
var sensitiveParams = []string{"apikey", "api_key", "passkey", "token", "password"}

// sensitiveParamRegex matches sensitive query parameters in a string.
// Used as a fallback when URL parsing fails or for error message redaction.
var sensitiveParamRegex = regexp.MustCompile(`(?i)(apikey|api_key|passkey|token|password)=([^&\s]*)`)

// userinfoPasswordRegex matches user:password@ patterns in URLs
var userinfoPasswordRegex = regexp.MustCompile(`(://[^/:@\s]+):([^@\s]+)@`)

// URLString redacts sensitive query parameter values in a URL string.
// Also redacts passwords in userinfo (user:pass@host).
// If the URL cannot be parsed, a regex fallback performs the same redaction.
func URLString(raw string) string {
	if raw == "" {
		return raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return String(raw)
	}

	modified := false

	if parsed.User != nil {
		if _, hasPass := parsed.User.Password(); hasPass {
			parsed.User = url.UserPassword(parsed.User.Username(), "REDACTED")
			modified = true
		}
	}

	query := parsed.Query()
	for _, param := range sensitiveParams {
		// url.Values keys are case-sensitive
		for key := range query {
			if strings.EqualFold(key, param) {
				query[key] = []string{"REDACTED"}
				modified = true
			}
		}
	}

	if !modified {
		return raw
	}

	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// URLError wraps a *url.Error (if present) with a redacted URL.
// If err is or wraps *url.Error, returns a cloned error with the URL redacted.
// Otherwise returns err unchanged.
func URLError(err error) error {
	if err == nil {
		return nil
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &url.Error{
			Op:  urlErr.Op,
			URL: URLString(urlErr.URL),
			Err: urlErr.Err,
		}
	}

	return err
}

// String redacts sensitive query parameter values and userinfo passwords in any string.
// Useful for error messages that may contain URLs or URL fragments.
func String(s string) string {
	if s == "" {
		return s
	}
	result := sensitiveParamRegex.ReplaceAllString(s, "${1}=REDACTED")
	return userinfoPasswordRegex.ReplaceAllString(result, "${1}:REDACTED@")
}

// Magnet drops tracker announce URLs from a magnet URI.
// Private trackers embed passkeys in their announce paths, so trackers never reach the logs.
// Non-magnet input is passed through String.
func Magnet(uri string) string {
	rest, ok := strings.CutPrefix(uri, "magnet:?")
	if !ok {
		return String(uri)
	}

	parts := strings.Split(rest, "&")
	kept := parts[:0]
	dropped := 0
	for _, part := range parts {
		key, _, _ := strings.Cut(part, "=")
		if strings.EqualFold(key, "tr") || strings.HasPrefix(strings.ToLower(key), "tr.") {
			dropped++
			continue
		}
		kept = append(kept, part)
	}
	if dropped == 0 {
		return uri
	}
	return "magnet:?" + strings.Join(kept, "&")
}

// BasicAuthUser redacts the password from a basic auth credential string.
// "user:password" -> "user:REDACTED"
func BasicAuthUser(cred string) string {
	if cred == "" {
		return cred
	}
	idx := strings.Index(cred, ":")
	if idx < 0 {
		return cred
	}
	return cred[:idx+1] + "REDACTED"
}
