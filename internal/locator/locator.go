// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package locator resolves a logical media filename to a file somewhere under the storage root.
package locator

import (
	"context"
	"io/fs"
	"path/filepath"
)

// Locate walks root depth-first and returns the path of the first regular file
// whose base name equals filename exactly. Traversal errors of any kind are
// treated as absence: a missing or unreadable root is indistinguishable from an
// empty one. Sibling order is whatever the directory listing yields, so callers
// must not rely on which duplicate wins.
func Locate(ctx context.Context, root, filename string) (string, bool) {
	if root == "" || filename == "" {
		return "", false
	}

	var found string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			// Unreadable root or subtree: skip it and keep walking.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		// Don't follow symlinked directories
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		if d.Name() == filename {
			found = path
			return fs.SkipAll
		}
		return nil
	})

	return found, found != ""
}
