// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package changes

import (
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// PatchStats parses a unified-diff hunk body (the GitHub `patch` field) and
// counts added and deleted lines. ok is false when the text does not parse
// as hunks; callers then keep whatever counts the source reported.
func PatchStats(patch string) (additions, deletions int, ok bool) {
	if strings.TrimSpace(patch) == "" {
		return 0, 0, false
	}

	hunks, err := diff.ParseHunks([]byte(patch))
	if err != nil || len(hunks) == 0 {
		return 0, 0, false
	}

	for _, h := range hunks {
		for _, line := range strings.Split(string(h.Body), "\n") {
			switch {
			case strings.HasPrefix(line, "+"):
				additions++
			case strings.HasPrefix(line, "-"):
				deletions++
			}
		}
	}
	return additions, deletions, true
}

// fillPatchStats recomputes zero addition/deletion counts from the patch
// text. GitHub file entries occasionally arrive with counts stripped (e.g.
// from older webhook payload replays); the patch itself is authoritative.
func fillPatchStats(files []ChangeFile) []ChangeFile {
	for i, f := range files {
		if f.Patch == "" || f.Additions != 0 || f.Deletions != 0 {
			continue
		}
		if adds, dels, ok := PatchStats(f.Patch); ok {
			files[i].Additions = adds
			files[i].Deletions = dels
		}
	}
	return files
}
