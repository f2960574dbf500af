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
	"testing"

	"github.com/stretchr/testify/assert"
)

const samplePatch = `@@ -10,7 +10,8 @@ func connect() error {
 	pool := newPool()
-	conn, err := pool.Get()
+	conn, err := pool.GetContext(ctx)
+	defer conn.Close()
 	if err != nil {
 		return err
 	}`

func TestPatchStats(t *testing.T) {
	adds, dels, ok := PatchStats(samplePatch)
	assert.True(t, ok)
	assert.Equal(t, 2, adds)
	assert.Equal(t, 1, dels)
}

func TestPatchStatsEmptyAndGarbage(t *testing.T) {
	for _, patch := range []string{"", "   ", "not a diff at all"} {
		_, _, ok := PatchStats(patch)
		assert.False(t, ok, "patch %q should not parse", patch)
	}
}

func TestFillPatchStatsRecomputesZeros(t *testing.T) {
	files := fillPatchStats([]ChangeFile{
		{Filename: "a.go", Patch: samplePatch},
		{Filename: "b.go", Patch: samplePatch, Additions: 9, Deletions: 9},
		{Filename: "c.go"},
	})

	assert.Equal(t, 2, files[0].Additions)
	assert.Equal(t, 1, files[0].Deletions)

	// Reported counts win over the recomputation.
	assert.Equal(t, 9, files[1].Additions)
	assert.Equal(t, 9, files[1].Deletions)

	// No patch text, nothing to recompute.
	assert.Zero(t, files[2].Additions)
	assert.Zero(t, files[2].Deletions)
}
