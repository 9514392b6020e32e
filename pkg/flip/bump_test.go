// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package flip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bumpFixture(failed, extras int) []Flip {
	var flips []Flip
	for i := 0; i < failed; i++ {
		flips = append(flips, Flip{Hash: hashOf("failed", i), Fetched: true, Failed: true})
	}
	flips = append(flips, Flip{Hash: "solved", Fetched: true, Decoded: true})
	for i := 0; i < extras; i++ {
		flips = append(flips, Flip{Hash: hashOf("extra", i), Fetched: true, Decoded: true, Extra: true})
	}
	return flips
}

func hashOf(kind string, i int) string {
	return kind + "-" + string(rune('a'+i))
}

func TestBumpExtras_ReplacesMinOfFailedAndExtras(t *testing.T) {
	tests := []struct {
		name         string
		failed       int
		extras       int
		wantReplaced int
	}{
		{"more extras than failures", 2, 4, 2},
		{"exactly enough extras", 3, 3, 3},
		{"too few extras", 4, 1, 1},
		{"no failures", 0, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flips := bumpFixture(tt.failed, tt.extras)
			patches, replaced := BumpExtras(flips)
			assert.Equal(t, tt.wantReplaced, replaced)

			merged := Merge(flips, patches)
			assert.Len(t, SolvableFlips(merged), 1+tt.wantReplaced,
				"each replacement adds one solvable regular flip")
		})
	}
}

func TestBumpExtras_LeftoverFailuresStayFailed(t *testing.T) {
	flips := bumpFixture(3, 1)

	patches, replaced := BumpExtras(flips)
	require.Equal(t, 1, replaced)

	merged := Merge(flips, patches)
	stillFailed := FailedFlips(merged)
	assert.Len(t, stillFailed, 2, "exactly F-E items remain failed")
	for _, f := range stillFailed {
		assert.True(t, f.Failed)
		assert.False(t, f.Answered(), "unreplaced failures stay unanswerable")
	}
}

func TestBumpExtras_SwappedFlipsTradeExtraFlag(t *testing.T) {
	flips := bumpFixture(1, 1)

	patches, replaced := BumpExtras(flips)
	require.Equal(t, 1, replaced)

	merged := Merge(flips, patches)
	byHash := map[string]Flip{}
	for _, f := range merged {
		byHash[f.Hash] = f
	}
	assert.True(t, byHash["failed-a"].Extra, "failed regular flip moves to the reserve pool")
	assert.False(t, byHash["extra-a"].Extra, "reserve flip is promoted to regular")
	assert.True(t, byHash["extra-a"].Decoded)
}

func TestBumpExtras_NoUsableExtras(t *testing.T) {
	flips := []Flip{
		{Hash: "failed", Fetched: true, Failed: true},
		{Hash: "extra-undecoded", Extra: true}, // not decoded, unusable
	}

	patches, replaced := BumpExtras(flips)

	assert.Zero(t, replaced)
	assert.Empty(t, patches)
}
