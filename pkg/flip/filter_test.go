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
)

func TestEveryFetched(t *testing.T) {
	tests := []struct {
		name  string
		flips []Flip
		want  bool
	}{
		{"empty list", nil, false},
		{"all fetched", []Flip{{Hash: "a", Fetched: true}, {Hash: "b", Fetched: true}}, true},
		{"one pending", []Flip{{Hash: "a", Fetched: true}, {Hash: "b"}}, false},
		{"decode failure still counts as fetched", []Flip{{Hash: "a", Fetched: true, Failed: true}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EveryFetched(tt.flips))
		})
	}
}

func TestClassification(t *testing.T) {
	flips := []Flip{
		{Hash: "pending", Ready: true},
		{Hash: "fetched", Ready: true, Fetched: true},
		{Hash: "decoded", Ready: true, Fetched: true, Decoded: true},
		{Hash: "failed", Ready: true, Fetched: true, Failed: true},
		{Hash: "extra-decoded", Ready: true, Fetched: true, Decoded: true, Extra: true},
		{Hash: "extra-pending", Extra: true},
	}

	assert.Equal(t, []string{"pending", "extra-pending"}, Hashes(WaitingForFetch(flips)))
	assert.Len(t, ReadyFlips(flips), 5)
	assert.Equal(t, []string{"pending"}, Hashes(WaitingForFetch(ReadyFlips(flips))))
	assert.Equal(t, []string{"fetched"}, Hashes(WaitingForDecode(flips)))
	assert.Equal(t, []string{"pending", "fetched", "failed"}, Hashes(FailedFlips(flips)))
	assert.Equal(t, []string{"pending", "fetched", "decoded", "failed"}, Hashes(RegularFlips(flips)))
	assert.Equal(t, []string{"extra-decoded"}, Hashes(ExtraFlips(flips)))
	assert.Equal(t, []string{"decoded"}, Hashes(SolvableFlips(flips)))
}

func TestAnswered(t *testing.T) {
	assert.False(t, Flip{}.Answered())
	assert.False(t, Flip{Option: 0}.Answered())
	assert.True(t, Flip{Option: 1}.Answered())
}

func TestFromHashes(t *testing.T) {
	flips := FromHashes([]HashEntry{{Hash: "a", Ready: true}, {Hash: "b", Extra: true}})

	assert.Equal(t, []string{"a", "b"}, Hashes(flips))
	assert.True(t, flips[0].Ready)
	assert.False(t, flips[0].Extra)
	assert.False(t, flips[1].Ready)
	assert.True(t, flips[1].Extra)
}
