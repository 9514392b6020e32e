// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package words provides the static, index-addressed vocabulary used to
// translate keyword indices returned by the node into display words.
//
// The table is fixed for a network release: flip authors and validators
// must resolve the same index to the same word, so the list is embedded
// in the binary and is append-only across releases.
package words

import (
	_ "embed"
	"strings"
)

//go:embed words.txt
var raw string

var vocabulary = strings.Split(strings.TrimSpace(raw), "\n")

// Word returns the display word for a vocabulary index, or the empty
// string for an out-of-range index. Indices outside the table indicate a
// node running a newer word list; the flip is still shown, just without
// that hint.
func Word(i int) string {
	if i < 0 || i >= len(vocabulary) {
		return ""
	}
	return vocabulary[i]
}

// Resolve maps a list of vocabulary indices to display words, dropping
// out-of-range indices.
func Resolve(indices []int) []string {
	out := make([]string, 0, len(indices))
	for _, i := range indices {
		if w := Word(i); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// Len reports the size of the vocabulary table.
func Len() int { return len(vocabulary) }
