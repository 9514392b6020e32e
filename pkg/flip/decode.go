// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package flip

import (
	"github.com/ethereum/go-ethereum/rlp"
)

// wirePayload is the serialized container format of a flip payload: an
// RLP list of image byte-buffers followed by a list of per-image index
// orderings. Each ordering element is a byte string whose first byte is
// the index; an empty element defaults to index 0.
type wirePayload struct {
	Images [][]byte
	Orders [][][]byte
}

// Decode attempts to decode a fetched flip's raw payload into its image
// blobs and normalized integer orderings.
//
// Decode never returns an error: malformed input yields a patch marking
// the flip failed, leaving images and orders absent. Batching across
// items is the caller's concern; see DecodeBatch.
func Decode(f Flip) Patch {
	var w wirePayload
	if err := rlp.DecodeBytes(f.Payload, &w); err != nil {
		decoded, failed := false, true
		return Patch{Hash: f.Hash, Decoded: &decoded, Failed: &failed}
	}
	orders := make([][]int, len(w.Orders))
	for i, order := range w.Orders {
		orders[i] = make([]int, len(order))
		for j, idx := range order {
			if len(idx) > 0 {
				orders[i][j] = int(idx[0])
			}
		}
	}
	decoded := true
	return Patch{
		Hash:    f.Hash,
		Decoded: &decoded,
		Images:  w.Images,
		Orders:  orders,
		Payload: []byte{}, // raw payload is only needed until decode
	}
}

// DecodeBatch decodes every flip in the batch, tolerating individual
// failures: a malformed payload marks only that flip failed and the rest
// of the batch proceeds.
func DecodeBatch(flips []Flip) []Patch {
	patches := make([]Patch, len(flips))
	for i, f := range flips {
		patches[i] = Decode(f)
	}
	return patches
}
