// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package flip

import (
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePayload(t *testing.T, images [][]byte, orders [][][]byte) []byte {
	t.Helper()
	data, err := rlp.EncodeToBytes(wirePayload{Images: images, Orders: orders})
	require.NoError(t, err)
	return data
}

func TestDecode_ValidPayload(t *testing.T) {
	payload := encodePayload(t,
		[][]byte{{0x89, 0x50, 0x4e}, {0x89, 0x50, 0x47}},
		[][][]byte{
			{{0x01}, {0x00}, {0x03}},
			{{0x02}, {}, {0x01}}, // empty element defaults to index 0
		},
	)
	p := Decode(Flip{Hash: "a", Fetched: true, Payload: payload})

	require.NotNil(t, p.Decoded)
	assert.True(t, *p.Decoded)
	assert.Nil(t, p.Failed)
	assert.Len(t, p.Images, 2)
	assert.Equal(t, [][]int{{1, 0, 3}, {2, 0, 1}}, p.Orders)
	assert.Equal(t, []byte{}, p.Payload, "raw payload is cleared after decode")
}

func TestDecode_MalformedPayload(t *testing.T) {
	p := Decode(Flip{Hash: "bad", Fetched: true, Payload: []byte{0xff, 0x00, 0x13}})

	require.NotNil(t, p.Decoded)
	assert.False(t, *p.Decoded)
	require.NotNil(t, p.Failed)
	assert.True(t, *p.Failed)
	assert.Nil(t, p.Images)
	assert.Nil(t, p.Orders)
}

func TestDecodeBatch_IsolatesFailures(t *testing.T) {
	good := encodePayload(t, [][]byte{{0x01}}, [][][]byte{{{0x00}}})
	flips := []Flip{
		{Hash: "ok-1", Fetched: true, Payload: good},
		{Hash: "bad", Fetched: true, Payload: []byte("not rlp at all")},
		{Hash: "ok-2", Fetched: true, Payload: good},
	}

	patches := DecodeBatch(flips)

	require.Len(t, patches, 3)
	assert.True(t, *patches[0].Decoded)
	assert.False(t, *patches[1].Decoded)
	assert.True(t, *patches[2].Decoded)
}
