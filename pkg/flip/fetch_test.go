// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package flip

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFetcher resolves each hash according to a fixed script.
type stubFetcher struct {
	mu       sync.Mutex
	payloads map[string][]byte
	missing  map[string]bool
	failing  map[string]bool
	calls    []string
}

func (s *stubFetcher) Flip(_ context.Context, hash string) ([]byte, bool, error) {
	s.mu.Lock()
	s.calls = append(s.calls, hash)
	s.mu.Unlock()
	switch {
	case s.failing[hash]:
		return nil, false, errors.New("connection refused")
	case s.missing[hash]:
		return nil, false, nil
	default:
		return s.payloads[hash], true, nil
	}
}

func TestFetchAll_AllSucceed(t *testing.T) {
	f := &stubFetcher{payloads: map[string][]byte{"a": {0x01}, "b": {0x02}}}

	patches, err := FetchAll(context.Background(), f, []string{"a", "b"})

	require.NoError(t, err)
	require.Len(t, patches, 2)
	assert.Equal(t, "a", patches[0].Hash)
	assert.True(t, *patches[0].Fetched)
	assert.Equal(t, []byte{0x01}, patches[0].Payload)
	assert.True(t, *patches[1].Fetched)
}

func TestFetchAll_PartialFailureDoesNotAbort(t *testing.T) {
	f := &stubFetcher{
		payloads: map[string][]byte{"a": {0x01}, "c": {0x03}},
		failing:  map[string]bool{"b": true},
	}

	patches, err := FetchAll(context.Background(), f, []string{"a", "b", "c"})

	require.NoError(t, err)
	require.Len(t, patches, 3)
	assert.True(t, *patches[0].Fetched)
	assert.False(t, *patches[1].Fetched, "only the failing hash resolves unfetched")
	assert.Nil(t, patches[1].Payload)
	assert.True(t, *patches[2].Fetched)
	assert.Len(t, f.calls, 3, "every hash must be attempted")
}

func TestFetchAll_NotFoundIsNotAnError(t *testing.T) {
	f := &stubFetcher{missing: map[string]bool{"gone": true}}

	patches, err := FetchAll(context.Background(), f, []string{"gone"})

	require.NoError(t, err)
	assert.False(t, *patches[0].Fetched)
}

func TestFetchAll_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &stubFetcher{payloads: map[string][]byte{"a": {0x01}}}

	_, err := FetchAll(ctx, f, []string{"a"})

	assert.ErrorIs(t, err, context.Canceled)
}
