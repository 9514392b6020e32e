// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRemaining(t *testing.T) {
	start := time.Date(2026, 1, 10, 13, 30, 0, 0, time.UTC)

	assert.Equal(t, 110*time.Second, Remaining(start, 110*time.Second, start))
	assert.Equal(t, 80*time.Second, Remaining(start, 110*time.Second, start.Add(30*time.Second)))
	assert.Zero(t, Remaining(start, 110*time.Second, start.Add(2*time.Minute)), "past deadlines floor at zero")
	assert.Zero(t, Remaining(start, -10*time.Second, start))
}
