// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSecondsToDuration(t *testing.T) {
	assert.Equal(t, 120*time.Second, secondsToDuration(120))
	assert.Equal(t, 1500*time.Millisecond, secondsToDuration(1.5))
	assert.Equal(t, time.Duration(0), secondsToDuration(0))
}

func TestCommandTree(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "status", "reset"} {
		assert.True(t, names[want], "missing %s command", want)
	}
}

func TestRunnerTracksCurrentMachine(t *testing.T) {
	r := &runner{}
	assert.Nil(t, r.current())
	r.setMachine(nil)
	assert.Nil(t, r.current())
}
