// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import (
	"time"

	"github.com/attest-net/attest/pkg/flip"
	"github.com/attest-net/attest/pkg/node"
)

// Effect is side work requested by a transition. The transition function
// only describes effects; the machine executes them, stamped with the
// generation of the region they belong to. Effects carry copies of the
// context data they need so executors never touch the live Context.
type Effect interface {
	effectRegion() region
}

type fetchHashesEffect struct {
	kind node.SessionKind
}

type fetchFlipsEffect struct {
	kind   node.SessionKind
	hashes []string
}

type decodeFlipsEffect struct {
	flips []flip.Flip
}

type fetchWordsEffect struct {
	hashes []string
}

type submitEffect struct {
	kind    node.SessionKind
	answers []flip.Answer
}

type timerEffect struct {
	region region
	kind   timerKind
	delay  time.Duration
}

func (fetchHashesEffect) effectRegion() region { return regionFetch }
func (fetchFlipsEffect) effectRegion() region  { return regionFetch }
func (decodeFlipsEffect) effectRegion() region { return regionFetch }
func (fetchWordsEffect) effectRegion() region  { return regionWords }
func (submitEffect) effectRegion() region      { return regionAnswer }
func (e timerEffect) effectRegion() region     { return e.region }

// Delays groups the relative waits baked into the protocol flow. They
// are configurable so tests can run the full machine in milliseconds.
type Delays struct {
	// Retry is the pause before re-requesting a failed hash or content
	// fetch.
	Retry time.Duration
	// Settle is the pause after a short-session decode round before the
	// completeness check runs again.
	Settle time.Duration
	// Bump is how far into the short session failed flips get swapped
	// for spare extras.
	Bump time.Duration
	// WordsSettle is the pause between keyword fetch rounds.
	WordsSettle time.Duration
}

// DefaultDelays returns the protocol's production timings.
func DefaultDelays() Delays {
	return Delays{
		Retry:       time.Second,
		Settle:      time.Second,
		Bump:        35 * time.Second,
		WordsSettle: 10 * time.Second,
	}
}

// autoSubmitOffset is the deadline for the forced short submission,
// relative to the validation start.
func (c *Context) autoSubmitOffset() time.Duration {
	return c.ShortSessionDuration - 10*time.Second
}

// longCheckOffset is the deadline for the long session completeness
// check, relative to the validation start.
func (c *Context) longCheckOffset() time.Duration {
	return c.autoSubmitOffset() + c.LongSessionDuration
}
