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

// Context is the extended machine state: everything about the attempt
// that is not captured by the composite State. It is mutated only by the
// transition function, inside the machine's event loop, and is persisted
// with the State after every step.
type Context struct {
	// AttemptID identifies one run of the machine across restarts.
	AttemptID string `json:"attemptId"`

	// Epoch is the epoch this attempt belongs to. Snapshots from older
	// epochs are discarded on resume.
	Epoch uint32 `json:"epoch"`

	// ValidationStart anchors every protocol deadline.
	ValidationStart      time.Time     `json:"validationStart"`
	ShortSessionDuration time.Duration `json:"shortSessionDuration"`
	LongSessionDuration  time.Duration `json:"longSessionDuration"`

	ShortFlips []flip.Flip `json:"shortFlips"`
	LongFlips  []flip.Flip `json:"longFlips"`

	// CurrentIndex points into the navigable list of the active phase.
	CurrentIndex int `json:"currentIndex"`

	// ErrorMessage holds the latest submission failure, surfaced to the
	// UI next to the retry affordance.
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// flips returns the working list for the given session.
func (c *Context) flips(kind node.SessionKind) []flip.Flip {
	if kind == node.LongSession {
		return c.LongFlips
	}
	return c.ShortFlips
}

func (c *Context) setFlips(kind node.SessionKind, flips []flip.Flip) {
	if kind == node.LongSession {
		c.LongFlips = flips
	} else {
		c.ShortFlips = flips
	}
}

// activeKind maps the phase to the session whose flips are being worked.
func activeKind(p Phase) node.SessionKind {
	if p == PhaseLongSession {
		return node.LongSession
	}
	return node.ShortSession
}

// navList is the list PREV/NEXT/PICK walk: every regular flip during the
// short session, only the solvable ones during the long session.
func (c *Context) navList(p Phase) []flip.Flip {
	if p == PhaseLongSession {
		return flip.SolvableFlips(c.LongFlips)
	}
	return flip.RegularFlips(c.ShortFlips)
}

// shortAnswers builds the short submission batch. Every tracked flip is
// reported, extras included; unanswered ones carry the zero answer. The
// node scores the full batch.
func (c *Context) shortAnswers() []flip.Answer {
	answers := make([]flip.Answer, 0, len(c.ShortFlips))
	for _, f := range c.ShortFlips {
		answers = append(answers, flip.Answer{Hash: f.Hash, Answer: f.Option})
	}
	return answers
}

// longAnswers builds the long submission batch over every tracked flip,
// failed and extra ones included, carrying the keyword relevance verdict.
func (c *Context) longAnswers() []flip.Answer {
	answers := make([]flip.Answer, 0, len(c.LongFlips))
	for _, f := range c.LongFlips {
		answers = append(answers, flip.Answer{
			Hash:       f.Hash,
			Answer:     f.Option,
			WrongWords: f.Relevance == flip.Irrelevant,
		})
	}
	return answers
}

// answeredCount counts solvable flips with a chosen option.
func answeredCount(flips []flip.Flip) int {
	n := 0
	for _, f := range flip.SolvableFlips(flips) {
		if f.Answered() {
			n++
		}
	}
	return n
}

// missingWords reports whether any solvable long flip still lacks its
// keyword pair.
func (c *Context) missingWords() bool {
	for _, f := range flip.SolvableFlips(c.LongFlips) {
		if len(f.Words) == 0 {
			return true
		}
	}
	return false
}
