// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import "github.com/attest-net/attest/pkg/flip"

// Event is anything the machine reacts to: user commands, timer firings
// and async invocation results. Internal events are scoped to a region
// generation so that results of cancelled work are dropped instead of
// corrupting a later stage.
type Event interface {
	eventName() string
}

// region identifies a cancellation scope. Bumping a region's generation
// invalidates every pending timer and invocation started under it.
type region int

const (
	regionPhase region = iota
	regionFetch
	regionWords
	regionAnswer
	regionCount
)

// scopedEvent is implemented by internal events carrying a generation.
type scopedEvent interface {
	Event
	scope() (region, uint64)
}

// User commands.

// AnswerEvent records the chosen option for a flip.
type AnswerEvent struct {
	Hash   string
	Option int
}

// SubmitEvent requests submission of the current session's answers.
type SubmitEvent struct{}

// PrevEvent moves the cursor to the previous navigable flip.
type PrevEvent struct{}

// NextEvent moves the cursor to the next navigable flip.
type NextEvent struct{}

// PickEvent jumps the cursor to an absolute index.
type PickEvent struct {
	Index int
}

// ToggleWordsEvent records the keyword relevance verdict for a flip.
type ToggleWordsEvent struct {
	Hash      string
	Relevance flip.Relevance
}

// StartLongSessionEvent acknowledges the long session welcome screen.
type StartLongSessionEvent struct{}

// FinishFlipsEvent leaves the long answering stage for the wrap-up screen.
type FinishFlipsEvent struct{}

// StartKeywordsEvent enters keyword qualification from the wrap-up screen.
type StartKeywordsEvent struct{}

// RetrySubmitEvent retries a failed submission.
type RetrySubmitEvent struct{}

func (AnswerEvent) eventName() string           { return "ANSWER" }
func (SubmitEvent) eventName() string           { return "SUBMIT" }
func (PrevEvent) eventName() string             { return "PREV" }
func (NextEvent) eventName() string             { return "NEXT" }
func (PickEvent) eventName() string             { return "PICK" }
func (ToggleWordsEvent) eventName() string      { return "TOGGLE_WORDS" }
func (StartLongSessionEvent) eventName() string { return "START_LONG_SESSION" }
func (FinishFlipsEvent) eventName() string      { return "FINISH_FLIPS" }
func (StartKeywordsEvent) eventName() string    { return "START_KEYWORDS_QUALIFICATION" }
func (RetrySubmitEvent) eventName() string      { return "RETRY_SUBMIT" }

// Lifecycle events, raised by the machine itself.

// startEvent enters the short session of a fresh attempt.
type startEvent struct{}

// resumeEvent re-enters a restored state: it reschedules the absolute
// deadlines and re-fires whatever invocation the saved stage was in the
// middle of.
type resumeEvent struct{}

func (startEvent) eventName() string  { return "START" }
func (resumeEvent) eventName() string { return "RESUME" }

// Timer firings.

type timerKind int

const (
	timerRetryHashes timerKind = iota
	timerRetryFlips
	timerSettle
	timerBumpExtras
	timerAutoSubmit
	timerLongCheck
	timerWordsSettle
)

func (k timerKind) String() string {
	switch k {
	case timerRetryHashes:
		return "retryHashes"
	case timerRetryFlips:
		return "retryFlips"
	case timerSettle:
		return "settle"
	case timerBumpExtras:
		return "bumpExtras"
	case timerAutoSubmit:
		return "autoSubmit"
	case timerLongCheck:
		return "longCheck"
	case timerWordsSettle:
		return "wordsSettle"
	default:
		return "unknown"
	}
}

type timerEvent struct {
	region region
	gen    uint64
	kind   timerKind
}

func (e timerEvent) eventName() string       { return "TIMER_" + e.kind.String() }
func (e timerEvent) scope() (region, uint64) { return e.region, e.gen }

// Invocation results.

type hashesFetchedEvent struct {
	gen     uint64
	entries []flip.HashEntry
	err     error
}

type flipsFetchedEvent struct {
	gen     uint64
	patches []flip.Patch
	err     error
}

type flipsDecodedEvent struct {
	gen     uint64
	patches []flip.Patch
}

type wordsFetchedEvent struct {
	gen     uint64
	patches []flip.Patch
}

type submitDoneEvent struct {
	gen uint64
	err error
}

func (hashesFetchedEvent) eventName() string { return "HASHES_FETCHED" }
func (flipsFetchedEvent) eventName() string  { return "FLIPS_FETCHED" }
func (flipsDecodedEvent) eventName() string  { return "FLIPS_DECODED" }
func (wordsFetchedEvent) eventName() string  { return "WORDS_FETCHED" }
func (submitDoneEvent) eventName() string    { return "SUBMIT_DONE" }

func (e hashesFetchedEvent) scope() (region, uint64) { return regionFetch, e.gen }
func (e flipsFetchedEvent) scope() (region, uint64)  { return regionFetch, e.gen }
func (e flipsDecodedEvent) scope() (region, uint64)  { return regionFetch, e.gen }
func (e wordsFetchedEvent) scope() (region, uint64)  { return regionWords, e.gen }
func (e submitDoneEvent) scope() (region, uint64)    { return regionAnswer, e.gen }
