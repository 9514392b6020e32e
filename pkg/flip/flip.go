// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package flip holds the flip data model and the pure utilities the
// validation session is built from: patch-based merging, classification
// predicates, the RLP decode sub-flow, the concurrent fetch sub-flow and
// extra-flip substitution.
//
// A "flip" is an encoded content item (a short sequence of images plus a
// scrambling order) that a validating participant must assess. Flips are
// tracked per session in an ordered list keyed by content hash; fields are
// populated incrementally (fetched -> decoded -> answered) and a flip is
// never removed except by whole-list replacement.
package flip

// Relevance is the participant's verdict on whether the keyword hints
// offered for a flip actually describe it. Long session only.
type Relevance int

const (
	// RelevanceNone means no verdict has been recorded.
	RelevanceNone Relevance = 0
	// Relevant means the keywords describe the flip.
	Relevant Relevance = 1
	// Irrelevant means the keywords do not describe the flip; it is
	// reported as "wrong words" on submission.
	Irrelevant Relevance = 2
)

// Flip is one tracked content item of a validation session.
//
// Invariant: at most one Flip per hash per session list. The zero Option
// means "unanswered"; submission maps it to answer 0.
type Flip struct {
	// Hash is the immutable content hash identifying the flip.
	Hash string `json:"hash"`

	// Ready reports that the node has the content available. Long-session
	// fetches target only ready flips; hash-list refetches update it.
	Ready bool `json:"ready"`

	// Fetched reports that the raw payload was retrieved from the network.
	Fetched bool `json:"fetched"`

	// Decoded reports that the payload was decoded into images and orders.
	Decoded bool `json:"decoded"`

	// Failed marks a flip whose payload could not be decoded, or one left
	// unreplaced after extra-flip substitution ran out of reserves.
	// Terminal per item: failed flips are never decoded again.
	Failed bool `json:"failed"`

	// Extra marks a reserve flip, substitutable for a failed regular one.
	Extra bool `json:"extra"`

	// Payload is the raw encoded content. Present only transiently between
	// fetch and decode; cleared once decoding succeeds.
	Payload []byte `json:"payload,omitempty"`

	// Images are the decoded image blobs, in presentation order.
	Images [][]byte `json:"images,omitempty"`

	// Orders are the per-image index orderings, one list per presented
	// variant.
	Orders [][]int `json:"orders,omitempty"`

	// Option is the participant's chosen answer. Zero means unanswered.
	Option int `json:"option,omitempty"`

	// Relevance is the keyword verdict. Long session only.
	Relevance Relevance `json:"relevance,omitempty"`

	// Words are the display keywords for the flip, resolved from the
	// static vocabulary. Long session only.
	Words []string `json:"words,omitempty"`
}

// Answered reports whether the participant picked a non-empty option.
func (f Flip) Answered() bool { return f.Option > 0 }

// HashEntry is one element of a session hash list as returned by the node.
type HashEntry struct {
	Hash  string `json:"hash"`
	Ready bool   `json:"ready"`
	Extra bool   `json:"extra"`
}

// FromHashes builds a fresh tracked list from a retrieved hash list,
// preserving order.
func FromHashes(entries []HashEntry) []Flip {
	flips := make([]Flip, len(entries))
	for i, e := range entries {
		flips[i] = Flip{Hash: e.Hash, Ready: e.Ready, Extra: e.Extra}
	}
	return flips
}

// Answer is one element of a submitted answer batch.
type Answer struct {
	Hash       string `json:"hash"`
	Answer     int    `json:"answer"`
	WrongWords bool   `json:"wrongWords"`
}
