// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

// The validation session is a two-phase hierarchical machine. Rather
// than a reflective state-chart, the composite state is an explicit
// record of per-region enums: the phase plus the stage of each parallel
// region that is active within it. Regions not meaningful for a phase
// (words during the short session) simply hold their initial stage.

// Phase is the top-level machine state.
type Phase int

const (
	PhaseShortSession Phase = iota
	PhaseLongSession
	PhaseFailed
	PhaseSucceeded
)

// Terminal reports whether the attempt has reached a final outcome.
func (p Phase) Terminal() bool { return p == PhaseFailed || p == PhaseSucceeded }

func (p Phase) String() string {
	switch p {
	case PhaseShortSession:
		return "shortSession"
	case PhaseLongSession:
		return "longSession"
	case PhaseFailed:
		return "validationFailed"
	case PhaseSucceeded:
		return "validationSucceeded"
	default:
		return "unknown"
	}
}

// FetchStage is the stage of the flip fetch region.
type FetchStage int

const (
	// FetchCheck is the zero-delay guard: all fetched -> done, else
	// request the hash list.
	FetchCheck FetchStage = iota
	FetchHashes
	FetchHashesFail
	FetchFlips
	FetchFlipsFail
	FetchDecode
	// FetchSettle is the short post-decode delay before looping back to
	// the check.
	FetchSettle
	FetchDone
)

func (s FetchStage) String() string {
	switch s {
	case FetchCheck:
		return "check"
	case FetchHashes:
		return "fetchHashes"
	case FetchHashesFail:
		return "fetchHashesFail"
	case FetchFlips:
		return "fetchFlips"
	case FetchFlipsFail:
		return "fetchFlipsFail"
	case FetchDecode:
		return "decodeFlips"
	case FetchSettle:
		return "decoded"
	case FetchDone:
		return "done"
	default:
		return "unknown"
	}
}

// WordsStage is the stage of the long session keyword region.
type WordsStage int

const (
	WordsFetching WordsStage = iota
	// WordsSettle is the delayed completeness check after a fetch round.
	WordsSettle
	WordsDone
)

func (s WordsStage) String() string {
	switch s {
	case WordsFetching:
		return "fetching"
	case WordsSettle:
		return "success"
	case WordsDone:
		return "done"
	default:
		return "unknown"
	}
}

// NavStage tracks boundary position among the navigable flips.
type NavStage int

const (
	NavFirst NavStage = iota
	NavNormal
	NavLast
)

func (s NavStage) String() string {
	switch s {
	case NavFirst:
		return "firstFlip"
	case NavNormal:
		return "normal"
	case NavLast:
		return "lastFlip"
	default:
		return "unknown"
	}
}

// AnswerStage is the stage of the answering region. The short session
// uses normal/submitting/submitFailed; the long session walks
// welcome -> flips -> finish -> keywords before submitting.
type AnswerStage int

const (
	AnswerNormal AnswerStage = iota
	AnswerWelcome
	AnswerFlips
	AnswerFinish
	AnswerKeywords
	AnswerSubmitting
	AnswerSubmitFailed
)

func (s AnswerStage) String() string {
	switch s {
	case AnswerNormal:
		return "normal"
	case AnswerWelcome:
		return "welcomeQualification"
	case AnswerFlips:
		return "flips"
	case AnswerFinish:
		return "finishFlips"
	case AnswerKeywords:
		return "keywords"
	case AnswerSubmitting:
		return "submitting"
	case AnswerSubmitFailed:
		return "submitFailed"
	default:
		return "unknown"
	}
}

// State is the full composite machine state. It serializes as part of
// every snapshot and is compared region-wise to cancel timers and
// invocations scoped to an exited stage.
type State struct {
	Phase  Phase       `json:"phase"`
	Fetch  FetchStage  `json:"fetch"`
	Words  WordsStage  `json:"words"`
	Nav    NavStage    `json:"nav"`
	Answer AnswerStage `json:"answer"`
}

// shortEntry is the composite state entered when an attempt begins.
func shortEntry() State {
	return State{Phase: PhaseShortSession, Fetch: FetchCheck, Nav: NavFirst, Answer: AnswerNormal}
}

// longEntry is the composite state entered after a successful short
// submission.
func longEntry() State {
	return State{
		Phase:  PhaseLongSession,
		Fetch:  FetchHashes,
		Words:  WordsFetching,
		Nav:    NavFirst,
		Answer: AnswerWelcome,
	}
}

// Labels exposes the per-region state names for the UI layer.
func (s State) Labels() map[string]string {
	if s.Phase.Terminal() {
		return map[string]string{"phase": s.Phase.String()}
	}
	return map[string]string{
		"phase":  s.Phase.String(),
		"fetch":  s.Fetch.String(),
		"words":  s.Words.String(),
		"nav":    s.Nav.String(),
		"answer": s.Answer.String(),
	}
}

func (s State) String() string {
	if s.Phase.Terminal() {
		return s.Phase.String()
	}
	return s.Phase.String() + "." + s.Fetch.String() + "/" + s.Answer.String()
}
