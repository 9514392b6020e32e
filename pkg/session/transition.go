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

// transition is the single step function of the machine. Given the
// current composite state, the mutable context, an event and the wall
// clock, it returns the next state plus the effects to launch. It never
// performs I/O itself, which keeps every protocol rule unit-testable
// without timers or a node.
//
// Events that do not apply to the current state fall through and leave
// the state unchanged with no effects.
func transition(st State, vc *Context, ev Event, now time.Time, delays Delays) (State, []Effect) {
	if st.Phase.Terminal() {
		return st, nil
	}

	switch ev := ev.(type) {
	case startEvent:
		return enterShort(vc, now, delays)
	case resumeEvent:
		return st, resumeEffects(st, vc, now, delays)

	case timerEvent:
		return onTimer(st, vc, ev.kind, now, delays)

	case hashesFetchedEvent:
		return onHashesFetched(st, vc, ev, delays)
	case flipsFetchedEvent:
		return onFlipsFetched(st, vc, ev, delays)
	case flipsDecodedEvent:
		return onFlipsDecoded(st, vc, ev, delays)
	case wordsFetchedEvent:
		if st.Phase == PhaseLongSession && st.Words == WordsFetching {
			vc.LongFlips = flip.Merge(vc.LongFlips, ev.patches)
			st.Words = WordsSettle
			return st, []Effect{timerEffect{regionWords, timerWordsSettle, delays.WordsSettle}}
		}
	case submitDoneEvent:
		return onSubmitDone(st, vc, ev, now)

	case AnswerEvent:
		if answeringOpen(st) {
			setOption(vc.flips(activeKind(st.Phase)), ev.Hash, ev.Option)
		}
	case ToggleWordsEvent:
		if st.Phase == PhaseLongSession && st.Answer == AnswerKeywords {
			setRelevance(vc.LongFlips, ev.Hash, ev.Relevance)
		}
	case SubmitEvent:
		return startSubmit(st, vc)
	case RetrySubmitEvent:
		if st.Answer == AnswerSubmitFailed {
			st.Answer = AnswerSubmitting
			return st, []Effect{submitFor(st.Phase, vc)}
		}
	case PrevEvent:
		return navPrev(st, vc)
	case NextEvent:
		return navNext(st, vc)
	case PickEvent:
		return navPick(st, vc, ev.Index)

	case StartLongSessionEvent:
		if st.Phase == PhaseLongSession && st.Answer == AnswerWelcome {
			st.Answer = AnswerFlips
		}
	case FinishFlipsEvent:
		if st.Phase == PhaseLongSession && st.Answer == AnswerFlips {
			st.Answer = AnswerFinish
		}
	case StartKeywordsEvent:
		if st.Phase == PhaseLongSession && st.Answer == AnswerFinish {
			st.Answer = AnswerKeywords
			vc.CurrentIndex = 0
			st.Nav = NavFirst
		}
	}
	return st, nil
}

// enterShort builds the initial state of a fresh attempt: the extras
// bump and the forced submission are armed against the wall clock, and
// the fetch loop runs its first completeness check.
func enterShort(vc *Context, now time.Time, delays Delays) (State, []Effect) {
	st := shortEntry()
	effects := []Effect{
		timerEffect{regionPhase, timerBumpExtras, delays.Bump},
		timerEffect{regionAnswer, timerAutoSubmit, Remaining(vc.ValidationStart, vc.autoSubmitOffset(), now)},
	}
	st, effects = fetchCheck(st, vc, effects)
	return st, effects
}

// enterLong switches to the long session after a successful short
// submission. The fetch and words regions start from scratch against
// the long flip list.
func enterLong(vc *Context, now time.Time) (State, []Effect) {
	st := longEntry()
	vc.CurrentIndex = 0
	vc.ErrorMessage = ""
	return st, []Effect{
		timerEffect{regionPhase, timerLongCheck, Remaining(vc.ValidationStart, vc.longCheckOffset(), now)},
		fetchHashesEffect{kind: node.LongSession},
		fetchWordsEffect{hashes: wordless(vc.LongFlips)},
	}
}

// fetchCheck is the loop head of the fetch region: done once everything
// is fetched, otherwise re-request the hash list.
func fetchCheck(st State, vc *Context, effects []Effect) (State, []Effect) {
	kind := activeKind(st.Phase)
	if flip.EveryFetched(vc.flips(kind)) {
		st.Fetch = FetchDone
		return st, effects
	}
	st.Fetch = FetchHashes
	return st, append(effects, fetchHashesEffect{kind: kind})
}

func onHashesFetched(st State, vc *Context, ev hashesFetchedEvent, delays Delays) (State, []Effect) {
	if st.Fetch != FetchHashes {
		return st, nil
	}
	if ev.err != nil {
		st.Fetch = FetchHashesFail
		return st, []Effect{timerEffect{regionFetch, timerRetryHashes, delays.Retry}}
	}
	kind := activeKind(st.Phase)
	existing := vc.flips(kind)
	if len(existing) == 0 {
		vc.setFlips(kind, flip.FromHashes(ev.entries))
	} else {
		vc.setFlips(kind, flip.Merge(existing, flip.HashPatches(ev.entries)))
	}
	st.Fetch = FetchFlips
	return st, []Effect{fetchFlipsEffect{kind: kind, hashes: fetchTargets(kind, vc.flips(kind))}}
}

// fetchTargets lists the hashes to request: every unfetched flip, gated
// on node-reported readiness during the long session.
func fetchTargets(kind node.SessionKind, flips []flip.Flip) []string {
	if kind == node.LongSession {
		flips = flip.ReadyFlips(flips)
	}
	return flip.Hashes(flip.WaitingForFetch(flips))
}

func onFlipsFetched(st State, vc *Context, ev flipsFetchedEvent, delays Delays) (State, []Effect) {
	if st.Fetch != FetchFlips {
		return st, nil
	}
	if ev.err != nil {
		st.Fetch = FetchFlipsFail
		return st, []Effect{timerEffect{regionFetch, timerRetryFlips, delays.Retry}}
	}
	kind := activeKind(st.Phase)
	vc.setFlips(kind, flip.Merge(vc.flips(kind), ev.patches))
	st.Fetch = FetchDecode
	pending := flip.WaitingForDecode(vc.flips(kind))
	return st, []Effect{decodeFlipsEffect{flips: pending}}
}

func onFlipsDecoded(st State, vc *Context, ev flipsDecodedEvent, delays Delays) (State, []Effect) {
	if st.Fetch != FetchDecode {
		return st, nil
	}
	kind := activeKind(st.Phase)
	vc.setFlips(kind, flip.Merge(vc.flips(kind), ev.patches))
	st.Fetch = FetchSettle
	return st, []Effect{timerEffect{regionFetch, timerSettle, delays.Settle}}
}

func onTimer(st State, vc *Context, kind timerKind, now time.Time, delays Delays) (State, []Effect) {
	switch kind {
	case timerRetryHashes:
		if st.Fetch == FetchHashesFail {
			st.Fetch = FetchHashes
			return st, []Effect{fetchHashesEffect{kind: activeKind(st.Phase)}}
		}
	case timerRetryFlips:
		if st.Fetch == FetchFlipsFail {
			st.Fetch = FetchFlips
			k := activeKind(st.Phase)
			return st, []Effect{fetchFlipsEffect{kind: k, hashes: fetchTargets(k, vc.flips(k))}}
		}
	case timerSettle:
		if st.Fetch == FetchSettle {
			return fetchCheck(st, vc, nil)
		}
	case timerBumpExtras:
		// Swap failed flips for spare extras partway into the short
		// session. Leftover failures stay flagged so the submission
		// still reports them. The substitution ends the fetch region;
		// the stage change cancels any fetch work still in flight.
		if st.Phase == PhaseShortSession && len(flip.FailedFlips(vc.ShortFlips)) > 0 {
			patches, _ := flip.BumpExtras(vc.ShortFlips)
			vc.ShortFlips = flip.Merge(vc.ShortFlips, patches)
			st.Fetch = FetchDone
			return st, nil
		}
	case timerAutoSubmit:
		if st.Phase == PhaseShortSession && st.Answer == AnswerNormal {
			solvable := flip.SolvableFlips(vc.ShortFlips)
			if len(solvable) > 0 && answeredCount(vc.ShortFlips)*2 >= len(solvable) {
				st.Answer = AnswerSubmitting
				return st, []Effect{submitFor(st.Phase, vc)}
			}
			return State{Phase: PhaseFailed}, nil
		}
	case timerLongCheck:
		if st.Phase == PhaseLongSession {
			solvable := flip.SolvableFlips(vc.LongFlips)
			if len(solvable) == 0 || answeredCount(vc.LongFlips)*2 < len(solvable) {
				return State{Phase: PhaseFailed}, nil
			}
		}
	case timerWordsSettle:
		if st.Phase == PhaseLongSession && st.Words == WordsSettle {
			solvable := flip.SolvableFlips(vc.LongFlips)
			if len(solvable) > 0 && !vc.missingWords() {
				st.Words = WordsDone
				return st, nil
			}
			st.Words = WordsFetching
			return st, []Effect{fetchWordsEffect{hashes: wordless(vc.LongFlips)}}
		}
	}
	return st, nil
}

func onSubmitDone(st State, vc *Context, ev submitDoneEvent, now time.Time) (State, []Effect) {
	if st.Answer != AnswerSubmitting {
		return st, nil
	}
	if ev.err != nil {
		vc.ErrorMessage = ev.err.Error()
		st.Answer = AnswerSubmitFailed
		return st, nil
	}
	vc.ErrorMessage = ""
	if st.Phase == PhaseShortSession {
		return enterLong(vc, now)
	}
	return State{Phase: PhaseSucceeded}, nil
}

func startSubmit(st State, vc *Context) (State, []Effect) {
	shortReady := st.Phase == PhaseShortSession && st.Answer == AnswerNormal
	longReady := st.Phase == PhaseLongSession && st.Answer == AnswerKeywords
	if !shortReady && !longReady {
		return st, nil
	}
	st.Answer = AnswerSubmitting
	return st, []Effect{submitFor(st.Phase, vc)}
}

func submitFor(p Phase, vc *Context) Effect {
	if p == PhaseLongSession {
		return submitEffect{kind: node.LongSession, answers: vc.longAnswers()}
	}
	return submitEffect{kind: node.ShortSession, answers: vc.shortAnswers()}
}

// answeringOpen reports whether ANSWER events are accepted: the short
// answering stage, or the long flips stage before keyword qualification.
func answeringOpen(st State) bool {
	if st.Phase == PhaseShortSession {
		return st.Answer == AnswerNormal
	}
	return st.Answer == AnswerFlips
}

// Navigation. PREV and NEXT stop at the list edges; PICK snaps to the
// boundary states at index 0 and the last index.

func navPrev(st State, vc *Context) (State, []Effect) {
	if len(vc.navList(st.Phase)) == 0 || vc.CurrentIndex == 0 {
		return st, nil
	}
	vc.CurrentIndex--
	if vc.CurrentIndex == 0 {
		st.Nav = NavFirst
	} else {
		st.Nav = NavNormal
	}
	return st, nil
}

func navNext(st State, vc *Context) (State, []Effect) {
	n := len(vc.navList(st.Phase))
	if n == 0 || vc.CurrentIndex >= n-1 {
		return st, nil
	}
	vc.CurrentIndex++
	if vc.CurrentIndex == n-1 {
		st.Nav = NavLast
	} else {
		st.Nav = NavNormal
	}
	return st, nil
}

func navPick(st State, vc *Context, index int) (State, []Effect) {
	n := len(vc.navList(st.Phase))
	if n == 0 || index < 0 || (index != 0 && index >= n) {
		return st, nil
	}
	vc.CurrentIndex = index
	switch {
	case index == 0:
		st.Nav = NavFirst
	case index == n-1:
		st.Nav = NavLast
	default:
		st.Nav = NavNormal
	}
	return st, nil
}

// resumeEffects re-arms a restored state: the absolute deadlines are
// recomputed from the wall clock, and the invocation the saved stage was
// in the middle of is fired again.
func resumeEffects(st State, vc *Context, now time.Time, delays Delays) []Effect {
	var effects []Effect
	switch st.Phase {
	case PhaseShortSession:
		effects = append(effects,
			timerEffect{regionPhase, timerBumpExtras, Remaining(vc.ValidationStart, delays.Bump, now)},
		)
		if st.Answer == AnswerNormal {
			effects = append(effects,
				timerEffect{regionAnswer, timerAutoSubmit, Remaining(vc.ValidationStart, vc.autoSubmitOffset(), now)},
			)
		}
	case PhaseLongSession:
		effects = append(effects,
			timerEffect{regionPhase, timerLongCheck, Remaining(vc.ValidationStart, vc.longCheckOffset(), now)},
		)
		switch st.Words {
		case WordsFetching:
			effects = append(effects, fetchWordsEffect{hashes: wordless(vc.LongFlips)})
		case WordsSettle:
			effects = append(effects, timerEffect{regionWords, timerWordsSettle, delays.WordsSettle})
		}
	}

	kind := activeKind(st.Phase)
	switch st.Fetch {
	case FetchCheck, FetchHashes:
		effects = append(effects, fetchHashesEffect{kind: kind})
	case FetchHashesFail:
		effects = append(effects, timerEffect{regionFetch, timerRetryHashes, delays.Retry})
	case FetchFlips:
		effects = append(effects, fetchFlipsEffect{kind: kind, hashes: fetchTargets(kind, vc.flips(kind))})
	case FetchFlipsFail:
		effects = append(effects, timerEffect{regionFetch, timerRetryFlips, delays.Retry})
	case FetchDecode:
		effects = append(effects, decodeFlipsEffect{flips: flip.WaitingForDecode(vc.flips(kind))})
	case FetchSettle:
		effects = append(effects, timerEffect{regionFetch, timerSettle, delays.Settle})
	}

	if st.Answer == AnswerSubmitting {
		effects = append(effects, submitFor(st.Phase, vc))
	}
	return effects
}

func setOption(flips []flip.Flip, hash string, option int) {
	for i := range flips {
		if flips[i].Hash == hash {
			flips[i].Option = option
			return
		}
	}
}

func setRelevance(flips []flip.Flip, hash string, r flip.Relevance) {
	for i := range flips {
		if flips[i].Hash == hash {
			flips[i].Relevance = r
			return
		}
	}
}

// wordless lists the solvable long flips still missing their keyword
// pair.
func wordless(flips []flip.Flip) []string {
	var hashes []string
	for _, f := range flip.SolvableFlips(flips) {
		if len(f.Words) == 0 {
			hashes = append(hashes, f.Hash)
		}
	}
	return hashes
}
